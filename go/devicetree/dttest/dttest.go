// Package dttest builds Apple flattened device trees for tests.
package dttest

import (
	"bytes"

	"github.com/lunixbochs/struc"

	"github.com/lunixbochs/bootxnu/go/devicetree"
	"github.com/lunixbochs/bootxnu/go/models"
)

type Prop struct {
	Name        string
	Value       []byte
	Placeholder bool
}

type Node struct {
	Props    []Prop
	Children []*Node
}

func NewNode(name string) *Node {
	return &Node{Props: []Prop{{Name: "name", Value: Str(name)}}}
}

func (n *Node) Prop(name string, value []byte) *Node {
	n.Props = append(n.Props, Prop{Name: name, Value: value})
	return n
}

func (n *Node) Child(c *Node) *Node {
	n.Children = append(n.Children, c)
	return n
}

// Str is a NUL terminated property value.
func Str(s string) []byte {
	return append([]byte(s), 0)
}

func pack(buf *bytes.Buffer, v interface{}) {
	if err := struc.PackWithOptions(buf, v, models.LittleEndian); err != nil {
		panic(err)
	}
}

func (n *Node) write(buf *bytes.Buffer) {
	pack(buf, &struct {
		NProperties uint32
		NChildren   uint32
	}{uint32(len(n.Props)), uint32(len(n.Children))})
	for _, p := range n.Props {
		length := uint32(len(p.Value))
		if p.Placeholder {
			length |= devicetree.PlaceholderFlag
		}
		pack(buf, &struct {
			Name   string `struc:"[32]byte"`
			Length uint32
		}{p.Name, length})
		buf.Write(p.Value)
		for i := len(p.Value); i%4 != 0; i++ {
			buf.WriteByte(0)
		}
	}
	for _, c := range n.Children {
		c.write(buf)
	}
}

func (n *Node) Bytes() []byte {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.Bytes()
}

// Sample is a small iBoot style tree: firmware-version on the root and the
// reserved memory slot under /chosen/memory-map.
func Sample() *Node {
	return NewNode("device-tree").
		Prop("compatible", Str("N71AP")).
		Prop("firmware-version", Str("iBoot-2817.60.2~6 with a long tail")).
		Child(NewNode("chosen").
			Prop("debug-enabled", []byte{1, 0, 0, 0}).
			Child(NewNode("memory-map").
				Prop("BootArgs", make([]byte, 16)).
				Prop(devicetree.ReservedSlotName, make([]byte, 16)))).
		Child(NewNode("cpus").
			Child(NewNode("cpu0").Prop("reg", []byte{0, 0, 0, 0})))
}
