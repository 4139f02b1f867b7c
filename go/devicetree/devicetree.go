// Package devicetree reads and patches Apple flattened device trees, the
// format iBoot hands to XNU.
package devicetree

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/lunixbochs/struc"

	"github.com/lunixbochs/bootxnu/go/models"
)

const (
	PropNameLength = 32
	// set on properties iBoot is meant to fill in
	PlaceholderFlag = 0x80000000

	nodeHeaderLen = 8
	propHeaderLen = PropNameLength + 4
)

type nodeHeader struct {
	NProperties uint32
	NChildren   uint32
}

type propHeader struct {
	Name   string `struc:"[32]byte"`
	Length uint32
}

type Property struct {
	Name        string
	Placeholder bool
	// Value aliases the tree's buffer.
	Value []byte
	// Offset of the property header.
	Offset int

	tree *Tree
}

type Node struct {
	Properties []*Property
	Children   []*Node
	Offset     int
}

type Tree struct {
	Root *Node

	data []byte
}

func unpack(p []byte, v interface{}) error {
	return struc.UnpackWithOptions(bytes.NewReader(p), v, models.LittleEndian)
}

// Parse indexes data by walking declared node and property boundaries. The
// tree keeps referencing data; edits through Property land in it.
func Parse(data []byte) (*Tree, error) {
	t := &Tree{data: data}
	root, _, err := t.parseNode(0)
	if err != nil {
		return nil, err
	}
	t.Root = root
	return t, nil
}

func (t *Tree) parseNode(off int) (*Node, int, error) {
	if len(t.data)-off < nodeHeaderLen {
		return nil, 0, models.DeviceTreeErrorf(off, "node header truncated")
	}
	var hdr nodeHeader
	if err := unpack(t.data[off:off+nodeHeaderLen], &hdr); err != nil {
		return nil, 0, models.DeviceTreeErrorf(off, "failed to unpack node: %v", err)
	}
	node := &Node{Offset: off}
	off += nodeHeaderLen
	for i := uint32(0); i < hdr.NProperties; i++ {
		prop, next, err := t.parseProperty(off)
		if err != nil {
			return nil, 0, err
		}
		node.Properties = append(node.Properties, prop)
		off = next
	}
	for i := uint32(0); i < hdr.NChildren; i++ {
		child, next, err := t.parseNode(off)
		if err != nil {
			return nil, 0, err
		}
		node.Children = append(node.Children, child)
		off = next
	}
	return node, off, nil
}

func (t *Tree) parseProperty(off int) (*Property, int, error) {
	if len(t.data)-off < propHeaderLen {
		return nil, 0, models.DeviceTreeErrorf(off, "property header truncated")
	}
	var hdr propHeader
	if err := unpack(t.data[off:off+propHeaderLen], &hdr); err != nil {
		return nil, 0, models.DeviceTreeErrorf(off, "failed to unpack property: %v", err)
	}
	length := int(hdr.Length &^ PlaceholderFlag)
	start := off + propHeaderLen
	padded := (length + 3) &^ 3
	if padded > len(t.data)-start {
		return nil, 0, models.DeviceTreeErrorf(off, "property %q length %#x runs past end of tree", cstring(hdr.Name), length)
	}
	prop := &Property{
		Name:        cstring(hdr.Name),
		Placeholder: hdr.Length&PlaceholderFlag != 0,
		Value:       t.data[start : start+length],
		Offset:      off,
		tree:        t,
	}
	return prop, start + padded, nil
}

func cstring(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// SetName rewrites the name field in place, NUL padded.
func (p *Property) SetName(name string) error {
	if len(name) >= PropNameLength {
		return models.DeviceTreeErrorf(p.Offset, "property name %q too long", name)
	}
	field := p.tree.data[p.Offset : p.Offset+PropNameLength]
	for i := range field {
		field[i] = 0
	}
	copy(field, name)
	p.Name = name
	return nil
}

// SetString writes s NUL terminated and zeroes the rest of the value.
func (p *Property) SetString(s string) error {
	if len(s)+1 > len(p.Value) {
		return models.DeviceTreeErrorf(p.Offset, "property %q (%d bytes) too short for %q", p.Name, len(p.Value), s)
	}
	for i := range p.Value {
		p.Value[i] = 0
	}
	copy(p.Value, s)
	return nil
}

// Walk visits nodes depth first, parents before children. Returning a
// non-nil error stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	return t.Root.walk(fn, 0)
}

func (n *Node) walk(fn func(n *Node, depth int) error, depth int) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) Property(name string) *Property {
	for _, p := range n.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Name is the node's "name" property.
func (n *Node) Name() string {
	if p := n.Property("name"); p != nil {
		return cstring(string(p.Value))
	}
	return ""
}

// FindProperties returns every property called name in walk order.
func (t *Tree) FindProperties(name string) []*Property {
	var found []*Property
	t.Walk(func(n *Node, depth int) error {
		for _, p := range n.Properties {
			if p.Name == name {
				found = append(found, p)
			}
		}
		return nil
	})
	return found
}

// Find resolves a slash separated path of node names below the root.
func (t *Tree) Find(path string) *Node {
	node := t.Root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		var next *Node
		for _, c := range node.Children {
			if c.Name() == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

func printable(v []byte) bool {
	v = bytes.TrimRight(v, "\x00")
	if len(v) == 0 {
		return false
	}
	for _, b := range v {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

func (p *Property) String() string {
	var val string
	switch {
	case printable(p.Value):
		val = fmt.Sprintf("%q", string(bytes.TrimRight(p.Value, "\x00")))
	case len(p.Value) > 32:
		val = fmt.Sprintf("<%x...> (%d bytes)", p.Value[:32], len(p.Value))
	default:
		val = fmt.Sprintf("<%x>", p.Value)
	}
	if p.Placeholder {
		val += " [placeholder]"
	}
	return fmt.Sprintf("%s = %s", p.Name, val)
}

// Dump prints the tree with one line per property.
func (t *Tree) Dump(w io.Writer) {
	t.Walk(func(n *Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		name := n.Name()
		if name == "" {
			name = "/"
		}
		fmt.Fprintf(w, "%s%s\n", indent, name)
		for _, p := range n.Properties {
			fmt.Fprintf(w, "%s  %s\n", indent, p)
		}
		return nil
	})
}
