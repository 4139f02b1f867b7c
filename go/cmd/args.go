package cmd

import (
	"strconv"
	"strings"

	"github.com/lunixbochs/argjoy"

	"github.com/lunixbochs/bootxnu/go/boot"
	"github.com/lunixbochs/bootxnu/go/models"
)

// hexCodec reads U-Boot style hex numbers, with or without 0x.
func hexCodec(arg interface{}, vals []interface{}) error {
	s, ok := vals[0].(string)
	if !ok {
		return argjoy.NoMatch
	}
	v, ok := arg.(*uint64)
	if !ok {
		return argjoy.NoMatch
	}
	n, err := ParseHex(s)
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func ParseHex(s string) (uint64, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil || digits == "" {
		return 0, models.ArgumentErrorf("%q is not a hex number", s)
	}
	return n, nil
}

var aj = argjoy.NewArgjoy()

func init() { aj.Register(hexCodec) }

func request(kernel, kernelLen, rd, rdLen, dt, dtLen uint64) *boot.Request {
	return &boot.Request{
		Kernel:     models.NewSegment(kernel, kernelLen),
		Ramdisk:    models.NewSegment(rd, rdLen),
		DeviceTree: models.NewSegment(dt, dtLen),
	}
}

// ParseRequest maps the six positional arguments onto a boot request.
func ParseRequest(args []string) (*boot.Request, error) {
	if len(args) != 6 {
		return nil, models.ArgumentErrorf("wrong number of arguments (got %d)", len(args)+1)
	}
	vals := make([]interface{}, len(args))
	for i, a := range args {
		vals[i] = a
	}
	out, err := aj.Call(request, vals...)
	if err != nil {
		return nil, err
	}
	return out[0].(*boot.Request), nil
}
