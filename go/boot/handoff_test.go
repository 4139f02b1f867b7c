package boot

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
)

type recorder struct {
	calls []string
	fail  error
}

func (r *recorder) DisableDcache() { r.calls = append(r.calls, "dcache") }

func (r *recorder) SwitchToEL1(arg, entry uint64) error {
	r.calls = append(r.calls, "el1")
	return r.fail
}

func TestJumpOrder(t *testing.T) {
	var out bytes.Buffer
	r := &recorder{}
	h := &Handoff{Cache: r, Switcher: r, Console: &models.StreamConsole{Out: &out}}
	if err := h.Jump(0x4004100, 0x4030000); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 2 || r.calls[0] != "dcache" || r.calls[1] != "el1" {
		t.Fatalf("calls %v", r.calls)
	}
	if out.String() != "Booting XNU at 0X4004100\n\n" {
		t.Errorf("banner %q", out.String())
	}
}

func TestJumpFailure(t *testing.T) {
	r := &recorder{fail: errors.New("no EL2")}
	h := &Handoff{Cache: r, Switcher: r, Console: &models.StreamConsole{Out: &bytes.Buffer{}}}
	if err := h.Jump(0, 0); err == nil {
		t.Fatal("switch failure swallowed")
	}
}
