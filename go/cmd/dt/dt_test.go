package dt

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lunixbochs/bootxnu/go/devicetree/dttest"
)

func TestRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "bootxnu-dt")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "DeviceTree.n71ap")
	if err := ioutil.WriteFile(path, dttest.Sample().Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if status := Run([]string{"dt", path}, &stdout, &stderr); status != 0 {
		t.Fatalf("exit %d: %s", status, stderr.String())
	}
	if !strings.Contains(stdout.String(), "MemoryMapReserved-0") {
		t.Errorf("missing reserved slot:\n%s", stdout.String())
	}

	stdout.Reset()
	if status := Run([]string{"dt", "-patch", "-rdaddr", "0x4010000", "-rdsize", "4096", path}, &stdout, &stderr); status != 0 {
		t.Fatalf("exit %d: %s", status, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "RAMDisk = <0000010400000000") || !strings.Contains(out, `firmware-version = "nBoot-0.1.0-beta"`) {
		t.Errorf("patch not applied:\n%s", out)
	}

	if status := Run([]string{"dt"}, &stdout, &stderr); status != 1 {
		t.Errorf("missing file argument: exit %d", status)
	}
}
