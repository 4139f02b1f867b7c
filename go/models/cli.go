package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// PrintFlags writes flag help in two columns wrapped at 80 characters.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	wname, wdef := 0, 0
	for _, f := range flags {
		if len(f.Name) > wname {
			wname = len(f.Name)
		}
		if len(f.DefValue) > wdef {
			wdef = len(f.DefValue)
		}
	}
	wdesc := 80 - wname - wdef - 7
	if wdesc < 20 {
		wdesc = 20
	}
	namefmt := fmt.Sprintf("  -%%-%ds ", wname)
	deffmt := fmt.Sprintf("%%-%ds ", wdef+2)
	lpad := strings.Repeat(" ", wname+wdef+7)
	for _, f := range flags {
		fmt.Fprintf(w, namefmt, f.Name)
		def := ""
		if f.DefValue != "" && f.DefValue != "false" {
			def = "(" + f.DefValue + ")"
		}
		fmt.Fprintf(w, deffmt, def)
		lines := wrap(f.Usage, wdesc)
		for i, line := range lines {
			if i > 0 {
				fmt.Fprint(w, lpad)
			}
			fmt.Fprintln(w, line)
		}
		if len(lines) == 0 {
			fmt.Fprintln(w)
		}
	}
}

func wrap(s string, width int) []string {
	var ret []string
	for len(s) > width {
		cut := strings.LastIndexAny(s[:width], " \n")
		if cut <= 0 {
			cut = width
		}
		ret = append(ret, s[:cut])
		s = strings.TrimLeft(s[cut:], " \n")
	}
	if s != "" {
		ret = append(ret, s)
	}
	return ret
}
