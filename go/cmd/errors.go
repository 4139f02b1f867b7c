package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// innermost error carrying a stack
func deepestStack(err error) stackTracer {
	var found stackTracer
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			found = st
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return found
}

// PrintError prints err followed by a table of the frames that raised it.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	st := deepestStack(err)
	if st == nil {
		return
	}
	var frames [][]string
	for _, f := range st.StackTrace() {
		fullpath := ""
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)

		tmp := strings.SplitN(fmt.Sprintf("%+s", f), "\n", 3)
		if len(tmp) == 2 {
			pathsplit := strings.Split(tmp[0], "/")
			method = pathsplit[len(pathsplit)-1]
			fullpath = strings.TrimSpace(tmp[1])
		}
		frames = append(frames, []string{fullpath, fileline, method})
		if method == "main.main" {
			break
		}
	}
	widths := make([]int, 3)
	for _, f := range frames {
		for i, s := range f {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}
	for _, f := range frames {
		for i := 0; i < 2; i++ {
			if widths[i] > 0 {
				fmt.Fprintf(w, "%s%s | ", f[i], strings.Repeat(" ", widths[i]-len(f[i])))
			}
		}
		fmt.Fprintf(w, "%s()\n", f[2])
	}
}
