package models

import (
	"fmt"
	"io"
	"strings"

	"github.com/mgutz/ansi"
)

var chWarn = ansi.ColorCode("yellow+b:default")
var chDebug = ansi.ColorCode("black+h:default")
var chBanner = ansi.ColorCode("cyan+b:default")

type StreamConsole struct {
	Out     io.Writer
	Color   bool
	Verbose bool
}

func (c *StreamConsole) colorize(s, color string) string {
	if !c.Color {
		return s
	}
	// trailing newlines stay outside the escape
	body := strings.TrimRight(s, "\n")
	return color + body + ansi.Reset + s[len(body):]
}

func (c *StreamConsole) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, format, a...)
}

func (c *StreamConsole) Warnf(format string, a ...interface{}) {
	fmt.Fprint(c.Out, c.colorize("warning: "+fmt.Sprintf(format, a...), chWarn))
}

func (c *StreamConsole) Debugf(format string, a ...interface{}) {
	if c.Verbose {
		fmt.Fprint(c.Out, c.colorize(fmt.Sprintf(format, a...), chDebug))
	}
}

func (c *StreamConsole) Banner(s string) {
	fmt.Fprint(c.Out, c.colorize(s, chBanner))
}

// Banner prints s highlighted when the console supports it.
func Banner(c Console, s string) {
	if b, ok := c.(interface{ Banner(string) }); ok {
		b.Banner(s)
	} else {
		c.Printf("%s", s)
	}
}
