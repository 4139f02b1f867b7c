package cmd

import (
	"fmt"
	"os"
	"strings"
)

type command struct {
	name, desc string
	main       func(args []string)
}

// commands in registration order
var commands []*command

func Register(name, desc string, main func(args []string)) {
	commands = append(commands, &command{name, desc, main})
}

func lookup(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

func usage() {
	width := 0
	for _, c := range commands {
		if len(c.name) > width {
			width = len(c.name)
		}
	}
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "%-*s | %s\n", width, c.name, c.desc)
	}
	fmt.Fprintf(os.Stderr, "\nExample: %s bootxnu -kernel kernelcache -dt DeviceTree.n71ap 0x10000000 0 0 0 0x12000000 0\n\n", os.Args[0])
}

// Main dispatches os.Args[1] to a registered command. The command sees its
// own name as "prog name" in args[0].
func Main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	c := lookup(os.Args[1])
	if c == nil {
		fmt.Fprintf(os.Stderr, "Command '%s' not found.\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	c.main(append([]string{strings.Join(os.Args[:2], " ")}, os.Args[2:]...))
}
