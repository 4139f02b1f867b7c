package main

import (
	"github.com/lunixbochs/bootxnu/go/cmd"

	_ "github.com/lunixbochs/bootxnu/go/cmd/bootxnu"
	_ "github.com/lunixbochs/bootxnu/go/cmd/dt"
)

func main() { cmd.Main() }
