package main

import (
	"io"
	"os"

	"github.com/paclair/paclair/cmd/paclair/analyse"
	"github.com/paclair/paclair/cmd/paclair/internal/cmd"
	"github.com/paclair/paclair/cmd/paclair/push"
	"github.com/paclair/paclair/cmd/paclair/remove"
)

func run(args []string, stdout, stderr io.Writer) int {
	return cmd.Run(args, stdout, stderr, []cmd.CommandBuilder{
		push.Command,
		analyse.Command,
		remove.Command,
	})
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
