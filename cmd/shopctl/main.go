package main

import (
	"os"

	"github.com/psantana5/appworld/cmd/shopctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
