package main

import (
	"os"

	"github.com/concilia/concilia/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
