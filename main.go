package main

import (
	"os"

	"github.com/WonderMr/agents/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
