package main

import (
	"os"

	"github.com/capitolsignal/backend/cmd/signalctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
