package main

import (
	"os"

	"tavern-client/cmd/tavern/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
