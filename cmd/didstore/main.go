package main

import (
	"os"

	"didstore/cmd/didstore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
