package main

import (
	"os"

	"bharatconnect/cmd/bharatctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
