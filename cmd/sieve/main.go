package main

import (
	"os"

	"github.com/wonny/sieve/cmd/sieve/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
