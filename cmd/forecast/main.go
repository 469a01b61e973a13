package main

import (
	"os"

	"github.com/marketoracle/forecast/cmd/forecast/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
