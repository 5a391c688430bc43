package main

import (
	"os"

	"github.com/saikarthik/stockpilot/backend/cmd/stockpilot/commands"
)

// main is the entry point for the StockPilot CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
