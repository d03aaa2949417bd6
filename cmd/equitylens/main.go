package main

import (
	"os"

	"github.com/wonny/equitylens/cmd/equitylens/commands"
)

// main is the entry point for the EquityLens CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/equitylens [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
