// Command incdriver is the thin CLI entry point wiring configuration,
// logging, and internal/driver together. Per §1's non-goals ("top-level
// CLI surface") planning semantics live entirely in internal/...; this
// package only parses flags and calls into the library.
package main

import (
	"os"

	"incdriver/internal/logging"
)

func main() {
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.InfoLevel})

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
