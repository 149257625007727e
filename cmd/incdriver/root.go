package main

import (
	"github.com/spf13/cobra"

	"incdriver/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "incdriver",
	Short: "incdriver - incremental compilation core of a compiler driver",
	Long: `incdriver decides, given a set of source inputs and a previous build's
artifacts, which translation units must be recompiled, which binary module
dependencies must be rebuilt, and in what order the resulting jobs may run.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("incdriver version {{.Version}}\n")
}
