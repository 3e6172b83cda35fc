package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "recluster",
	Short:        "Name, consolidate and evolve note clusters into tracked concepts",
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newRunCmd(), newConceptsCmd())
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
