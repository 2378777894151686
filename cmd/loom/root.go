package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom is a workflow graph engine",
	Long:  `Loom keeps a live, editable view of workflow graphs: nodes placed on a grid, directed connections between them, and a change feed that keeps every editor in sync.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8460", "Base URL of the loom service")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
