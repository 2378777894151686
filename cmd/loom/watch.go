package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomengine/loom/internal/cli"
)

var watchCmd = &cobra.Command{
	Use:   "watch <workflow-id>",
	Short: "Tail a workflow's change feed",
	Long:  `Subscribes to a workflow's websocket change feed and prints each event as it arrives. Reconnects automatically if the feed drops.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		baseURL, _ := cmd.Flags().GetString("server")
		verbose, _ := cmd.Flags().GetBool("verbose")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		if err := cli.RunWatch(sigCtx, cli.WatchOptions{
			BaseURL:    baseURL,
			WorkflowID: args[0],
			Verbose:    verbose,
		}); err != nil {
			fmt.Printf("Watch failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
