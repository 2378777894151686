package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomengine/loom/pkg/adapters/rest"
	"github.com/loomengine/loom/pkg/graph"
)

var contextCmd = &cobra.Command{
	Use:   "context <workflow-id> <node-id>",
	Short: "Show a node's direct predecessors and successors",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		baseURL, _ := cmd.Flags().GetString("server")
		workflowID, nodeID := args[0], args[1]

		client := rest.NewClient(baseURL)
		store := graph.NewStore(client, workflowID)
		if err := store.Refresh(cmd.Context(), graph.ScopeNodes, graph.ScopeConnections); err != nil {
			fmt.Printf("Error loading workflow: %v\n", err)
			os.Exit(1)
		}
		if _, ok := store.Node(nodeID); !ok {
			fmt.Printf("Node %q not found in workflow %q\n", nodeID, workflowID)
			os.Exit(1)
		}

		nodeCtx := graph.NewResolver(store).Context(nodeID)
		fmt.Printf("node: %s\n", nodeCtx.NodeID)
		printNeighbors("predecessors", nodeCtx.Predecessors)
		printNeighbors("successors", nodeCtx.Successors)
	},
}

func printNeighbors(label string, ids []string) {
	fmt.Printf("%s:\n", label)
	if len(ids) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
}

func init() {
	rootCmd.AddCommand(contextCmd)
}
