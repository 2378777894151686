package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	mermaidgraph "github.com/loomengine/loom/internal/presentation/graph"
	"github.com/loomengine/loom/internal/presentation/palette"
	"github.com/loomengine/loom/pkg/adapters/rest"
	"github.com/loomengine/loom/pkg/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <workflow-id>",
	Short: "Print a workflow's nodes and connections",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		baseURL, _ := cmd.Flags().GetString("server")
		mermaid, _ := cmd.Flags().GetBool("mermaid")
		workflowID := args[0]

		client := rest.NewClient(baseURL)
		store := graph.NewStore(client, workflowID)
		if err := store.Refresh(cmd.Context(), graph.AllScopes...); err != nil {
			fmt.Printf("Error loading workflow: %v\n", err)
			os.Exit(1)
		}

		if mermaid {
			fmt.Print(mermaidgraph.GenerateMermaid(store.Nodes(), store.Connections(), store.Catalog(), nil))
			return
		}

		desc := store.Descriptor()
		fmt.Printf("workflow %s: %d nodes, %d connections (rev %d)\n\n",
			desc.WorkflowID, desc.NodeCount, desc.ConnectionCount, desc.Revision)

		nodes := store.Nodes()
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
		for _, n := range nodes {
			name := n.CheckpointName
			if name == "" {
				name = n.ModuleType
			}
			fmt.Printf("  %-8s (%2d,%2d)  %s\n", n.ID, n.Position.Col, n.Position.Row,
				palette.Label(n.ModuleType, name))
		}

		conns := store.Connections()
		sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
		if len(conns) > 0 {
			fmt.Println()
		}
		for _, c := range conns {
			fmt.Printf("  %-8s %s:%s -> %s:%s\n", c.ID,
				c.SourceNodeID, c.SourcePort, c.TargetNodeID, c.TargetPort)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("mermaid", false, "Emit Mermaid flowchart syntax instead of the plain listing")
}
