package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/loomengine/loom/internal/presentation/palette"
	"github.com/loomengine/loom/pkg/adapters/rest"
	"github.com/loomengine/loom/pkg/domain"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the processing-module catalog",
	Long:  `Fetches the module catalog from the service and renders each entry with its ports and description.`,
	Run: func(cmd *cobra.Command, args []string) {
		baseURL, _ := cmd.Flags().GetString("server")

		client := rest.NewClient(baseURL)
		modules, err := client.Modules(cmd.Context())
		if err != nil {
			fmt.Printf("Error fetching modules: %v\n", err)
			os.Exit(1)
		}
		sort.Slice(modules, func(i, j int) bool { return modules[i].Type < modules[j].Type })

		renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())
		for _, m := range modules {
			fmt.Println(palette.Label(m.Type, m.DisplayName))
			fmt.Printf("  type: %s  inputs: %s  outputs: %s\n",
				m.Type, portNames(m.Inputs), portNames(m.Outputs))
			if m.Description != "" && renderer != nil {
				if out, err := renderer.Render(m.Description); err == nil {
					fmt.Print(out)
				}
			}
		}
	},
}

func portNames(specs []domain.PortSpec) string {
	if len(specs) == 0 {
		return "-"
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
