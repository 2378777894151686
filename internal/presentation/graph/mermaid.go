// Package graph renders a workflow graph as Mermaid flowchart syntax,
// for pasting into docs or issue trackers.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loomengine/loom/pkg/domain"
)

// Overlay highlights a selection on the rendered graph.
type Overlay struct {
	SelectedNode string
	Neighbors    []string
}

// GenerateMermaid produces a Mermaid flowchart from a workflow's nodes
// and connections. Shapes follow the module family:
//   - import modules (no inputs): [/Parallelogram/]
//   - export modules (no outputs): [\Parallelogram\]
//   - everything else: [Rectangle]
//
// Node labels show the checkpoint name when set, otherwise the module
// type. Overlay styling marks the selected node and its direct
// neighborhood.
func GenerateMermaid(nodes []domain.Node, conns []domain.Connection, catalog domain.Catalog, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	sorted := append([]domain.Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, node := range sorted {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		if m, ok := catalog.Lookup(node.ModuleType); ok {
			switch {
			case len(m.Inputs) == 0:
				opener, closer = "[/", "/]"
			case len(m.Outputs) == 0:
				opener, closer = `[\`, `\]`
			}
		}

		label := node.CheckpointName
		if label == "" {
			label = node.ModuleType
		}
		label = strings.ReplaceAll(label, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	sortedConns := append([]domain.Connection(nil), conns...)
	sort.Slice(sortedConns, func(i, j int) bool { return sortedConns[i].ID < sortedConns[j].ID })

	for _, c := range sortedConns {
		from := sanitizeMermaidID(c.SourceNodeID)
		to := sanitizeMermaidID(c.TargetNodeID)

		// annotate only non-standard port pairs; the default output→input
		// edge stays clean
		arrow := "-->"
		if c.SourcePort != domain.PortOutput || c.TargetPort != domain.PortInput {
			arrow = fmt.Sprintf("-- \"%s:%s\" -->", c.SourcePort, c.TargetPort)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, to))
	}

	if overlay != nil && overlay.SelectedNode != "" {
		sb.WriteString("\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef neighbor fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.SelectedNode)))

		seen := make(map[string]bool)
		for _, id := range overlay.Neighbors {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s neighbor;\n", safeID))
			}
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
