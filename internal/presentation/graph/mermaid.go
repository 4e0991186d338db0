package graph

import (
	"fmt"
	"strings"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
)

// Overlay contains conversation state to highlight on the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow definition.
// Shapes:
// - Initial node: ((Circle))
// - Terminal node: [[Subroutine]]
// - Default: [Rectangle]
// Edge actions become labelled arrows; node actions are listed in the label.
func GenerateMermaid(def domain.FlowDefinition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range def.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == def.Initial:
			opener, closer = "((", "))"
		case node.IsTerminal():
			opener, closer = "[[", "]]"
		}

		label := node.ID
		var local []string
		for _, a := range node.Actions {
			if !a.IsEdge() {
				local = append(local, a.Name+"()")
			}
		}
		if len(local) > 0 {
			label += " <br/> " + strings.Join(local, ", ")
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(label), closer)

		for _, a := range node.Actions {
			if !a.IsEdge() {
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escapeLabel(a.Name), sanitizeMermaidID(a.Target))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
