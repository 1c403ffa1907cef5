package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/agent-memory/internal/apperr"
)

// shapes wraps a quoted label in the Mermaid shape for each node type.
var shapes = map[NodeType][2]string{
	NodeAPI:       {`["`, `"]`},
	NodeScreen:    {`("`, `")`},
	NodeJourney:   {`(["`, `"])`},
	NodeComponent: {`["`, `"]`},
	NodeService:   {`[["`, `"]]`},
	NodeDatabase:  {`[("`, `")]`},
	NodeQueue:     {`>"`, `"]`},
	NodeEvent:     {`{{"`, `"}}`},
	NodeModel:     {`[/"`, `"/]`},
}

var classDefs = map[NodeType]string{
	NodeAPI:       "fill:#e1f5fe,stroke:#0277bd",
	NodeScreen:    "fill:#f3e5f5,stroke:#6a1b9a",
	NodeJourney:   "fill:#fff8e1,stroke:#f9a825",
	NodeComponent: "fill:#e8f5e9,stroke:#2e7d32",
	NodeService:   "fill:#ede7f6,stroke:#4527a0",
	NodeDatabase:  "fill:#fbe9e7,stroke:#d84315",
	NodeQueue:     "fill:#e0f2f1,stroke:#00695c",
	NodeEvent:     "fill:#fce4ec,stroke:#ad1457",
	NodeModel:     "fill:#eceff1,stroke:#37474f",
}

var typeHeadings = map[NodeType]string{
	NodeAPI:       "APIs",
	NodeScreen:    "Screens",
	NodeJourney:   "User Journeys",
	NodeComponent: "Components",
	NodeService:   "Services",
	NodeDatabase:  "Databases",
	NodeQueue:     "Queues",
	NodeEvent:     "Events",
	NodeModel:     "Data Models",
}

var mermaidUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// mermaidLabel escapes node names for a quoted Mermaid label. Line breaks
// become <br/> and shape delimiters become entity codes so a name can never
// close its own node.
var mermaidLabel = strings.NewReplacer(
	"\r\n", "<br/>",
	"\n", "<br/>",
	"\r", "<br/>",
	"#", "#35;",
	`"`, "#quot;",
	"[", "#91;",
	"]", "#93;",
	"(", "#40;",
	")", "#41;",
	"{", "#123;",
	"}", "#125;",
)

// Diagram is a rendered Mermaid flowchart and the ids of the nodes it draws.
type Diagram struct {
	Source string
	Nodes  []string
}

func newDiagram(v *View, include []string) *Diagram {
	return &Diagram{Source: renderMermaid(v, include), Nodes: include}
}

// Mermaid renders the graph as a Mermaid flowchart. With a focus node only
// nodes within depth hops of it are drawn; depth <= 0 means 2.
func (g *Graph) Mermaid(ctx context.Context, focus string, depth int) (*Diagram, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	include := v.IDs()
	if focus = strings.TrimSpace(focus); focus != "" {
		if !v.Has(focus) {
			return nil, apperr.NotFound("node", focus)
		}
		if depth <= 0 {
			depth = 2
		}
		include = v.Neighbourhood(focus, depth)
	}
	return newDiagram(v, include), nil
}

// MermaidOf renders only the given nodes and the edges between them. Unknown
// ids are skipped; if none is known the result is NotFound.
func (g *Graph) MermaidOf(ctx context.Context, ids []string) (*Diagram, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var include []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if v.Has(id) && !seen[id] {
			seen[id] = true
			include = append(include, id)
		}
	}
	if len(include) == 0 {
		return nil, apperr.NotFound("node", strings.Join(ids, ", "))
	}
	return newDiagram(v, include), nil
}

func renderMermaid(v *View, include []string) string {
	keep := make(map[string]bool, len(include))
	for _, id := range include {
		keep[id] = true
	}
	names := mermaidIDs(include)

	var b strings.Builder
	b.WriteString("graph TD\n")
	used := map[NodeType]bool{}
	for _, id := range include {
		n, _ := v.Node(id)
		shape, ok := shapes[n.Type]
		if !ok {
			shape = shapes[NodeComponent]
		}
		label := mermaidLabel.Replace(n.Name)
		fmt.Fprintf(&b, "    %s%s%s%s:::%s\n", names[id], shape[0], label, shape[1], n.Type)
		used[n.Type] = true
	}
	for _, e := range v.Edges() {
		if keep[e.From] && keep[e.To] {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", names[e.From], e.Relationship, names[e.To])
		}
	}
	for _, t := range NodeTypes {
		if used[t] {
			fmt.Fprintf(&b, "    classDef %s %s\n", t, classDefs[t])
		}
	}
	return b.String()
}

// mermaidIDs maps node ids to identifiers Mermaid accepts. Ids that collide
// after sanitizing get a numeric suffix.
func mermaidIDs(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	taken := map[string]bool{}
	for _, id := range ids {
		base := "n_" + mermaidUnsafe.ReplaceAllString(id, "_")
		name := base
		for i := 2; taken[name]; i++ {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		taken[name] = true
		out[id] = name
	}
	return out
}

// ExportArchitecture renders the whole graph as a Markdown document. When
// outputPath is non-empty the document is also written there.
func (g *Graph) ExportArchitecture(ctx context.Context, outputPath string) (string, error) {
	v, err := g.view(ctx)
	if err != nil {
		return "", err
	}
	doc := renderArchitecture(v)
	if outputPath != "" {
		if err := writeFile(outputPath, doc); err != nil {
			return "", err
		}
		g.log.Info("architecture exported", "path", outputPath)
	}
	return doc, nil
}

func renderArchitecture(v *View) string {
	var b strings.Builder
	b.WriteString("# Architecture Map\n\n")
	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- **Nodes**: %d\n", len(v.IDs()))
	fmt.Fprintf(&b, "- **Relationships**: %d\n", len(v.Edges()))
	fmt.Fprintf(&b, "- **Connected components**: %d\n", v.Components())
	fmt.Fprintf(&b, "- **Orphaned nodes**: %d\n\n", len(v.Orphans()))

	byType := map[NodeType][]Node{}
	for _, id := range v.IDs() {
		n, _ := v.Node(id)
		byType[n.Type] = append(byType[n.Type], n)
	}
	for _, t := range NodeTypes {
		nodes := byType[t]
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", typeHeadings[t])
		for _, n := range nodes {
			writeNodeSection(&b, v, n)
		}
	}

	b.WriteString("## Visual Diagram\n\n```mermaid\n")
	b.WriteString(renderMermaid(v, v.IDs()))
	b.WriteString("```\n")
	return b.String()
}

func writeNodeSection(b *strings.Builder, v *View, n Node) {
	fmt.Fprintf(b, "### %s\n\n", n.Name)
	fmt.Fprintf(b, "- **ID**: `%s`\n", n.ID)
	fmt.Fprintf(b, "- **Connections**: %d\n", v.Degree(n.ID))
	if len(n.Properties) > 0 {
		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "- **%s**: %v\n", k, n.Properties[k])
		}
	}
	if out := v.Outgoing(n.ID); len(out) > 0 {
		b.WriteString("\n**Depends on:**\n")
		for _, e := range out {
			fmt.Fprintf(b, "- %s → `%s`\n", e.Relationship, e.To)
		}
	}
	if in := v.Incoming(n.ID); len(in) > 0 {
		b.WriteString("\n**Used by:**\n")
		for _, e := range in {
			fmt.Fprintf(b, "- `%s` %s\n", e.From, e.Relationship)
		}
	}
	b.WriteString("\n")
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
