// Package graph implements the Architecture Graph: typed nodes and
// relationships persisted in the Collection Store, with topology queries
// answered by a graph view rebuilt from the store on every call.
package graph

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/HendryAvila/agent-memory/internal/apperr"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// --- Node type enum ---

// NodeType is the closed set of architecture element kinds.
type NodeType string

const (
	NodeAPI       NodeType = "api"
	NodeScreen    NodeType = "screen"
	NodeJourney   NodeType = "journey"
	NodeComponent NodeType = "component"
	NodeService   NodeType = "service"
	NodeDatabase  NodeType = "database"
	NodeQueue     NodeType = "queue"
	NodeEvent     NodeType = "event"
	NodeModel     NodeType = "model"
)

// NodeTypes lists every node type in display order.
var NodeTypes = []NodeType{
	NodeAPI, NodeScreen, NodeJourney, NodeComponent, NodeService,
	NodeDatabase, NodeQueue, NodeEvent, NodeModel,
}

// ParseNodeType validates s as a node type.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range NodeTypes {
		if t == known {
			return t, nil
		}
	}
	return "", apperr.Invalid("invalid node type %q: must be one of: %s", s, joinTypes(NodeTypes))
}

// --- Relationship enum ---

// Relationship is the closed set of edge kinds. An edge from A to B means A
// depends on B in the sense of the relationship (A calls B, A reads B).
type Relationship string

const (
	RelCalls     Relationship = "calls"
	RelUses      Relationship = "uses"
	RelDependsOn Relationship = "depends_on"
	RelPartOf    Relationship = "part_of"
	RelTriggers  Relationship = "triggers"
	RelReads     Relationship = "reads"
	RelWrites    Relationship = "writes"
	RelEmits     Relationship = "emits"
	RelConsumes  Relationship = "consumes"
)

// Relationships lists every relationship.
var Relationships = []Relationship{
	RelCalls, RelUses, RelDependsOn, RelPartOf, RelTriggers,
	RelReads, RelWrites, RelEmits, RelConsumes,
}

// ParseRelationship validates s as a relationship.
func ParseRelationship(s string) (Relationship, error) {
	r := Relationship(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Relationships {
		if r == known {
			return r, nil
		}
	}
	return "", apperr.Invalid("invalid relationship %q: must be one of: %s", s, joinRels(Relationships))
}

// --- Direction ---

// Direction selects which edges QueryRelationships returns.
type Direction string

const (
	DirIn   Direction = "in"
	DirOut  Direction = "out"
	DirBoth Direction = "both"
)

// ParseDirection accepts in/incoming, out/outgoing and both. Empty is both.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return DirBoth, nil
	case "in", "incoming":
		return DirIn, nil
	case "out", "outgoing":
		return DirOut, nil
	}
	return "", apperr.Invalid("invalid direction %q: must be one of: in, out, both", s)
}

// --- Records ---

var nodeIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_./-]*$`)

const maxNodeIDLen = 128

func validateNodeID(id string) error {
	if id == "" {
		return apperr.Invalid("node id is required")
	}
	if len(id) > maxNodeIDLen || !nodeIDRe.MatchString(id) {
		return apperr.Invalid("invalid node id %q: use letters, digits, '_', '.', '/', '-' (max %d)", id, maxNodeIDLen)
	}
	return nil
}

// Node is an architecture element.
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	Relationship Relationship   `json:"relationship"`
	Properties   map[string]any `json:"properties,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// EdgeID is the record id of the edge (from, to, rel).
func EdgeID(from, to string, rel Relationship) string {
	return fmt.Sprintf("edge:%s:%s:%s", from, to, rel)
}

// NodeParams holds the input for AddNode.
type NodeParams struct {
	ID         string
	Type       string
	Name       string
	Properties map[string]any
}

// NodeSummary is a node with its number of incident edges.
type NodeSummary struct {
	Node
	Connections int `json:"connections"`
}

// NodeDetail is a node with every incident edge.
type NodeDetail struct {
	Node     Node   `json:"node"`
	Outgoing []Edge `json:"outgoing"`
	Incoming []Edge `json:"incoming"`
}

// NodeHit is a node search result.
type NodeHit struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// Step is one hop of a path.
type Step struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Relationship Relationship `json:"relationship"`
}

// Path is a shortest route between two nodes.
type Path struct {
	Nodes  []string `json:"nodes"`
	Steps  []Step   `json:"steps"`
	Length int      `json:"length"`
}

// Dependent is a node affected by a change, with its distance from it.
type Dependent struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Type  NodeType `json:"type"`
	Depth int      `json:"depth"`
}

// Impact is the blast radius of changing one node.
type Impact struct {
	Node                  Node           `json:"node"`
	DirectlyDependent     []Dependent    `json:"directly_dependent"`
	TransitivelyDependent []Dependent    `json:"transitively_dependent"`
	TotalImpacted         int            `json:"total_impacted"`
	MaxDepth              int            `json:"max_depth"`
	ImpactedByType        map[string]int `json:"impacted_by_type"`
	Dependencies          int            `json:"dependencies"`
	RiskLevel             RiskLevel      `json:"risk_level"`
	Recommendation        string         `json:"recommendation"`
}

// Connected pairs a node id with its degree.
type Connected struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Connections int    `json:"connections"`
}

// Stats aggregates the graph.
type Stats struct {
	TotalNodes          int            `json:"total_nodes"`
	TotalEdges          int            `json:"total_edges"`
	NodesByType         map[string]int `json:"nodes_by_type"`
	EdgesByRelationship map[string]int `json:"edges_by_relationship"`
	OrphanedNodes       int            `json:"orphaned_nodes"`
	ConnectedComponents int            `json:"connected_components"`
	MostConnected       []Connected    `json:"most_connected"`
}

func joinTypes(ts []NodeType) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}

func joinRels(rs []Relationship) string {
	s := make([]string, len(rs))
	for i, r := range rs {
		s[i] = string(r)
	}
	return strings.Join(s, ", ")
}
