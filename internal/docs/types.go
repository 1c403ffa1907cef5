// Package docs implements the Documentation Composer: one stored section per
// section type, assembled into an AGENT.md document and parsed back from one.
package docs

import (
	"strings"
	"time"

	"github.com/HendryAvila/agent-memory/internal/apperr"
)

// SectionType identifies a documentation section.
type SectionType string

const (
	SectionArchitecture    SectionType = "architecture"
	SectionAPI             SectionType = "api"
	SectionSetup           SectionType = "setup"
	SectionWorkflow        SectionType = "workflow"
	SectionDecisions       SectionType = "decisions"
	SectionTroubleshooting SectionType = "troubleshooting"
	SectionConventions     SectionType = "conventions"
	SectionTesting         SectionType = "testing"
)

// SectionTypes is the fixed export order.
var SectionTypes = []SectionType{
	SectionArchitecture, SectionAPI, SectionSetup, SectionWorkflow,
	SectionDecisions, SectionTroubleshooting, SectionConventions, SectionTesting,
}

var headings = map[SectionType]string{
	SectionArchitecture:    "Architecture",
	SectionAPI:             "API",
	SectionSetup:           "Setup",
	SectionWorkflow:        "Workflow",
	SectionDecisions:       "Decisions",
	SectionTroubleshooting: "Troubleshooting",
	SectionConventions:     "Conventions",
	SectionTesting:         "Testing",
}

// Heading is the H2 used for t in generated documents.
func (t SectionType) Heading() string { return headings[t] }

// ParseSectionType validates s as a section type.
func ParseSectionType(s string) (SectionType, error) {
	t := SectionType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := headings[t]; ok {
		return t, nil
	}
	names := make([]string, len(SectionTypes))
	for i, st := range SectionTypes {
		names[i] = string(st)
	}
	return "", apperr.Invalid("invalid section_type %q: must be one of: %s", s, strings.Join(names, ", "))
}

// sectionKeywords drives type guessing for foreign documents. The first
// matching entry wins.
var sectionKeywords = []struct {
	typ   SectionType
	words []string
}{
	{SectionArchitecture, []string{"architect", "design", "structure"}},
	{SectionAPI, []string{"api", "endpoint", "route"}},
	{SectionSetup, []string{"setup", "install", "config"}},
	{SectionWorkflow, []string{"workflow", "process", "flow"}},
	{SectionDecisions, []string{"decision", "choice", "why"}},
	{SectionTroubleshooting, []string{"trouble", "debug", "error", "fix"}},
	{SectionConventions, []string{"convention", "standard", "style"}},
	{SectionTesting, []string{"test", "spec", "verify"}},
}

// GuessSectionType maps a free-form heading to a section type, falling back
// to workflow.
func GuessSectionType(heading string) SectionType {
	h := strings.ToLower(heading)
	for _, kw := range sectionKeywords {
		for _, w := range kw.words {
			if strings.Contains(h, w) {
				return kw.typ
			}
		}
	}
	return SectionWorkflow
}

// Section is the current version of one documentation section.
type Section struct {
	Type      SectionType `json:"section_type"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Tags      []string    `json:"tags"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SectionHit is a documentation search result.
type SectionHit struct {
	Section
	Score float64 `json:"score"`
}

// ImportResult reports what ImportAgentMD stored.
type ImportResult struct {
	File     string        `json:"file"`
	Sections []SectionType `json:"sections"`
	// Lossless is true when the file carried section markers.
	Lossless bool `json:"lossless"`
}
