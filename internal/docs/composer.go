package docs

import (
	"context"
	"strings"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/store"
	"github.com/charmbracelet/log"
)

// Composer stores documentation sections and renders them as AGENT.md.
type Composer struct {
	store   *store.Store
	project string
	log     *log.Logger
}

// NewComposer creates a Composer for project over s.
func NewComposer(s *store.Store, project string, logger *log.Logger) *Composer {
	return &Composer{store: s, project: project, log: logging.OrDiscard(logger)}
}

func recordID(t SectionType) string { return "doc:" + string(t) }

// StoreSection overwrites the section of type typ. An empty title defaults
// to the type's heading and runs of whitespace in the title collapse to one
// space. created reports whether the section is new.
func (c *Composer) StoreSection(ctx context.Context, typ, title, content string, tags []string) (sec *Section, created bool, err error) {
	t, err := ParseSectionType(typ)
	if err != nil {
		return nil, false, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false, apperr.Invalid("content is required")
	}
	if strings.Contains(content, closeMarker) {
		return nil, false, apperr.Invalid("content must not contain %q", closeMarker)
	}
	// Titles are written on one heading line.
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		title = t.Heading()
	}
	meta := map[string]string{
		"section_type": string(t),
		"title":        title,
		"tags":         strings.Join(cleanTags(tags), ","),
	}
	rec, created, err := c.store.Put(ctx, store.Documentation, recordID(t), content, meta)
	if err != nil {
		return nil, false, err
	}
	c.log.Info("doc section stored", "type", t, "created", created)
	return fromRecord(rec), created, nil
}

// GetSection returns the section of type typ.
func (c *Composer) GetSection(ctx context.Context, typ string) (*Section, error) {
	t, err := ParseSectionType(typ)
	if err != nil {
		return nil, err
	}
	rec, err := c.store.Get(ctx, store.Documentation, recordID(t))
	if err != nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// ListSections returns every stored section in export order.
func (c *Composer) ListSections(ctx context.Context) ([]Section, error) {
	recs, err := c.store.List(ctx, store.Documentation, nil, 0)
	if err != nil {
		return nil, err
	}
	byType := make(map[SectionType]*Section, len(recs))
	for i := range recs {
		s := fromRecord(&recs[i])
		byType[s.Type] = s
	}
	out := []Section{}
	for _, t := range SectionTypes {
		if s, ok := byType[t]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Search ranks sections by similarity to query.
func (c *Composer) Search(ctx context.Context, query string, limit int) ([]SectionHit, error) {
	if limit <= 0 {
		limit = 10
	}
	hits, err := c.store.Search(ctx, store.Documentation, query, limit, nil)
	if err != nil {
		return nil, err
	}
	out := make([]SectionHit, 0, len(hits))
	for i := range hits {
		out = append(out, SectionHit{Section: *fromRecord(&hits[i].Record), Score: hits[i].Score})
	}
	return out, nil
}

func fromRecord(rec *store.Record) *Section {
	tags := []string{}
	if t := rec.Metadata["tags"]; t != "" {
		tags = strings.Split(t, ",")
	}
	return &Section{
		Type:      SectionType(rec.Metadata["section_type"]),
		Title:     rec.Metadata["title"],
		Content:   rec.Content,
		Tags:      tags,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && !strings.Contains(t, ",") {
			out = append(out, t)
		}
	}
	return out
}
