package memory

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/store"
	"github.com/charmbracelet/log"
)

const insertAttempts = 5

// Service stores and retrieves memories for one namespace.
type Service struct {
	store         *store.Store
	summaryLength int
	log           *log.Logger
}

// NewService creates a Service. summaryLength <= 0 uses DefaultSummaryLength.
func NewService(s *store.Store, summaryLength int, logger *log.Logger) *Service {
	if summaryLength <= 0 {
		summaryLength = DefaultSummaryLength
	}
	return &Service{store: s, summaryLength: summaryLength, log: logging.OrDiscard(logger)}
}

// Store saves content as a new memory.
func (s *Service) Store(ctx context.Context, content, category, tags string) (*Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Invalid("content is required")
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = DefaultCategory
	}

	meta := map[string]string{
		"category": category,
		"tags":     strings.Join(ExtractTags(tags, content), ","),
	}
	rec, err := insertWithRetry(ctx, s.store, store.Memories, "mem-", content, meta, s.log)
	if err != nil {
		return nil, err
	}
	m := fromRecord(rec)
	s.log.Info("memory stored", "id", m.ID, "category", category, "tags", len(m.Tags))
	return &m, nil
}

// Get returns the full memory with id.
func (s *Service) Get(ctx context.Context, id string) (*Memory, error) {
	rec, err := s.store.Get(ctx, store.Memories, id)
	if err != nil {
		return nil, err
	}
	m := fromRecord(rec)
	return &m, nil
}

// Search ranks memories by similarity to query.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	var filter store.Filter
	if c := strings.ToLower(strings.TrimSpace(opts.Category)); c != "" {
		filter = store.Filter{"category": c}
	}
	hits, err := s.store.Search(ctx, store.Memories, query, opts.Limit, filter)
	if err != nil {
		return nil, err
	}
	level := ParseDetailLevel(opts.Detail)
	out := make([]Hit, 0, len(hits))
	for i := range hits {
		m := fromRecord(&hits[i].Record)
		length := utf8.RuneCountInString(m.Content)
		m.Content = shape(m.Content, level, s.summaryLength)
		out = append(out, Hit{Memory: m, ContentLength: length, Score: hits[i].Score})
	}
	return out, nil
}

// Recent returns the newest memories first, optionally of one category.
// Content is summarized.
func (s *Service) Recent(ctx context.Context, category string, limit int) ([]Memory, error) {
	var filter store.Filter
	if c := strings.ToLower(strings.TrimSpace(category)); c != "" {
		filter = store.Filter{"category": c}
	}
	recs, err := s.store.List(ctx, store.Memories, filter, 0)
	if err != nil {
		return nil, err
	}
	out := []Memory{}
	for i := len(recs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		m := fromRecord(&recs[i])
		m.Content = Summarize(m.Content, s.summaryLength)
		out = append(out, m)
	}
	return out, nil
}

// Stats is the namespace overview returned by memory_stats.
type Stats struct {
	Storage            *store.Stats   `json:"storage"`
	MemoriesByCategory map[string]int `json:"memories_by_category"`
}

// Stats reports record counts for every collection plus memories per
// category.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.List(ctx, store.Memories, nil, 0)
	if err != nil {
		return nil, err
	}
	by := map[string]int{}
	for _, r := range recs {
		by[r.Metadata["category"]]++
	}
	return &Stats{Storage: st, MemoriesByCategory: by}, nil
}

func fromRecord(rec *store.Record) Memory {
	return Memory{
		ID:        rec.ID,
		Content:   rec.Content,
		Category:  rec.Metadata["category"],
		Tags:      splitTags(rec.Metadata["tags"]),
		CreatedAt: rec.CreatedAt,
	}
}

// insertWithRetry inserts a record under a fresh prefixed id, drawing a new
// id when the previous one is taken.
func insertWithRetry(ctx context.Context, s *store.Store, c store.Collection, prefix, content string, meta map[string]string, logger *log.Logger) (*store.Record, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		id := newID(prefix)
		rec, err := s.Insert(ctx, c, id, content, meta)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			logger.Warn("id collision, retrying", "collection", c, "id", id)
			continue
		}
		return rec, err
	}
	return nil, apperr.Exists(string(c), prefix+"*")
}
