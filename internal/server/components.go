package server

import (
	"fmt"

	"github.com/HendryAvila/agent-memory/internal/briefing"
	"github.com/HendryAvila/agent-memory/internal/config"
	"github.com/HendryAvila/agent-memory/internal/docs"
	"github.com/HendryAvila/agent-memory/internal/graph"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/memory"
	"github.com/HendryAvila/agent-memory/internal/store"
	"github.com/HendryAvila/agent-memory/internal/tasks"
	"github.com/charmbracelet/log"
)

// embedCacheBytes bounds the query embedding cache used for remote embedders.
const embedCacheBytes = 32 << 20

// Components holds every service of one project namespace. The MCP server
// and the CLI subcommands share it.
type Components struct {
	Config        *config.Config
	Store         *store.Store
	Memories      *memory.Service
	Conversations *memory.Conversations
	Tasks         *tasks.Ledger
	Graph         *graph.Graph
	Docs          *docs.Composer
	Briefing      *briefing.Builder

	closers []func()
}

// Build creates the services for cfg. No storage is touched until the first
// operation runs.
func Build(cfg *config.Config, logger *log.Logger) (*Components, error) {
	logger = logging.OrDiscard(logger)

	embed, name, err := store.Embedder(cfg.Embedder, cfg.EmbedModel, cfg.OllamaURL, cfg.OpenAIKey)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	c := &Components{Config: cfg}
	if cfg.Embedder != config.EmbedderHash {
		cached, closeCache, err := store.CachedEmbedding(embed, embedCacheBytes)
		if err != nil {
			return nil, err
		}
		embed = cached
		c.closers = append(c.closers, closeCache)
	}

	c.Store = store.Open(store.Config{
		Dir:          cfg.NamespaceDir(),
		Embed:        embed,
		EmbedderName: name,
		Logger:       logger.WithPrefix("store"),
	})
	c.closers = append(c.closers, func() {
		if err := c.Store.Close(); err != nil {
			logger.Warn("store close", "err", err)
		}
	})

	project := cfg.Project.String()
	c.Memories = memory.NewService(c.Store, cfg.SummaryLength, logger.WithPrefix("memory"))
	c.Conversations = memory.NewConversations(c.Store, logger.WithPrefix("memory"))
	c.Tasks = tasks.NewLedger(c.Store, logger.WithPrefix("tasks"))
	c.Graph = graph.New(c.Store, cfg.Risk, logger.WithPrefix("graph"))
	c.Docs = docs.NewComposer(c.Store, project, logger.WithPrefix("docs"))
	c.Briefing = &briefing.Builder{
		Memories:      c.Memories,
		Conversations: c.Conversations,
		Tasks:         c.Tasks,
	}
	return c, nil
}

// Close releases the store and the embedding cache, newest first.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
