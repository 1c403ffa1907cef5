// Package config loads runtime settings for agent-memory.
//
// Settings come from AGENT_* environment variables, an optional YAML file
// under ~/.agent-memory-mcp/config, and CLI flags bound by the caller. They
// are read once at startup; nothing here touches the disk beyond reading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/agent-memory/internal/graph"
	"github.com/HendryAvila/agent-memory/internal/project"
	"github.com/spf13/viper"
)

// Keys understood by Load.
const (
	KeyProjectID      = "project_id"
	KeyMemoryPath     = "memory.path"
	KeyMemoryLocal    = "memory.local"
	KeyEmbedder       = "memory.embedder"
	KeyEmbedModel     = "memory.embed_model"
	KeyOllamaURL      = "memory.ollama_url"
	KeyOpenAIKey      = "memory.openai_api_key"
	KeySummaryLength  = "memory.summary_length"
	KeySearchLimit    = "memory.search_limit"
	KeyLogLevel       = "log.level"
	KeyLogFile        = "log.file"
	KeyImpactMedium   = "impact.medium"
	KeyImpactHigh     = "impact.high"
	KeyImpactEscalate = "impact.depth_escalation"
)

const (
	localStorageDir    = ".agent-memory"
	globalStorageDir   = ".agent-chromadb"
	appDir             = ".agent-memory-mcp"
	defaultSummaryLen  = 200
	defaultSearchLimit = 5

	// LogFileOff disables the log file when set as log.file.
	LogFileOff = "off"
)

// Embedder names accepted by memory.embedder.
const (
	EmbedderHash   = "hash"
	EmbedderOllama = "ollama"
	EmbedderOpenAI = "openai"
)

// Config is the resolved runtime configuration for one process.
type Config struct {
	Project       project.ID
	WorkDir       string
	StorageRoot   string
	Embedder      string
	EmbedModel    string
	OllamaURL     string
	OpenAIKey     string
	SummaryLength int
	SearchLimit   int
	LogLevel      string
	LogFile       string
	Risk          graph.RiskPolicy
}

// NamespaceDir is the directory holding every collection of the project.
func (c *Config) NamespaceDir() string {
	return filepath.Join(c.StorageRoot, c.Project.String())
}

// New returns a viper instance with defaults and environment binding set up.
// The caller may bind flags on it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyEmbedder, EmbedderHash)
	v.SetDefault(KeyOllamaURL, "http://localhost:11434/api")
	v.SetDefault(KeySummaryLength, defaultSummaryLen)
	v.SetDefault(KeySearchLimit, defaultSearchLimit)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyImpactMedium, graph.DefaultRiskPolicy.Medium)
	v.SetDefault(KeyImpactHigh, graph.DefaultRiskPolicy.High)
	v.SetDefault(KeyImpactEscalate, graph.DefaultRiskPolicy.DepthEscalation)

	_ = v.BindEnv(KeyOpenAIKey, "AGENT_MEMORY_OPENAI_API_KEY", "OPENAI_API_KEY")
	return v
}

// ReadFile merges the YAML config file into v. An explicit path must exist;
// the default location is optional.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, appDir, "config", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration for a process started in dir.
func Load(v *viper.Viper, dir string) (*Config, error) {
	cfg := &Config{
		WorkDir:       dir,
		Embedder:      strings.ToLower(v.GetString(KeyEmbedder)),
		EmbedModel:    v.GetString(KeyEmbedModel),
		OllamaURL:     v.GetString(KeyOllamaURL),
		OpenAIKey:     v.GetString(KeyOpenAIKey),
		SummaryLength: v.GetInt(KeySummaryLength),
		SearchLimit:   v.GetInt(KeySearchLimit),
		LogLevel:      v.GetString(KeyLogLevel),
		Risk: graph.RiskPolicy{
			Medium:          v.GetInt(KeyImpactMedium),
			High:            v.GetInt(KeyImpactHigh),
			DepthEscalation: v.GetInt(KeyImpactEscalate),
		},
	}

	switch cfg.Embedder {
	case EmbedderHash, EmbedderOllama, EmbedderOpenAI:
	default:
		return nil, fmt.Errorf("config: unknown embedder %q: must be one of: hash, ollama, openai", cfg.Embedder)
	}
	if cfg.Embedder == EmbedderOpenAI && cfg.OpenAIKey == "" {
		return nil, errors.New("config: the openai embedder needs an API key (AGENT_MEMORY_OPENAI_API_KEY or OPENAI_API_KEY)")
	}
	if err := cfg.Risk.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.SummaryLength <= 0 {
		cfg.SummaryLength = defaultSummaryLen
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}

	cfg.Project = project.NewResolver(dir).Resolve(v.GetString(KeyProjectID))

	root, err := storageRoot(v, dir)
	if err != nil {
		return nil, err
	}
	cfg.StorageRoot = root

	switch lf := v.GetString(KeyLogFile); {
	case lf == LogFileOff:
	case lf != "":
		cfg.LogFile = lf
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			break
		}
		cfg.LogFile = filepath.Join(home, appDir, "logs", cfg.Project.String()+".log")
	}
	return cfg, nil
}

func storageRoot(v *viper.Viper, dir string) (string, error) {
	if p := v.GetString(KeyMemoryPath); p != "" {
		return filepath.Abs(p)
	}
	local := filepath.Join(dir, localStorageDir)
	if v.GetBool(KeyMemoryLocal) {
		return local, nil
	}
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: no storage root: set %s or AGENT_MEMORY_PATH: %w", KeyMemoryPath, err)
	}
	return filepath.Join(home, globalStorageDir), nil
}
