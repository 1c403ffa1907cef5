package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "My Service")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	v := New()
	v.Set(KeyMemoryPath, filepath.Join(dir, "store"))

	cfg, err := Load(v, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder != EmbedderHash {
		t.Errorf("Embedder = %q, want hash", cfg.Embedder)
	}
	if cfg.SummaryLength != 200 {
		t.Errorf("SummaryLength = %d, want 200", cfg.SummaryLength)
	}
	if cfg.SearchLimit != 5 {
		t.Errorf("SearchLimit = %d, want 5", cfg.SearchLimit)
	}
	if cfg.Risk.Medium != 4 || cfg.Risk.High != 11 {
		t.Errorf("Risk = %+v, want medium 4 high 11", cfg.Risk)
	}
	if cfg.NamespaceDir() != filepath.Join(dir, "store", cfg.Project.String()) {
		t.Errorf("NamespaceDir = %q", cfg.NamespaceDir())
	}
}

func TestLoad_ExplicitProject(t *testing.T) {
	dir := t.TempDir()
	v := New()
	v.Set(KeyProjectID, "Alpha Project")
	v.Set(KeyMemoryPath, dir)

	cfg, err := Load(v, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project != "alpha-project" {
		t.Errorf("Project = %q, want alpha-project", cfg.Project)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_PROJECT_ID", "from-env")
	t.Setenv("AGENT_MEMORY_PATH", dir)
	t.Setenv("AGENT_IMPACT_HIGH", "20")

	cfg, err := Load(New(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project != "from-env" {
		t.Errorf("Project = %q, want from-env", cfg.Project)
	}
	if cfg.StorageRoot != dir {
		t.Errorf("StorageRoot = %q, want %q", cfg.StorageRoot, dir)
	}
	if cfg.Risk.High != 20 {
		t.Errorf("Risk.High = %d, want 20", cfg.Risk.High)
	}
}

func TestLoad_LocalStorageDir(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, localStorageDir)
	if err := os.Mkdir(local, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(New(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageRoot != local {
		t.Errorf("StorageRoot = %q, want %q", cfg.StorageRoot, local)
	}
}

func TestLoad_LocalFlagDoesNotCreate(t *testing.T) {
	dir := t.TempDir()
	v := New()
	v.Set(KeyMemoryLocal, true)

	cfg, err := Load(v, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageRoot != filepath.Join(dir, localStorageDir) {
		t.Errorf("StorageRoot = %q", cfg.StorageRoot)
	}
	if _, err := os.Stat(cfg.StorageRoot); !os.IsNotExist(err) {
		t.Errorf("Load created %s", cfg.StorageRoot)
	}
}

func TestLoad_RejectsUnknownEmbedder(t *testing.T) {
	v := New()
	v.Set(KeyEmbedder, "word2vec")
	v.Set(KeyMemoryPath, t.TempDir())
	_, err := Load(v, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "unknown embedder") {
		t.Fatalf("err = %v, want unknown embedder", err)
	}
}

func TestLoad_RejectsInvertedRiskBands(t *testing.T) {
	v := New()
	v.Set(KeyImpactMedium, 10)
	v.Set(KeyImpactHigh, 5)
	v.Set(KeyMemoryPath, t.TempDir())
	if _, err := Load(v, t.TempDir()); err == nil {
		t.Fatal("expected error for medium >= high")
	}
}

func TestLoad_LogFileOff(t *testing.T) {
	v := New()
	v.Set(KeyLogFile, LogFileOff)
	v.Set(KeyMemoryPath, t.TempDir())
	cfg, err := Load(v, t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
}

func TestLoad_LogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	tests := []struct {
		name  string
		env   string
		value string
		want  string
	}{
		{"unset uses the default", "", "", filepath.Join(home, appDir, "logs", "demo.log")},
		{"explicit path", "", filepath.Join(home, "custom.log"), filepath.Join(home, "custom.log")},
		{"off from env", LogFileOff, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AGENT_LOG_FILE", tt.env)
			v := New()
			v.Set(KeyProjectID, "demo")
			v.Set(KeyMemoryPath, home)
			if tt.value != "" {
				v.Set(KeyLogFile, tt.value)
			}
			cfg, err := Load(v, home)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.LogFile != tt.want {
				t.Errorf("LogFile = %q, want %q", cfg.LogFile, tt.want)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "memory:\n  summary_length: 120\nimpact:\n  medium: 2\n  high: 6\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	v.Set(KeyMemoryPath, t.TempDir())
	cfg, err := Load(v, t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SummaryLength != 120 || cfg.Risk.Medium != 2 || cfg.Risk.High != 6 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestReadFile_MissingExplicitPath(t *testing.T) {
	if err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
