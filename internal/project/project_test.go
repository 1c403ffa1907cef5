package project

import (
	"os"
	"path/filepath"
	"testing"
)

func noGit(string) (string, bool) { return "", false }

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"My Project", "my-project"},
		{"api.v2/service", "api-v2-service"},
		{`C:\work\repo`, "c-work-repo"},
		{"--weird__name--", "weird__name"},
		{"a  b", "a-b"},
		{"émoji✨ok", "émojiok"},
		{"Café", "café"},
		{"Проект 2", "проект-2"},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve_ExplicitWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte("marker\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Dir: dir, GitToplevel: noGit}
	if got := r.Resolve("Override Name"); got != "override-name" {
		t.Errorf("Resolve = %q, want override-name", got)
	}
}

func TestResolve_MarkerFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte("\n  Billing API  \nignored\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Dir: dir, GitToplevel: func(string) (string, bool) { return "/src/other", true }}
	if got := r.Resolve(""); got != "billing-api" {
		t.Errorf("Resolve = %q, want billing-api", got)
	}
}

func TestResolve_VCS(t *testing.T) {
	dir := t.TempDir()
	r := &Resolver{Dir: dir, GitToplevel: func(string) (string, bool) { return "/src/Shop.Front", true }}
	if got := r.Resolve(""); got != "shop-front" {
		t.Errorf("Resolve = %q, want shop-front", got)
	}
}

func TestResolve_DirectoryFallback(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Workspace One")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Dir: dir, GitToplevel: noGit}
	if got := r.Resolve(""); got != "workspace-one" {
		t.Errorf("Resolve = %q, want workspace-one", got)
	}
}

func TestResolve_Sentinel(t *testing.T) {
	r := &Resolver{Dir: "/", GitToplevel: noGit}
	if got := r.Resolve("!!!"); got != DefaultID {
		t.Errorf("Resolve = %q, want %q", got, DefaultID)
	}
}

func TestResolve_NoWrites(t *testing.T) {
	dir := t.TempDir()
	r := &Resolver{Dir: dir, GitToplevel: noGit}
	first := r.Resolve("")
	second := r.Resolve("")
	if first != second {
		t.Errorf("Resolve not deterministic: %q vs %q", first, second)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Resolve wrote %d entries into %s", len(entries), dir)
	}
}

func TestGitToplevel_WalkFallback(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	top, ok := gitToplevel(nested)
	if !ok {
		t.Fatal("expected a toplevel")
	}
	// git may resolve symlinks in the temp path; compare base names only.
	if filepath.Base(top) != filepath.Base(root) {
		t.Errorf("toplevel = %q, want base %q", top, filepath.Base(root))
	}
}
