// Package project resolves the namespace every store call is scoped to.
//
// Resolution is deterministic and read-only: it inspects the working
// directory but never creates or modifies anything.
package project

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// DefaultID is returned when no candidate yields a usable name.
const DefaultID ID = "default-project"

// MarkerFile pins a project name inside a working tree.
const MarkerFile = ".agent-project"

const gitTimeout = 5 * time.Second

// ID is a sanitized project namespace identifier.
type ID string

func (id ID) String() string { return string(id) }

// Resolver derives an ID from a directory. GitToplevel may be replaced in
// tests; when nil, git is invoked and a .git walk is used as fallback.
type Resolver struct {
	Dir         string
	GitToplevel func(dir string) (string, bool)
}

// NewResolver returns a Resolver rooted at dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{Dir: dir}
}

// Resolve returns the namespace for the resolver's directory. A non-empty
// explicit value wins over everything else.
func (r *Resolver) Resolve(explicit string) ID {
	candidates := []func() string{
		func() string { return explicit },
		r.fromMarker,
		r.fromVCS,
		func() string { return filepath.Base(r.Dir) },
	}
	for _, c := range candidates {
		if id := Sanitize(c()); id != "" {
			return id
		}
	}
	return DefaultID
}

func (r *Resolver) fromMarker() string {
	f, err := os.Open(filepath.Join(r.Dir, MarkerFile))
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

func (r *Resolver) fromVCS() string {
	lookup := r.GitToplevel
	if lookup == nil {
		lookup = gitToplevel
	}
	top, ok := lookup(r.Dir)
	if !ok {
		return ""
	}
	return filepath.Base(top)
}

// gitToplevel asks git for the repository root, falling back to walking up
// the tree looking for a .git entry when git is unavailable.
func gitToplevel(dir string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	if out, err := cmd.Output(); err == nil {
		if top := strings.TrimSpace(string(out)); top != "" {
			return top, true
		}
	}

	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Sanitize lowercases s and keeps letters, digits, '_' and '-' in any
// script. Spaces, dots and path separators become dashes; runs of dashes
// collapse to one.
func Sanitize(s string) ID {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '/', r == '\\':
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return ID(strings.Trim(out, "-"))
}
