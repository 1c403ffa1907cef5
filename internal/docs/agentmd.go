package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"gopkg.in/yaml.v3"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

const generator = "agent-memory"

// frontMatter is the YAML header of a generated AGENT.md.
type frontMatter struct {
	Generator   string        `yaml:"generator"`
	Project     string        `yaml:"project"`
	GeneratedAt string        `yaml:"generated_at"`
	Sections    []SectionType `yaml:"sections"`
}

const closeMarker = "<!-- /section -->"

var (
	markerRe = regexp.MustCompile(`(?s)<!-- section: ([a-z_]+) -->\n(.*?)\n` + regexp.QuoteMeta(closeMarker))
	h2Re     = regexp.MustCompile(`(?m)^## (.+)$`)
)

// GenerateAgentMD assembles every stored section in the fixed order. When
// outputPath is non-empty the document is also written there.
func (c *Composer) GenerateAgentMD(ctx context.Context, outputPath string) (string, error) {
	sections, err := c.ListSections(ctx)
	if err != nil {
		return "", err
	}
	now := timeNow().UTC()
	fm := frontMatter{
		Generator:   generator,
		Project:     c.project,
		GeneratedAt: now.Format(time.RFC3339),
		Sections:    make([]SectionType, 0, len(sections)),
	}
	for _, s := range sections {
		fm.Sections = append(fm.Sections, s.Type)
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString("# Project Documentation\n\n")
	fmt.Fprintf(&b, "*Generated by %s on %s. Regenerate with `doc_generate_agent_md`.*\n", generator, now.Format("2006-01-02 15:04"))
	for _, s := range sections {
		fmt.Fprintf(&b, "\n<!-- section: %s -->\n", s.Type)
		fmt.Fprintf(&b, "## %s\n\n", s.Type.Heading())
		fmt.Fprintf(&b, "### %s\n\n", s.Title)
		b.WriteString(s.Content)
		b.WriteString("\n" + closeMarker + "\n")
	}
	doc := b.String()

	if outputPath != "" {
		if err := writeFile(outputPath, doc); err != nil {
			return "", err
		}
		c.log.Info("AGENT.md generated", "path", outputPath, "sections", len(sections))
	}
	return doc, nil
}

// ImportAgentMD parses the file at path into stored sections. Documents
// produced by GenerateAgentMD are read back through their section markers.
// Anything else is split on H2 headings and each heading's section type is
// guessed; headings that map to the same type are merged.
func (c *Composer) ImportAgentMD(ctx context.Context, path string) (*ImportResult, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	body := stripFrontMatter(string(bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))))

	res := &ImportResult{File: path, Sections: []SectionType{}}
	var parsed []parsedSection
	if markerRe.MatchString(body) {
		res.Lossless = true
		parsed = parseMarked(body)
	} else {
		parsed = parseHeadings(body)
	}
	for _, p := range parsed {
		if _, _, err := c.StoreSection(ctx, string(p.typ), p.title, p.content, nil); err != nil {
			return nil, fmt.Errorf("import %s: %w", p.typ, err)
		}
		res.Sections = append(res.Sections, p.typ)
	}
	c.log.Info("AGENT.md imported", "path", path, "sections", len(res.Sections), "lossless", res.Lossless)
	return res, nil
}

type parsedSection struct {
	typ     SectionType
	title   string
	content string
}

func parseMarked(body string) []parsedSection {
	var out []parsedSection
	for _, m := range markerRe.FindAllStringSubmatch(body, -1) {
		typ, err := ParseSectionType(m[1])
		if err != nil {
			continue
		}
		block := strings.TrimSpace(m[2])
		if strings.HasPrefix(block, "## ") {
			block = strings.TrimSpace(cutLine(block))
		}
		var title string
		if strings.HasPrefix(block, "### ") {
			first, _, _ := strings.Cut(block, "\n")
			title = strings.TrimSpace(strings.TrimPrefix(first, "### "))
			block = strings.TrimSpace(cutLine(block))
		}
		if block == "" {
			continue
		}
		out = append(out, parsedSection{typ: typ, title: title, content: block})
	}
	return out
}

func parseHeadings(body string) []parsedSection {
	matches := h2Re.FindAllStringSubmatchIndex(body, -1)
	var out []parsedSection
	index := map[SectionType]int{}
	for i, m := range matches {
		title := strings.TrimSpace(body[m[2]:m[3]])
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(body[m[1]:end])
		content = strings.TrimSpace(strings.TrimSuffix(content, "---"))
		if content == "" {
			continue
		}
		typ := GuessSectionType(title)
		if j, ok := index[typ]; ok {
			out[j].content += "\n\n### " + title + "\n\n" + content
			continue
		}
		index[typ] = len(out)
		out = append(out, parsedSection{typ: typ, title: title, content: content})
	}
	return out
}

// stripFrontMatter removes a leading YAML block when it parses.
func stripFrontMatter(doc string) string {
	if !strings.HasPrefix(doc, "---\n") {
		return doc
	}
	end := strings.Index(doc[4:], "\n---\n")
	if end < 0 {
		return doc
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(doc[4:4+end]), &fm); err != nil {
		return doc
	}
	return doc[4+end+5:]
}

func cutLine(s string) string {
	_, rest, _ := strings.Cut(s, "\n")
	return rest
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
