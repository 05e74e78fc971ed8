// Package parser reads and writes mirrored note files: a YAML frontmatter
// block carrying note metadata followed by the Markdown body.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/offnote/internal/models"
)

const delim = "---"

// Frontmatter is the metadata block of a note file.
type Frontmatter struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Synced    bool      `yaml:"synced"`
}

// Document is a parsed note file.
type Document struct {
	Frontmatter
	// HasFrontmatter is false for plain Markdown files.
	HasFrontmatter bool
	Body           string
}

// Parse splits a note file into frontmatter and body. Files without a valid
// frontmatter block are treated as body only, titled by their first H1. When
// frontmatter is present its title is taken verbatim, even if empty.
func Parse(data []byte) (*Document, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return &Document{Body: string(data), Frontmatter: Frontmatter{Title: firstHeading(string(data))}}, nil
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		// Broken YAML: keep the whole file as body so nothing is lost.
		return &Document{Body: string(data), Frontmatter: Frontmatter{Title: firstHeading(string(data))}}, nil
	}
	return &Document{Frontmatter: fm, HasFrontmatter: true, Body: body}, nil
}

// Render produces the file representation of a note.
func Render(n models.Note) ([]byte, error) {
	block, err := yaml.Marshal(Frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		UpdatedAt: n.UpdatedAt.UTC(),
		Synced:    n.Synced,
	})
	if err != nil {
		return nil, fmt.Errorf("parser: render %s: %w", n.ID, err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(block)
	buf.WriteString(delim + "\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// splitFrontmatter separates a leading --- delimited block from the body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	// Drop only the newline that ends the closing delimiter line.
	after = bytes.TrimPrefix(after, []byte("\r"))
	after = bytes.TrimPrefix(after, []byte("\n"))
	return block, string(after), true
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
