// Package document models the annotated .mdc files that agent profiles,
// skills and implants are stored in: an optional YAML frontmatter block
// delimited by "---" lines, followed by a markdown body.
package document

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extension is the canonical file extension for annotated documents.
const Extension = ".mdc"

var (
	// ErrNotFound indicates the document file does not exist.
	ErrNotFound = errors.New("document not found")
)

// Frontmatter is the typed metadata schema for .mdc documents. Unknown keys
// are ignored.
type Frontmatter struct {
	Description     string   `yaml:"description"`
	PreferredSkills []string `yaml:"preferred_skills"`
	Globs           string   `yaml:"globs"`
	AlwaysApply     bool     `yaml:"alwaysApply"`
}

// Document is a file-backed unit ready for indexing. ID is the filename,
// unique per collection; Body has the frontmatter stripped.
type Document struct {
	ID   string
	Path string
	Body string
	Meta Frontmatter
}

// Description returns the frontmatter description.
func (d Document) Description() string {
	return d.Meta.Description
}

// SearchText returns the text to index: description plus body, so both the
// annotation and the content contribute to retrieval.
func (d Document) SearchText() string {
	if d.Meta.Description == "" {
		return d.Body
	}
	return d.Meta.Description + "\n\n" + d.Body
}

// ParseFrontmatter splits content into typed frontmatter and body. Content
// without a leading "---" block yields a zero Frontmatter and the full
// content as body. A malformed YAML block is reported but the body after the
// second delimiter is still returned, matching how documents degrade rather
// than disappear.
func ParseFrontmatter(content string) (Frontmatter, string, error) {
	if !strings.HasPrefix(content, "---") {
		return Frontmatter{}, content, nil
	}

	parts := strings.SplitN(content[3:], "---", 2)
	if len(parts) < 2 {
		return Frontmatter{}, content, nil
	}

	var meta Frontmatter
	if err := yaml.Unmarshal([]byte(parts[0]), &meta); err != nil {
		return Frontmatter{}, strings.TrimSpace(parts[1]), fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, strings.TrimSpace(parts[1]), nil
}

// StripFrontmatter returns only the body of content.
func StripFrontmatter(content string) string {
	_, body, _ := ParseFrontmatter(content)
	return body
}

// Load reads and parses a single document file.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Document{}, fmt.Errorf("read document %s: %w", path, err)
	}

	meta, body, err := ParseFrontmatter(string(raw))
	if err != nil {
		return Document{}, err
	}

	return Document{
		ID:   filepath.Base(path),
		Path: path,
		Body: body,
		Meta: meta,
	}, nil
}

// LoadDir reads every .mdc file directly under dir. Per-file failures are
// logged and skipped so one bad document never blocks indexing the rest.
func LoadDir(dir string, logger *slog.Logger) ([]Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("scan document dir %s: %w", dir, err)
	}

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		doc, err := Load(path)
		if err != nil {
			logger.Warn("skipping document", "path", path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
