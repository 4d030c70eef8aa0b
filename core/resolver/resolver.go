// Package resolver expands @-references inside prompt documents. A reference
// like @agents/common/core-protocol.mdc is replaced inline with the target
// file's body, recursively, with every resolved path confined to the
// repository root and cycles cut with an inline marker instead of an error.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/WonderMr/agents/core/document"
)

// cursorDir is the conventional directory holding agent and rule documents.
const cursorDir = ".cursor"

// refPattern matches inline document references, e.g.
// @agents/common/core-protocol.mdc or @.cursor/rules/style.mdc.
var refPattern = regexp.MustCompile(`@[\w\./-]+\.mdc`)

// SecurityError reports a reference that escapes the repository root.
type SecurityError struct {
	Ref string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("access denied for path %q: outside repository root", e.Ref)
}

// AgentNotFoundError reports a missing agent system prompt.
type AgentNotFoundError struct {
	Agent string
	Path  string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent prompt not found for %q at %s", e.Agent, e.Path)
}

// Resolver expands prompt references relative to a repository root.
type Resolver struct {
	root   string
	logger *slog.Logger
}

// New creates a Resolver sandboxed to root. root is made absolute once so
// later containment checks compare canonical paths.
func New(root string, logger *slog.Logger) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{root: abs, logger: logger}, nil
}

// Root returns the absolute repository root.
func (r *Resolver) Root() string {
	return r.root
}

// ResolvePath maps a reference to an absolute path inside the root.
// References starting with @.cursor/ resolve against the root directly;
// @agents/ references live under .cursor/; anything else prefers .cursor/
// when the file exists there and falls back to the root. Paths without a
// leading @ resolve against the root. A resolved path outside the root is
// a SecurityError.
func (r *Resolver) ResolvePath(ref string) (string, error) {
	var candidate string

	if clean, ok := strings.CutPrefix(ref, "@"); ok {
		switch {
		case strings.HasPrefix(clean, cursorDir):
			candidate = filepath.Join(r.root, clean)
		case strings.HasPrefix(clean, "agents"):
			candidate = filepath.Join(r.root, cursorDir, clean)
		default:
			under := filepath.Join(r.root, cursorDir, clean)
			if _, err := os.Stat(under); err == nil {
				candidate = under
			} else {
				candidate = filepath.Join(r.root, clean)
			}
		}
	} else {
		candidate = filepath.Join(r.root, ref)
	}

	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", &SecurityError{Ref: ref}
	}
	if abs != r.root && !strings.HasPrefix(abs, r.root+string(filepath.Separator)) {
		return "", &SecurityError{Ref: ref}
	}
	return abs, nil
}

// Expand replaces every reference in content with the referenced file's
// body, recursively. Failures never abort the expansion: unresolvable or
// missing targets become inline markers so the surrounding prompt survives.
func (r *Resolver) Expand(content string) string {
	return r.expand(content, map[string]struct{}{})
}

// node is one segment of parsed prompt content.
type node struct {
	text  string
	isRef bool
}

// parse splits content into literal and reference nodes.
func parse(content string) []node {
	locs := refPattern.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []node{{text: content}}
	}

	nodes := make([]node, 0, len(locs)*2+1)
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			nodes = append(nodes, node{text: content[prev:loc[0]]})
		}
		nodes = append(nodes, node{text: content[loc[0]:loc[1]], isRef: true})
		prev = loc[1]
	}
	if prev < len(content) {
		nodes = append(nodes, node{text: content[prev:]})
	}
	return nodes
}

func (r *Resolver) expand(content string, visited map[string]struct{}) string {
	var out strings.Builder
	for _, n := range parse(content) {
		if !n.isRef {
			out.WriteString(n.text)
			continue
		}
		out.WriteString(r.expandRef(n.text, visited))
	}
	return out.String()
}

func (r *Resolver) expandRef(ref string, visited map[string]struct{}) string {
	path, err := r.ResolvePath(ref)
	if err != nil {
		r.logger.Warn("blocked prompt reference", slog.String("ref", ref))
		return fmt.Sprintf("[SECURITY BLOCK: %v]", err)
	}

	if _, seen := visited[path]; seen {
		return fmt.Sprintf("[CIRCULAR REFERENCE: %s]", ref)
	}

	// each branch gets its own copy so sibling references may legitimately
	// share an ancestor
	branch := make(map[string]struct{}, len(visited)+1)
	for k := range visited {
		branch[k] = struct{}{}
	}
	branch[path] = struct{}{}

	return r.expand(r.loadBody(path), branch)
}

// loadBody reads a referenced file and strips its frontmatter. Missing
// files yield an inline marker rather than an error.
func (r *Resolver) loadBody(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("[MISSING FILE: %s]", path)
		}
		return fmt.Sprintf("[ERROR LOADING FILE: %s - %v]", path, err)
	}

	return strings.TrimSpace(document.StripFrontmatter(string(raw)))
}

// agentPromptPath builds the canonical system prompt location for an agent.
func (r *Resolver) agentPromptPath(agent string) (string, error) {
	rel := filepath.Join(cursorDir, "agents", agent, "system_prompt.mdc")
	return r.ResolvePath(rel)
}

// LoadAgentPrompt loads an agent's system prompt with all references
// expanded. Unlike Expand, the top-level file must exist and resolve
// inside the root; those failures are returned as errors.
func (r *Resolver) LoadAgentPrompt(agent string) (string, error) {
	path, err := r.agentPromptPath(agent)
	if err != nil {
		return "", fmt.Errorf("invalid agent name %q: %w", agent, err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", &AgentNotFoundError{Agent: agent, Path: path}
	}
	return r.Expand(r.loadBody(path)), nil
}

// AgentMetadata reads the frontmatter of an agent's system prompt. Missing
// or unparseable prompts return zero metadata.
func (r *Resolver) AgentMetadata(agent string) document.Frontmatter {
	path, err := r.agentPromptPath(agent)
	if err != nil {
		return document.Frontmatter{}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return document.Frontmatter{}
	}
	meta, _, _ := document.ParseFrontmatter(string(raw))
	return meta
}
