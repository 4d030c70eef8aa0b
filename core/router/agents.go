package router

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// systemPromptFile marks a directory as an agent profile.
const systemPromptFile = "system_prompt.mdc"

// ScanAgents discovers agent profiles under root: every subdirectory holding
// a system_prompt.mdc, except hidden directories and the shared "common"
// directory. Results are sorted. When nothing is found (or root is
// unreadable) the default agent is returned so routing always has a target.
func ScanAgents(root string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		logger.Warn("agent scan failed, using default agent",
			slog.String("root", root),
			slog.String("error", err.Error()))
		return []string{DefaultAgent}
	}

	var agents []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "common" {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, name, systemPromptFile)); err != nil {
			continue
		}
		agents = append(agents, name)
	}

	if len(agents) == 0 {
		logger.Warn("no agent profiles found, using default agent",
			slog.String("root", root))
		return []string{DefaultAgent}
	}

	sort.Strings(agents)
	return agents
}
