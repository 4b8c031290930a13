// Package mentions expands @file references in profile instruction text.
// A mention like "@docs/style.md" pulls that file's content into the
// compiled instruction so profiles can reference shared guidance without
// inlining it.
package mentions

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// mentionPattern matches @-prefixed relative paths. A mention must start a
// word (preceded by whitespace or start-of-text) so email addresses and
// code like user@host are left alone.
var mentionPattern = regexp.MustCompile(`(?:^|\s)@([\w./-]+)`)

// Expander loads mentioned files relative to a base directory.
type Expander struct {
	baseDir string
	logger  zerolog.Logger
}

// NewExpander creates an expander that resolves mentions against baseDir,
// typically the directory holding the profile file.
func NewExpander(baseDir string, logger zerolog.Logger) *Expander {
	return &Expander{
		baseDir: baseDir,
		logger:  logger.With().Str("component", "mentions").Logger(),
	}
}

// Extract returns the mentioned paths in order of first appearance, without
// duplicates.
func Extract(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		path := m[1]
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}

// Expand loads every mentioned file and prepends its content to the text as
// a titled block. Mentions that cannot be read are logged and skipped; the
// text itself is never altered.
func (e *Expander) Expand(text string) string {
	paths := Extract(text)
	if len(paths) == 0 {
		return text
	}

	var blocks []string
	for _, path := range paths {
		full := filepath.Join(e.baseDir, path)
		data, err := os.ReadFile(full)
		if err != nil {
			e.logger.Warn().Err(err).Str("mention", path).Msg("Skipping unreadable mention")
			continue
		}
		blocks = append(blocks, fmt.Sprintf("<!-- from @%s -->\n%s", path, strings.TrimRight(string(data), "\n")))
	}
	if len(blocks) == 0 {
		return text
	}

	return strings.Join(blocks, "\n\n") + "\n\n" + text
}
