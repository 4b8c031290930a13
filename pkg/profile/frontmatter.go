package profile

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

const frontMatterDelimiter = "---"

// splitFrontMatter separates a profile or agent document into its YAML
// front-matter text and markdown body. A document with no front-matter
// section yields empty matter and the whole content as body.
func splitFrontMatter(content string) (matter, body string) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelimiter {
		return "", normalized
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelimiter {
			matter = strings.Join(lines[1:i], "\n")
			body = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			return matter, body
		}
	}

	// Opening delimiter with no closing one: treat everything as body.
	return "", normalized
}

// parseFrontMatter parses the document's front matter into a raw mapping and
// returns the trimmed body. A malformed YAML section is a ValidationError.
func parseFrontMatter(path string, content []byte) (map[string]any, string, error) {
	matter, body := splitFrontMatter(string(content))
	if matter == "" {
		return map[string]any{}, body, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(matter), &raw); err != nil {
		return nil, "", &mountplan.ValidationError{Path: path, Message: "malformed front matter", Err: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, body, nil
}
