// Package resolve maps module identifiers to concrete source locators by
// walking a fixed sequence of resolution layers.
package resolve

import (
	"strings"
)

// SourceKind is the tagged variant of a source locator. The kind is assigned
// once, when the locator string is first parsed, and carried as data; nothing
// downstream re-derives it from string inspection.
type SourceKind string

const (
	// KindFile is a local filesystem path.
	KindFile SourceKind = "file"

	// KindGit is a git repository reference.
	KindGit SourceKind = "git"

	// KindPackage is an installed-package name resolved by the external
	// plugin mechanism.
	KindPackage SourceKind = "package"
)

// Source is a parsed module source locator.
type Source struct {
	Kind SourceKind

	// Locator is the path, repository URL, or package name.
	Locator string

	// Ref is the git ref to check out. Only meaningful for KindGit;
	// defaults to "main".
	Ref string

	// Subdir is an optional subdirectory within a git repository.
	Subdir string
}

// String renders the source back into its canonical locator form.
func (s Source) String() string {
	switch s.Kind {
	case KindGit:
		out := "git+" + s.Locator
		if s.Ref != "" && s.Ref != "main" {
			out += "@" + s.Ref
		}
		if s.Subdir != "" {
			out += "#" + s.Subdir
		}
		return out
	default:
		return s.Locator
	}
}

// ParseSource classifies a locator string into a tagged Source.
//
//   - "git+<url>[@ref][#subdir]" parses as a git source
//   - "file://...", absolute paths, and "./" / "../" paths parse as files
//   - anything else is assumed to be a package name
func ParseSource(raw string) Source {
	if rest, ok := strings.CutPrefix(raw, "git+"); ok {
		src := Source{Kind: KindGit, Ref: "main"}
		if rest, sub, found := cutLast(rest, "#"); found {
			src.Subdir = sub
			src.Locator = rest
		} else {
			src.Locator = rest
		}
		if url, ref, found := cutLast(src.Locator, "@"); found && !strings.Contains(ref, "/") {
			src.Locator = url
			src.Ref = ref
		}
		return src
	}

	if strings.HasPrefix(raw, "file://") {
		return Source{Kind: KindFile, Locator: strings.TrimPrefix(raw, "file://")}
	}
	if strings.HasPrefix(raw, "file:") {
		return Source{Kind: KindFile, Locator: strings.TrimPrefix(raw, "file:")}
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") {
		return Source{Kind: KindFile, Locator: raw}
	}

	return Source{Kind: KindPackage, Locator: raw}
}

// cutLast splits around the last occurrence of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}
