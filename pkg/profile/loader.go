package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/loadout-sh/loadout/pkg/collections"
	"github.com/loadout-sh/loadout/pkg/mentions"
	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// Extension is the canonical profile file extension.
const Extension = ".md"

// SearchPath is one directory the loader scans for profiles, tagged with the
// origin label used for attribution in diagnostic output.
type SearchPath struct {
	Dir    string
	Origin string
}

// Loader discovers profile files across ordered search paths and flattens
// extends-based inheritance. Search paths are ordered lowest precedence
// first; when the same name exists in several paths, the highest-precedence
// file wins outright (no cross-path merging).
type Loader struct {
	searchPaths []SearchPath
	collections *collections.Resolver
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewLoader creates a loader. The collections resolver may be nil, in which
// case collection-qualified names fail to resolve.
func NewLoader(searchPaths []SearchPath, cols *collections.Resolver, logger zerolog.Logger) *Loader {
	return &Loader{
		searchPaths: searchPaths,
		collections: cols,
		validate:    validator.New(),
		logger:      logger.With().Str("component", "profile-loader").Logger(),
	}
}

// ListProfiles returns the names of every discoverable profile, sorted.
func (l *Loader) ListProfiles() []string {
	seen := map[string]bool{}
	for _, sp := range l.searchPaths {
		entries, err := os.ReadDir(sp.Dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
				continue
			}
			seen[strings.TrimSuffix(entry.Name(), Extension)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindProfileFile locates a profile by name and reports its origin label.
//
// Two addressing forms are supported. The qualified form
// "collection-name:relative/path" resolves directly against the named
// collection's root, bypassing the ordered search. The simple form searches
// the ordered paths highest precedence first for name + the canonical
// extension.
func (l *Loader) FindProfileFile(name string) (path, origin string, ok bool) {
	if colName, rel, found := strings.Cut(name, ":"); found {
		if l.collections == nil {
			return "", "", false
		}
		col, err := l.collections.Resolve(colName)
		if err != nil {
			l.logger.Debug().Err(err).Str("profile", name).Msg("Collection-qualified profile did not resolve")
			return "", "", false
		}
		full := filepath.Join(col.Path, rel)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full, "collection", true
		}
		return "", "", false
	}

	for i := len(l.searchPaths) - 1; i >= 0; i-- {
		sp := l.searchPaths[i]
		candidate := filepath.Join(sp.Dir, name+Extension)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, sp.Origin, true
		}
	}
	return "", "", false
}

// LoadProfile loads a profile and resolves its inheritance chain into a
// single effective profile. Validation runs only after the chain is fully
// merged, so children may omit fields their ancestors supply.
func (l *Loader) LoadProfile(name string) (*Profile, error) {
	raw, path, origin, err := l.loadRaw(name, nil)
	if err != nil {
		return nil, err
	}

	p, err := l.decodeProfile(raw, path)
	if err != nil {
		return nil, err
	}
	p.Path = path
	p.Origin = origin

	l.logger.Debug().Str("profile", name).Str("path", path).Msg("Loaded profile")
	return p, nil
}

// loadRaw loads a profile document as a raw mapping, recursively merging
// parents. visited carries the chain walked so far, for cycle detection.
func (l *Loader) loadRaw(name string, visited []string) (raw map[string]any, path, origin string, err error) {
	if slices.Contains(visited, name) {
		return nil, "", "", &mountplan.CycleError{Chain: append(append([]string{}, visited...), name)}
	}
	visited = append(visited, name)

	path, origin, ok := l.FindProfileFile(name)
	if !ok {
		return nil, "", "", &mountplan.NotFoundError{Kind: "profile", Name: name, LayersChecked: l.searchDirs()}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	raw, body, err := parseFrontMatter(path, content)
	if err != nil {
		return nil, "", "", err
	}

	if body != "" {
		body = mentions.NewExpander(filepath.Dir(path), l.logger).Expand(body)
		setBodyAsInstruction(raw, body)
	}

	if parentName := extendsOf(raw); parentName != "" {
		parentRaw, _, _, err := l.loadRaw(parentName, visited)
		if err != nil {
			return nil, "", "", err
		}
		raw = mergeRaw(parentRaw, raw)
	}

	return raw, path, origin, nil
}

// decodeProfile converts a merged raw mapping into a validated Profile.
func (l *Loader) decodeProfile(raw map[string]any, path string) (*Profile, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, &mountplan.ValidationError{Path: path, Message: "failed to re-encode profile", Err: err}
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &mountplan.ValidationError{Path: path, Message: "profile does not match schema", Err: err}
	}
	if err := l.validate.Struct(&p); err != nil {
		return nil, &mountplan.ValidationError{Path: path, Message: "profile failed validation", Err: err}
	}
	if p.Meta.Model != "" {
		if err := ValidateModelPair(p.Meta.Model); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// ResolveInheritanceChain returns the profiles from base ancestor to the
// given profile, re-walking extends links. Cycle detection here is
// independent of load-time detection; a chain assembled for display must
// never loop even if the profiles changed on disk since loading.
func (l *Loader) ResolveInheritanceChain(p *Profile) ([]*Profile, error) {
	var chain []*Profile
	seen := map[string]bool{}

	current := p
	for current != nil {
		if seen[current.Meta.Name] {
			names := make([]string, 0, len(chain)+1)
			for _, link := range chain {
				names = append(names, link.Meta.Name)
			}
			return nil, &mountplan.CycleError{Chain: append(names, current.Meta.Name)}
		}
		seen[current.Meta.Name] = true
		chain = append(chain, current)

		if current.Meta.Extends == "" {
			break
		}
		parent, err := l.LoadProfile(current.Meta.Extends)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent %q of %q: %w", current.Meta.Extends, current.Meta.Name, err)
		}
		current = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

// ValidateModelPair checks the "provider/model" two-part format.
func ValidateModelPair(model string) error {
	provider, name, found := strings.Cut(model, "/")
	if !found || provider == "" || name == "" {
		return &mountplan.ValidationError{
			Field:   "profile.model",
			Message: fmt.Sprintf("model must be in provider/model format, got %q", model),
		}
	}
	return nil
}

func (l *Loader) searchDirs() []string {
	dirs := make([]string, 0, len(l.searchPaths))
	for _, sp := range l.searchPaths {
		dirs = append(dirs, sp.Dir)
	}
	return dirs
}

// setBodyAsInstruction records the markdown body as system.instruction
// unless the document already declares one.
func setBodyAsInstruction(raw map[string]any, body string) {
	system, ok := raw["system"].(map[string]any)
	if !ok {
		system = map[string]any{}
		raw["system"] = system
	}
	if _, exists := system["instruction"]; !exists {
		system["instruction"] = body
	}
}

// extendsOf digs profile.extends out of a raw mapping.
func extendsOf(raw map[string]any) string {
	meta, ok := raw["profile"].(map[string]any)
	if !ok {
		return ""
	}
	parent, _ := meta["extends"].(string)
	return parent
}
