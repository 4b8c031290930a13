package scope

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// Store reads and writes the three settings documents. It holds no cached
// state; every read goes to disk so concurrent CLI invocations see each
// other's writes.
type Store struct {
	homeDir string
	workDir string
	logger  zerolog.Logger
}

// NewStore creates a store rooted at the given home and working directories.
func NewStore(homeDir, workDir string, logger zerolog.Logger) *Store {
	return &Store{
		homeDir: filepath.Clean(homeDir),
		workDir: filepath.Clean(workDir),
		logger:  logger.With().Str("component", "scope-store").Logger(),
	}
}

// Path returns the settings file path for a scope.
func (s *Store) Path(scope Scope) string {
	switch scope {
	case ScopeGlobal:
		return filepath.Join(GlobalDir(s.homeDir), settingsFileName)
	case ScopeProject:
		return filepath.Join(ProjectDir(s.workDir), settingsFileName)
	case ScopeLocal:
		return filepath.Join(ProjectDir(s.workDir), localSettingsName)
	}
	return ""
}

// GlobalDir returns the user-wide configuration directory.
func (s *Store) GlobalDir() string {
	return GlobalDir(s.homeDir)
}

// ProjectDir returns the project configuration directory.
func (s *Store) ProjectDir() string {
	return ProjectDir(s.workDir)
}

// atHome reports whether the working directory is the home directory, in
// which case project and local scope would collide with global state.
func (s *Store) atHome() bool {
	return s.workDir == s.homeDir
}

// ResolveScope maps a requested scope to the scope that will actually be
// used. When running from the home directory, project and local scope are
// unavailable: an explicit request fails with ScopeUnavailableError, while an
// implicit one falls back to global and reports the fallback so callers can
// warn.
func (s *Store) ResolveScope(requested Scope, explicit bool) (Scope, bool, error) {
	if !requested.IsValid() {
		return "", false, fmt.Errorf("unknown scope %q", requested)
	}
	if requested == ScopeGlobal || !s.atHome() {
		return requested, false, nil
	}
	if explicit {
		return "", false, &mountplan.ScopeUnavailableError{
			Scope: string(requested),
			Hint:  "run from a project directory, or use --scope global",
		}
	}
	s.logger.Debug().Str("requested", string(requested)).Msg("Falling back to global scope (working directory is home)")
	return ScopeGlobal, true, nil
}

// ReadScope loads the settings document for one scope. A missing file yields
// an empty document. An unreadable or malformed file is logged and also
// yields an empty document: a broken local override must never brick the
// whole configuration surface.
func (s *Store) ReadScope(scope Scope) map[string]any {
	path := s.Path(scope)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to read settings file, treating as empty")
		}
		return map[string]any{}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to parse settings file, treating as empty")
		return map[string]any{}
	}
	if doc == nil {
		return map[string]any{}
	}
	return doc
}

// WriteScope persists a settings document for one scope, creating parent
// directories as needed. Last write wins; there is no locking.
func (s *Store) WriteScope(scope Scope, doc map[string]any) error {
	path := s.Path(scope)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}

	s.logger.Debug().Str("scope", string(scope)).Str("path", path).Msg("Wrote settings")
	return nil
}

// MergedSettings merges the three scope documents, local over project over
// global. Nested maps merge recursively; scalars and lists replace wholesale.
func (s *Store) MergedSettings() map[string]any {
	merged := map[string]any{}
	for _, scope := range mergeOrder {
		merged = mergeDocs(merged, s.ReadScope(scope))
	}
	return merged
}

// ScopeDocs returns the three documents in merge order (global, project,
// local), for callers that need scope-aware merging rather than the generic
// document merge.
func (s *Store) ScopeDocs() []map[string]any {
	docs := make([]map[string]any, 0, len(mergeOrder))
	for _, scope := range mergeOrder {
		docs = append(docs, s.ReadScope(scope))
	}
	return docs
}

// mergeDocs overlays b onto a without mutating either. Maps recurse,
// everything else replaces.
func mergeDocs(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if bm, ok := v.(map[string]any); ok {
			if am, ok := out[k].(map[string]any); ok {
				out[k] = mergeDocs(am, bm)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// ActiveProfile returns the profile selected by the settings hierarchy and
// which setting selected it. Precedence: local profile.active, then project
// profile.default, then global profile.active. Empty name means no selection.
func (s *Store) ActiveProfile() (name, origin string) {
	if v := docString(s.ReadScope(ScopeLocal), "profile", "active"); v != "" {
		return v, "local profile.active"
	}
	if v := docString(s.ReadScope(ScopeProject), "profile", "default"); v != "" {
		return v, "project profile.default"
	}
	if v := docString(s.ReadScope(ScopeGlobal), "profile", "active"); v != "" {
		return v, "global profile.active"
	}
	return "", ""
}

// SetActiveProfile records the active profile in the given scope. Project
// scope uses the profile.default key (the team-shared selection); global and
// local use profile.active.
func (s *Store) SetActiveProfile(scope Scope, name string) error {
	key := "profile.active"
	if scope == ScopeProject {
		key = "profile.default"
	}
	return s.Set(scope, key, name)
}

// ClearActiveProfile removes the profile selection from the given scope.
func (s *Store) ClearActiveProfile(scope Scope) error {
	key := "profile.active"
	if scope == ScopeProject {
		key = "profile.default"
	}
	return s.Unset(scope, key)
}

// Get reads a dotted key from the merged settings. The boolean reports
// whether the key was present.
func (s *Store) Get(key string) (any, bool) {
	return docLookup(s.MergedSettings(), strings.Split(key, ".")...)
}

// GetAt reads a dotted key from a single scope document.
func (s *Store) GetAt(scope Scope, key string) (any, bool) {
	return docLookup(s.ReadScope(scope), strings.Split(key, ".")...)
}

// Set writes a dotted key into one scope, creating intermediate maps. A
// non-map value in the path is replaced.
func (s *Store) Set(scope Scope, key string, value any) error {
	doc := s.ReadScope(scope)
	parts := strings.Split(key, ".")

	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value

	return s.WriteScope(scope, doc)
}

// Unset removes a dotted key from one scope. Removing a key that does not
// exist is not an error.
func (s *Store) Unset(scope Scope, key string) error {
	doc := s.ReadScope(scope)
	parts := strings.Split(key, ".")

	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	if _, ok := cur[parts[len(parts)-1]]; !ok {
		return nil
	}
	delete(cur, parts[len(parts)-1])

	return s.WriteScope(scope, doc)
}

// docString walks a path of map keys and returns the string at the end, or
// empty if any step is missing or the wrong shape.
func docString(doc map[string]any, path ...string) string {
	v, ok := docLookup(doc, path...)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

func docLookup(doc map[string]any, path ...string) (any, bool) {
	var cur any = doc
	for _, part := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
