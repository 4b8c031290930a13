// Package collections locates installed collections: directories that bundle
// profiles, agents, and modules for distribution. A directory is a collection
// iff it contains a collection.yaml marker at its root.
package collections

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// MarkerFile is the file whose presence makes a directory a collection.
const MarkerFile = "collection.yaml"

// Manifest is the parsed collection.yaml marker.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// Collection is an installed collection discovered on disk.
type Collection struct {
	// Name is the directory name, which is the collection's address. The
	// manifest may carry a display name; the directory name is what resolves.
	Name string

	// Path is the collection's root directory.
	Path string

	Manifest Manifest
}

// Resolver finds collections under an ordered list of search roots. Earlier
// roots shadow later ones for the same collection name.
type Resolver struct {
	roots  []string
	logger zerolog.Logger
}

// NewResolver creates a resolver over the given search roots, typically the
// project collections directory followed by the global one.
func NewResolver(roots []string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		roots:  roots,
		logger: logger.With().Str("component", "collections").Logger(),
	}
}

// Resolve returns the collection with the given name, or NotFoundError.
func (r *Resolver) Resolve(name string) (*Collection, error) {
	var checked []string
	for _, root := range r.roots {
		dir := filepath.Join(root, name)
		checked = append(checked, dir)
		col, err := r.load(name, dir)
		if err != nil {
			return nil, err
		}
		if col != nil {
			return col, nil
		}
	}
	return nil, &mountplan.NotFoundError{Kind: "collection", Name: name, LayersChecked: checked}
}

// List returns every collection visible from the search roots, sorted by
// name. When the same name exists under multiple roots, the earlier root
// wins.
func (r *Resolver) List() []Collection {
	byName := map[string]Collection{}
	for i := len(r.roots) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(r.roots[i])
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			col, err := r.load(entry.Name(), filepath.Join(r.roots[i], entry.Name()))
			if err != nil {
				r.logger.Warn().Err(err).Str("dir", entry.Name()).Msg("Skipping collection with bad manifest")
				continue
			}
			if col != nil {
				byName[col.Name] = *col
			}
		}
	}

	out := make([]Collection, 0, len(byName))
	for _, col := range byName {
		out = append(out, col)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// load reads a candidate collection directory. Returns (nil, nil) when the
// directory is missing or lacks the marker file.
func (r *Resolver) load(name, dir string) (*Collection, error) {
	markerPath := filepath.Join(dir, MarkerFile)
	data, err := os.ReadFile(markerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection manifest %s: %w", markerPath, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, &mountplan.ValidationError{Path: markerPath, Message: "malformed collection manifest", Err: err}
	}

	return &Collection{Name: name, Path: dir, Manifest: manifest}, nil
}
