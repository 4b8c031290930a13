package resolve

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/collections"
	"github.com/loadout-sh/loadout/pkg/mountplan"
	"github.com/loadout-sh/loadout/pkg/scope"
)

// Layer names one resolution layer, in the order they are consulted.
type Layer string

const (
	LayerEnvOverride  Layer = "env-override"
	LayerWorkspace    Layer = "workspace-materialized"
	LayerScopeLocal   Layer = "scope-local"
	LayerScopeProject Layer = "scope-project"
	LayerScopeGlobal  Layer = "scope-global"
	LayerProfile      Layer = "profile-declared"
	LayerCollection   Layer = "collection-discovered"
	LayerPackage      Layer = "package-installed"
)

// layerOrder is the full search order, highest priority first.
var layerOrder = []Layer{
	LayerEnvOverride,
	LayerWorkspace,
	LayerScopeLocal,
	LayerScopeProject,
	LayerScopeGlobal,
	LayerProfile,
	LayerCollection,
	LayerPackage,
}

// envPrefix keys the per-module override variables: LOADOUT_MODULE_<ID> with
// the id uppercased and non-alphanumerics mapped to underscores.
const envPrefix = "LOADOUT_MODULE_"

// EnvKey returns the environment variable name that overrides a module id.
func EnvKey(moduleID string) string {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			return r
		default:
			return '_'
		}
	}, moduleID)
	return envPrefix + normalized
}

// PackageChecker reports whether the external package mechanism can supply a
// module, returning the package name to use. The resolver never performs the
// installed-package lookup itself.
type PackageChecker func(moduleID string) (string, bool)

// Resolver maps module ids to sources. Construct one per command invocation
// and pass it by reference; there is no process-wide instance. Collection
// discovery is scanned once per resolver and cached for subsequent calls.
type Resolver struct {
	workDir        string
	scopes         *scope.Store
	collections    *collections.Resolver
	profileSources map[string]string
	packageCheck   PackageChecker
	logger         zerolog.Logger

	colOnce    sync.Once
	colModules map[string]string
}

// NewResolver creates a resolver. scopes and cols may be nil, disabling the
// corresponding layers. packageCheck may be nil, in which case the package
// layer assumes every module id is installable and never fails.
func NewResolver(workDir string, scopes *scope.Store, cols *collections.Resolver, packageCheck PackageChecker, logger zerolog.Logger) *Resolver {
	return &Resolver{
		workDir:      workDir,
		scopes:       scopes,
		collections:  cols,
		packageCheck: packageCheck,
		logger:       logger.With().Str("component", "source-resolver").Logger(),
	}
}

// SetProfileSources installs the source pins declared by the active profile.
// The resolver itself is profile-agnostic; callers that loaded a profile feed
// its declared sources into this layer.
func (r *Resolver) SetProfileSources(sources map[string]string) {
	r.profileSources = sources
}

// Resolve returns the first matching source for a module id.
func (r *Resolver) Resolve(moduleID string) (Source, error) {
	src, _, err := r.ResolveWithLayer(moduleID)
	return src, err
}

// ResolveWithLayer resolves a module id and reports which layer matched, for
// diagnostic display.
func (r *Resolver) ResolveWithLayer(moduleID string) (Source, Layer, error) {
	var checked []string
	for _, layer := range layerOrder {
		src, ok := r.checkLayer(layer, moduleID)
		if ok {
			r.logger.Debug().
				Str("module", moduleID).
				Str("layer", string(layer)).
				Str("source", src.String()).
				Msg("Resolved module source")
			return src, layer, nil
		}
		checked = append(checked, string(layer))
	}
	return Source{}, "", &mountplan.NotFoundError{Kind: "module", Name: moduleID, LayersChecked: checked}
}

func (r *Resolver) checkLayer(layer Layer, moduleID string) (Source, bool) {
	switch layer {
	case LayerEnvOverride:
		if value := os.Getenv(EnvKey(moduleID)); value != "" {
			return ParseSource(value), true
		}

	case LayerWorkspace:
		dir := filepath.Join(r.workDir, ".loadout", "modules", moduleID)
		if r.materializedModuleExists(dir) {
			return Source{Kind: KindFile, Locator: dir}, true
		}

	case LayerScopeLocal, LayerScopeProject, LayerScopeGlobal:
		if r.scopes == nil {
			return Source{}, false
		}
		sc := map[Layer]scope.Scope{
			LayerScopeLocal:   scope.ScopeLocal,
			LayerScopeProject: scope.ScopeProject,
			LayerScopeGlobal:  scope.ScopeGlobal,
		}[layer]
		if raw, ok := r.scopes.ScopeSourceFor(sc, moduleID); ok {
			return ParseSource(raw), true
		}

	case LayerProfile:
		if raw, ok := r.profileSources[moduleID]; ok && raw != "" {
			return ParseSource(raw), true
		}

	case LayerCollection:
		if path, ok := r.collectionModules()[moduleID]; ok {
			return Source{Kind: KindFile, Locator: path}, true
		}

	case LayerPackage:
		if r.packageCheck == nil {
			return Source{Kind: KindPackage, Locator: moduleID}, true
		}
		if name, ok := r.packageCheck(moduleID); ok {
			return Source{Kind: KindPackage, Locator: name}, true
		}
	}
	return Source{}, false
}

// materializedModuleExists checks the workspace convention directory. An
// empty directory (e.g. an uninitialized submodule) does not count.
func (r *Resolver) materializedModuleExists(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Name() != ".git" {
			return true
		}
	}
	return false
}

// collectionModules scans installed collections for module subdirectories,
// once per resolver instance.
func (r *Resolver) collectionModules() map[string]string {
	r.colOnce.Do(func() {
		r.colModules = map[string]string{}
		if r.collections == nil {
			return
		}
		for _, col := range r.collections.List() {
			modulesDir := filepath.Join(col.Path, "modules")
			entries, err := os.ReadDir(modulesDir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				if _, taken := r.colModules[entry.Name()]; !taken {
					r.colModules[entry.Name()] = filepath.Join(modulesDir, entry.Name())
				}
			}
		}
		r.logger.Debug().Int("modules", len(r.colModules)).Msg("Scanned collections for modules")
	})
	return r.colModules
}
