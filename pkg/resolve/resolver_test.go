package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/collections"
	"github.com/loadout-sh/loadout/pkg/mountplan"
	"github.com/loadout-sh/loadout/pkg/scope"
)

func newTestResolver(t *testing.T, workDir string, scopes *scope.Store, cols *collections.Resolver, pc PackageChecker) *Resolver {
	t.Helper()
	return NewResolver(workDir, scopes, cols, pc, zerolog.Nop())
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"tool-task":     "LOADOUT_MODULE_TOOL_TASK",
		"provider.x":    "LOADOUT_MODULE_PROVIDER_X",
		"simple":        "LOADOUT_MODULE_SIMPLE",
		"with123digits": "LOADOUT_MODULE_WITH123DIGITS",
	}
	for id, want := range cases {
		if got := EnvKey(id); got != want {
			t.Errorf("EnvKey(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestParseSource(t *testing.T) {
	cases := []struct {
		raw  string
		want Source
	}{
		{"git+https://example.com/mod", Source{Kind: KindGit, Locator: "https://example.com/mod", Ref: "main"}},
		{"git+https://example.com/mod@v2", Source{Kind: KindGit, Locator: "https://example.com/mod", Ref: "v2"}},
		{"git+https://example.com/mod@v2#sub/dir", Source{Kind: KindGit, Locator: "https://example.com/mod", Ref: "v2", Subdir: "sub/dir"}},
		{"/abs/path", Source{Kind: KindFile, Locator: "/abs/path"}},
		{"./rel/path", Source{Kind: KindFile, Locator: "./rel/path"}},
		{"file:///abs/path", Source{Kind: KindFile, Locator: "/abs/path"}},
		{"my-package", Source{Kind: KindPackage, Locator: "my-package"}},
	}
	for _, tc := range cases {
		if got := ParseSource(tc.raw); got != tc.want {
			t.Errorf("ParseSource(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestResolve_EnvBeatsScopeLocal(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	scopes := scope.NewStore(home, work, zerolog.Nop())
	if err := scopes.Set(scope.ScopeLocal, "sources.tool-task", "file:/from/scope"); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvKey("tool-task"), "/from/env")

	r := newTestResolver(t, work, scopes, nil, nil)
	src, layer, err := r.ResolveWithLayer("tool-task")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerEnvOverride {
		t.Errorf("Expected env-override layer, got %s", layer)
	}
	if src.Kind != KindFile || src.Locator != "/from/env" {
		t.Errorf("Unexpected source: %+v", src)
	}
}

func TestResolve_ScopePrecedence(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	scopes := scope.NewStore(home, work, zerolog.Nop())
	if err := scopes.Set(scope.ScopeGlobal, "sources.tool-x", "/global/x"); err != nil {
		t.Fatal(err)
	}
	if err := scopes.Set(scope.ScopeProject, "sources.tool-x", "/project/x"); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(t, work, scopes, nil, nil)
	src, layer, err := r.ResolveWithLayer("tool-x")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerScopeProject || src.Locator != "/project/x" {
		t.Errorf("Expected project scope to win, got %s from %s", src.Locator, layer)
	}
}

func TestResolve_WorkspaceMaterialized(t *testing.T) {
	work := t.TempDir()
	modDir := filepath.Join(work, ".loadout", "modules", "tool-local")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modDir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(t, work, nil, nil, nil)
	src, layer, err := r.ResolveWithLayer("tool-local")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerWorkspace || src.Kind != KindFile {
		t.Errorf("Expected workspace layer file source, got %+v from %s", src, layer)
	}
}

func TestResolve_EmptyWorkspaceDirSkipped(t *testing.T) {
	work := t.TempDir()
	if err := os.MkdirAll(filepath.Join(work, ".loadout", "modules", "tool-empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(t, work, nil, nil, nil)
	_, layer, err := r.ResolveWithLayer("tool-empty")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerPackage {
		t.Errorf("Empty workspace dir must not match, got layer %s", layer)
	}
}

func TestResolve_ProfileDeclared(t *testing.T) {
	r := newTestResolver(t, t.TempDir(), nil, nil, nil)
	r.SetProfileSources(map[string]string{"tool-pinned": "git+https://example.com/pinned"})

	src, layer, err := r.ResolveWithLayer("tool-pinned")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerProfile || src.Kind != KindGit {
		t.Errorf("Expected profile-declared git source, got %+v from %s", src, layer)
	}
}

func TestResolve_CollectionDiscovered(t *testing.T) {
	colRoot := t.TempDir()
	modDir := filepath.Join(colRoot, "kit", "modules", "tool-bundled")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(colRoot, "kit", collections.MarkerFile), []byte("name: kit\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cols := collections.NewResolver([]string{colRoot}, zerolog.Nop())
	r := newTestResolver(t, t.TempDir(), nil, cols, nil)

	src, layer, err := r.ResolveWithLayer("tool-bundled")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerCollection || src.Locator != modDir {
		t.Errorf("Expected collection-discovered source %s, got %+v from %s", modDir, src, layer)
	}
}

func TestResolve_PackageFallback(t *testing.T) {
	r := newTestResolver(t, t.TempDir(), nil, nil, nil)

	src, layer, err := r.ResolveWithLayer("tool-installed")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if layer != LayerPackage || src.Kind != KindPackage || src.Locator != "tool-installed" {
		t.Errorf("Expected package fallback, got %+v from %s", src, layer)
	}
}

func TestResolve_NotFoundListsLayers(t *testing.T) {
	checker := func(string) (string, bool) { return "", false }
	r := newTestResolver(t, t.TempDir(), nil, nil, checker)

	_, err := r.Resolve("tool-nowhere")
	if !mountplan.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	var nf *mountplan.NotFoundError
	if errors.As(err, &nf) && len(nf.LayersChecked) != len(layerOrder) {
		t.Errorf("Expected all %d layers listed, got %v", len(layerOrder), nf.LayersChecked)
	}
}

func TestResolve_RegistrationBeatsPlainAtSameScope(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	scopes := scope.NewStore(home, work, zerolog.Nop())
	doc := map[string]any{
		"sources": map[string]any{"tool-y": "/plain/y"},
		"modules": map[string]any{
			"tools": []any{
				map[string]any{"module": "tool-y", "source": "/registered/y"},
			},
		},
	}
	if err := scopes.WriteScope(scope.ScopeProject, doc); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver(t, work, scopes, nil, nil)
	src, _, err := r.ResolveWithLayer("tool-y")
	if err != nil {
		t.Fatalf("ResolveWithLayer failed: %v", err)
	}
	if src.Locator != "/registered/y" {
		t.Errorf("Registration-carried source must win within a scope, got %+v", src)
	}
}
