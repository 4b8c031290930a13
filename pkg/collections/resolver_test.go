package collections

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

func makeCollection(t *testing.T, root, name, manifest string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create collection dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte(manifest), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
}

func TestResolve_Found(t *testing.T) {
	root := t.TempDir()
	makeCollection(t, root, "starter", "name: Starter Kit\nversion: 1.0.0\n")

	r := NewResolver([]string{root}, zerolog.Nop())
	col, err := r.Resolve("starter")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if col.Name != "starter" {
		t.Errorf("Expected directory name as address, got %q", col.Name)
	}
	if col.Manifest.Version != "1.0.0" {
		t.Errorf("Expected manifest version, got %q", col.Manifest.Version)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := NewResolver([]string{t.TempDir()}, zerolog.Nop())

	_, err := r.Resolve("missing")
	if !mountplan.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestResolve_DirectoryWithoutMarkerIsNotACollection(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "plain"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewResolver([]string{root}, zerolog.Nop())
	if _, err := r.Resolve("plain"); !mountplan.IsNotFound(err) {
		t.Errorf("Expected NotFoundError for marker-less dir, got %v", err)
	}
}

func TestResolve_EarlierRootShadowsLater(t *testing.T) {
	project := t.TempDir()
	global := t.TempDir()
	makeCollection(t, project, "kit", "version: 2.0.0\n")
	makeCollection(t, global, "kit", "version: 1.0.0\n")

	r := NewResolver([]string{project, global}, zerolog.Nop())
	col, err := r.Resolve("kit")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if col.Manifest.Version != "2.0.0" {
		t.Errorf("Expected project copy to shadow global, got version %q", col.Manifest.Version)
	}
}

func TestList(t *testing.T) {
	project := t.TempDir()
	global := t.TempDir()
	makeCollection(t, project, "beta", "version: 2.0.0\n")
	makeCollection(t, global, "alpha", "version: 1.0.0\n")
	makeCollection(t, global, "beta", "version: 1.0.0\n")

	r := NewResolver([]string{project, global}, zerolog.Nop())
	cols := r.List()
	if len(cols) != 2 {
		t.Fatalf("Expected 2 collections, got %d", len(cols))
	}
	if cols[0].Name != "alpha" || cols[1].Name != "beta" {
		t.Errorf("Expected sorted names, got %s, %s", cols[0].Name, cols[1].Name)
	}
	if cols[1].Manifest.Version != "2.0.0" {
		t.Errorf("Expected project beta to shadow global, got %q", cols[1].Manifest.Version)
	}
}

func TestList_MissingRootsIgnored(t *testing.T) {
	r := NewResolver([]string{"/nonexistent/path"}, zerolog.Nop())
	if got := r.List(); len(got) != 0 {
		t.Errorf("Expected empty list for missing roots, got %d entries", len(got))
	}
}
