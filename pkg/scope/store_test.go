package scope

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/mountplan"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func writeSettings(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
}

func TestReadScope_MissingFile(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	doc := store.ReadScope(ScopeGlobal)
	if len(doc) != 0 {
		t.Errorf("Expected empty doc for missing file, got %v", doc)
	}
}

func TestReadScope_MalformedFile(t *testing.T) {
	home := t.TempDir()
	store := NewStore(home, t.TempDir(), testLogger())
	writeSettings(t, store.Path(ScopeGlobal), "{{not yaml")

	doc := store.ReadScope(ScopeGlobal)
	if len(doc) != 0 {
		t.Errorf("Expected empty doc for malformed file, got %v", doc)
	}
}

func TestWriteThenRead_RoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	in := map[string]any{
		"profile": map[string]any{"active": "dev"},
	}
	if err := store.WriteScope(ScopeProject, in); err != nil {
		t.Fatalf("WriteScope failed: %v", err)
	}

	out := store.ReadScope(ScopeProject)
	if got := docString(out, "profile", "active"); got != "dev" {
		t.Errorf("Expected profile.active=dev after round trip, got %q", got)
	}
}

func TestMergedSettings_Precedence(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	store := NewStore(home, work, testLogger())

	writeSettings(t, store.Path(ScopeGlobal), `
logging:
  level: info
  format: json
provider: global-p
`)
	writeSettings(t, store.Path(ScopeProject), `
logging:
  level: debug
`)
	writeSettings(t, store.Path(ScopeLocal), `
provider: local-p
`)

	merged := store.MergedSettings()

	if got := docString(merged, "logging", "level"); got != "debug" {
		t.Errorf("Expected project to override logging.level, got %q", got)
	}
	if got := docString(merged, "logging", "format"); got != "json" {
		t.Errorf("Expected global logging.format to survive merge, got %q", got)
	}
	if got, _ := merged["provider"].(string); got != "local-p" {
		t.Errorf("Expected local to win for provider, got %q", got)
	}
}

func TestActiveProfile_Precedence(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	store := NewStore(home, work, testLogger())

	writeSettings(t, store.Path(ScopeGlobal), "profile:\n  active: global-prof\n")

	name, origin := store.ActiveProfile()
	if name != "global-prof" || origin != "global profile.active" {
		t.Errorf("Expected global selection, got %q from %q", name, origin)
	}

	writeSettings(t, store.Path(ScopeProject), "profile:\n  default: team-prof\n")
	name, _ = store.ActiveProfile()
	if name != "team-prof" {
		t.Errorf("Expected project default to beat global active, got %q", name)
	}

	writeSettings(t, store.Path(ScopeLocal), "profile:\n  active: my-prof\n")
	name, origin = store.ActiveProfile()
	if name != "my-prof" || origin != "local profile.active" {
		t.Errorf("Expected local active to win, got %q from %q", name, origin)
	}
}

func TestActiveProfile_NoneSelected(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	name, origin := store.ActiveProfile()
	if name != "" || origin != "" {
		t.Errorf("Expected no selection, got %q from %q", name, origin)
	}
}

func TestResolveScope_AtHome(t *testing.T) {
	home := t.TempDir()
	store := NewStore(home, home, testLogger())

	if _, _, err := store.ResolveScope(ScopeProject, true); !mountplan.IsScopeUnavailable(err) {
		t.Errorf("Expected ScopeUnavailableError for explicit project scope at home, got %v", err)
	}

	scope, fellBack, err := store.ResolveScope(ScopeLocal, false)
	if err != nil {
		t.Fatalf("Implicit local scope at home should fall back, got error: %v", err)
	}
	if scope != ScopeGlobal || !fellBack {
		t.Errorf("Expected fallback to global, got %s (fellBack=%v)", scope, fellBack)
	}

	scope, fellBack, err = store.ResolveScope(ScopeGlobal, true)
	if err != nil || scope != ScopeGlobal || fellBack {
		t.Errorf("Global scope should always resolve, got %s fellBack=%v err=%v", scope, fellBack, err)
	}
}

func TestResolveScope_InProject(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	scope, fellBack, err := store.ResolveScope(ScopeProject, true)
	if err != nil || scope != ScopeProject || fellBack {
		t.Errorf("Project scope should resolve in a project dir, got %s fellBack=%v err=%v", scope, fellBack, err)
	}
}

func TestSetUnset_DottedKeys(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	if err := store.Set(ScopeLocal, "modules.task.max_depth", 3); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok := store.GetAt(ScopeLocal, "modules.task.max_depth")
	if !ok || v != 3 {
		t.Errorf("Expected modules.task.max_depth=3, got %v (ok=%v)", v, ok)
	}

	if err := store.Unset(ScopeLocal, "modules.task.max_depth"); err != nil {
		t.Fatalf("Unset failed: %v", err)
	}
	if _, ok := store.GetAt(ScopeLocal, "modules.task.max_depth"); ok {
		t.Error("Expected key to be gone after Unset")
	}

	// Unsetting a missing key is a no-op.
	if err := store.Unset(ScopeLocal, "no.such.key"); err != nil {
		t.Errorf("Unset of missing key should not fail: %v", err)
	}
}

func TestSetActiveProfile_ProjectUsesDefaultKey(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	if err := store.SetActiveProfile(ScopeProject, "team"); err != nil {
		t.Fatalf("SetActiveProfile failed: %v", err)
	}
	if v, _ := store.GetAt(ScopeProject, "profile.default"); v != "team" {
		t.Errorf("Expected profile.default in project scope, got %v", v)
	}

	if err := store.SetActiveProfile(ScopeLocal, "mine"); err != nil {
		t.Fatalf("SetActiveProfile failed: %v", err)
	}
	if v, _ := store.GetAt(ScopeLocal, "profile.active"); v != "mine" {
		t.Errorf("Expected profile.active in local scope, got %v", v)
	}
}

func TestSourceFor_Precedence(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	store := NewStore(home, work, testLogger())

	writeSettings(t, store.Path(ScopeGlobal), `
sources:
  tool-task: file:/global/task
`)
	writeSettings(t, store.Path(ScopeProject), `
sources:
  tool-task: file:/project/task
modules:
  tools:
    - module: tool-task
      source: git+https://example.com/task
`)

	ov, ok := store.SourceFor("tool-task")
	if !ok {
		t.Fatal("Expected a source override for tool-task")
	}
	if ov.Source != "git+https://example.com/task" || !ov.Registered {
		t.Errorf("Expected registration-carried source to win within project scope, got %+v", ov)
	}
	if ov.Scope != ScopeProject {
		t.Errorf("Expected project scope to beat global, got %s", ov.Scope)
	}
}

func TestSourceFor_LocalBeatsProjectRegistration(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	store := NewStore(home, work, testLogger())

	writeSettings(t, store.Path(ScopeProject), `
modules:
  tools:
    - module: tool-task
      source: file:/project/task
`)
	writeSettings(t, store.Path(ScopeLocal), `
sources:
  tool-task: file:/local/task
`)

	ov, ok := store.SourceFor("tool-task")
	if !ok {
		t.Fatal("Expected a source override for tool-task")
	}
	if ov.Source != "file:/local/task" || ov.Scope != ScopeLocal {
		t.Errorf("Expected local plain override to beat project registration, got %+v", ov)
	}
}

func TestSourceFor_NoOverride(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), testLogger())

	if _, ok := store.SourceFor("tool-unknown"); ok {
		t.Error("Expected no override for unpinned module")
	}
}
