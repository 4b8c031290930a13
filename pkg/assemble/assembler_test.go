package assemble

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/loadout-sh/loadout/pkg/mountplan"
	"github.com/loadout-sh/loadout/pkg/profile"
	"github.com/loadout-sh/loadout/pkg/scope"
)

type fixture struct {
	assembler  *Assembler
	scopes     *scope.Store
	profileDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	home := t.TempDir()
	work := t.TempDir()
	profileDir := filepath.Join(work, ".loadout", "profiles")

	scopes := scope.NewStore(home, work, zerolog.Nop())
	loader := profile.NewLoader([]profile.SearchPath{{Dir: profileDir, Origin: "project"}}, nil, zerolog.Nop())
	compiler := profile.NewCompiler(nil, zerolog.Nop())

	return &fixture{
		assembler:  NewAssembler(scopes, loader, compiler, zerolog.Nop()),
		scopes:     scopes,
		profileDir: profileDir,
	}
}

func (f *fixture) writeProfile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(f.profileDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.profileDir, name+profile.Extension), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const devProfile = `---
profile:
  name: dev
session:
  orchestrator:
    module: loop-streaming
  context:
    module: context-simple
providers:
  - module: provider-anthropic
    config:
      default_model: claude
      timeout: 30
tools:
  - module: tool-filesystem
---
`

func TestAssemble_MissingProfileFallsBackToSkeleton(t *testing.T) {
	f := newFixture(t)

	res := f.assembler.Assemble("", Overrides{})

	if !res.Degraded {
		t.Error("Expected degraded result when profile is missing")
	}
	if res.Plan.Session.Orchestrator != DefaultOrchestrator {
		t.Errorf("Expected skeleton orchestrator, got %q", res.Plan.Session.Orchestrator)
	}
	if len(res.Plan.Providers) != 0 {
		t.Errorf("Skeleton must be provider-less, got %+v", res.Plan.Providers)
	}
	if res.ProfileName != DefaultProfile {
		t.Errorf("Expected system default profile name, got %q", res.ProfileName)
	}
}

func TestAssemble_ProfileApplied(t *testing.T) {
	f := newFixture(t)
	f.writeProfile(t, "dev", devProfile)
	if err := f.scopes.SetActiveProfile(scope.ScopeLocal, "dev"); err != nil {
		t.Fatal(err)
	}

	res := f.assembler.Assemble("", Overrides{})

	if res.Degraded {
		t.Fatal("Expected successful profile application")
	}
	if res.ProfileName != "dev" || res.ProfileOrigin != "local profile.active" {
		t.Errorf("Unexpected attribution: %q from %q", res.ProfileName, res.ProfileOrigin)
	}
	if res.Plan.Session.Orchestrator != "loop-streaming" {
		t.Errorf("Profile session not applied: %+v", res.Plan.Session)
	}
	if len(res.Plan.Providers) != 1 || res.Plan.Providers[0].Config["default_model"] != "claude" {
		t.Errorf("Profile providers not applied: %+v", res.Plan.Providers)
	}
}

func TestAssemble_ExplicitOverrideBeatsSettings(t *testing.T) {
	f := newFixture(t)
	f.writeProfile(t, "dev", devProfile)
	f.writeProfile(t, "other", devProfile)
	if err := f.scopes.SetActiveProfile(scope.ScopeLocal, "other"); err != nil {
		t.Fatal(err)
	}

	res := f.assembler.Assemble("dev", Overrides{})
	if res.ProfileName != "dev" {
		t.Errorf("Explicit profile override must win, got %q", res.ProfileName)
	}
}

func TestAssemble_SettingsModulesPatchConfig(t *testing.T) {
	f := newFixture(t)
	f.writeProfile(t, "dev", devProfile)

	doc := map[string]any{
		"modules": map[string]any{
			"tools": []any{
				map[string]any{
					"module": "tool-filesystem",
					"config": map[string]any{"read_only": true},
				},
				map[string]any{"module": "tool-web"},
			},
		},
	}
	if err := f.scopes.WriteScope(scope.ScopeProject, doc); err != nil {
		t.Fatal(err)
	}

	res := f.assembler.Assemble("dev", Overrides{})
	if res.Degraded {
		t.Fatal("Unexpected degraded result")
	}

	var names []string
	for _, tool := range res.Plan.Tools {
		names = append(names, tool.Module)
	}
	if len(names) != 2 || names[0] != "tool-filesystem" || names[1] != "tool-web" {
		t.Fatalf("Unexpected tool list: %v", names)
	}
	if res.Plan.Tools[0].Config["read_only"] != true {
		t.Errorf("Settings patch not applied: %+v", res.Plan.Tools[0].Config)
	}
}

// The compiler replaces a matching entry's config wholesale; the assembler
// preserves base keys the overlay does not mention. Both behaviors on the
// same inputs, side by side.
func TestConfigMerge_CompilerVersusAssembler(t *testing.T) {
	base := []mountplan.ModuleRef{
		{Module: "x", Config: map[string]any{"k1": 1, "k2": 2}},
	}
	overlay := []mountplan.ModuleRef{
		{Module: "x", Config: map[string]any{"k2": 9}},
	}

	compiled, err := profile.NewCompiler(nil, zerolog.Nop()).Compile(&profile.Profile{
		Meta: profile.Meta{Name: "base"},
		Session: &profile.SessionSpec{
			Orchestrator: &mountplan.ModuleRef{Module: "loop-basic"},
			Context:      &mountplan.ModuleRef{Module: "context-simple"},
		},
		Tools: base,
	}, &profile.Profile{Meta: profile.Meta{Name: "overlay"}, Tools: overlay})
	if err != nil {
		t.Fatal(err)
	}
	compilerConfig := compiled.Tools[0].Config
	if _, has := compilerConfig["k1"]; has {
		t.Errorf("Compiler must drop k1, got %+v", compilerConfig)
	}
	if compilerConfig["k2"] != 9 {
		t.Errorf("Compiler must take overlay k2, got %+v", compilerConfig)
	}

	patched := patchModuleList(base, overlay)
	assemblerConfig := patched[0].Config
	if assemblerConfig["k1"] != 1 || assemblerConfig["k2"] != 9 {
		t.Errorf("Assembler must preserve k1 and take overlay k2, got %+v", assemblerConfig)
	}
}

func TestAssemble_SettingsProvidersWithoutProfile(t *testing.T) {
	f := newFixture(t)

	doc := map[string]any{
		"config": map[string]any{
			"providers": []any{
				map[string]any{
					"module": "provider-openai",
					"config": map[string]any{"default_model": "gpt"},
				},
			},
		},
	}
	if err := f.scopes.WriteScope(scope.ScopeGlobal, doc); err != nil {
		t.Fatal(err)
	}

	res := f.assembler.Assemble("", Overrides{})
	if !res.Degraded {
		t.Fatal("Expected degraded result (no profile on disk)")
	}
	if len(res.Plan.Providers) != 1 || res.Plan.Providers[0].Module != "provider-openai" {
		t.Errorf("Settings providers must apply directly when the profile path failed: %+v", res.Plan.Providers)
	}
}

func TestAssemble_SettingsProvidersNotDoubleApplied(t *testing.T) {
	f := newFixture(t)
	f.writeProfile(t, "dev", devProfile)

	doc := map[string]any{
		"config": map[string]any{
			"providers": []any{
				map[string]any{
					"module": "provider-anthropic",
					"config": map[string]any{"default_model": "override"},
				},
			},
		},
	}
	if err := f.scopes.WriteScope(scope.ScopeGlobal, doc); err != nil {
		t.Fatal(err)
	}

	res := f.assembler.Assemble("dev", Overrides{})
	if res.Degraded {
		t.Fatal("Unexpected degraded result")
	}
	if len(res.Plan.Providers) != 1 {
		t.Fatalf("Provider override must not duplicate the entry: %+v", res.Plan.Providers)
	}
	// Applied through the compiler overlay path: entry replaced wholesale.
	cfg := res.Plan.Providers[0].Config
	if cfg["default_model"] != "override" {
		t.Errorf("Settings provider override not applied: %+v", cfg)
	}
	if _, has := cfg["timeout"]; has {
		t.Errorf("Compiler-path application replaces wholesale; timeout should be gone: %+v", cfg)
	}
}

func TestAssemble_CLIOverridesApplyLast(t *testing.T) {
	f := newFixture(t)
	f.writeProfile(t, "dev", devProfile)

	res := f.assembler.Assemble("dev", Overrides{Provider: "provider-openai", Model: "gpt-5"})
	if res.Plan.Provider != "provider-openai" || res.Plan.Model != "gpt-5" {
		t.Errorf("CLI overrides not applied: provider=%q model=%q", res.Plan.Provider, res.Plan.Model)
	}
	// Shallow overwrite only: the providers list is untouched.
	if len(res.Plan.Providers) != 1 || res.Plan.Providers[0].Module != "provider-anthropic" {
		t.Errorf("CLI overrides must not touch module lists: %+v", res.Plan.Providers)
	}
}

func TestAssemble_EnvExpansion(t *testing.T) {
	f := newFixture(t)
	f.writeProfile(t, "dev", `---
profile:
  name: dev
session:
  orchestrator:
    module: loop-basic
  context:
    module: context-simple
providers:
  - module: provider-anthropic
    config:
      api_key: ${TEST_LOADOUT_KEY}
      endpoint: ${TEST_LOADOUT_ENDPOINT:https://default.example}
      missing: ${TEST_LOADOUT_UNSET}
---
`)
	t.Setenv("TEST_LOADOUT_KEY", "sk-123")
	os.Unsetenv("TEST_LOADOUT_ENDPOINT")
	os.Unsetenv("TEST_LOADOUT_UNSET")

	res := f.assembler.Assemble("dev", Overrides{})
	cfg := res.Plan.Providers[0].Config
	if cfg["api_key"] != "sk-123" {
		t.Errorf("Set variable not expanded: %v", cfg["api_key"])
	}
	if cfg["endpoint"] != "https://default.example" {
		t.Errorf("Default not applied for unset variable: %v", cfg["endpoint"])
	}
	if cfg["missing"] != "" {
		t.Errorf("Unset variable without default must expand to empty, got %v", cfg["missing"])
	}
}

func TestExpandString(t *testing.T) {
	t.Setenv("TEST_EXPAND_FOO", "baz")
	cases := map[string]string{
		"${TEST_EXPAND_FOO}":            "baz",
		"${TEST_EXPAND_NOPE}":           "",
		"${TEST_EXPAND_NOPE:bar}":       "bar",
		"prefix ${TEST_EXPAND_FOO} suf": "prefix baz suf",
		"no placeholders":               "no placeholders",
	}
	for in, want := range cases {
		if got := ExpandString(in); got != want {
			t.Errorf("ExpandString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeepMergeMaps(t *testing.T) {
	base := map[string]any{
		"scalar": 1,
		"nested": map[string]any{"a": 1, "b": 2},
		"list":   []any{1, 2},
	}
	overlay := map[string]any{
		"scalar": 2,
		"nested": map[string]any{"b": 9},
		"list":   []any{3},
	}

	got := deepMergeMaps(base, overlay)
	if got["scalar"] != 2 {
		t.Errorf("Scalar not replaced: %+v", got)
	}
	nested := got["nested"].(map[string]any)
	if nested["a"] != 1 || nested["b"] != 9 {
		t.Errorf("Nested merge broken: %+v", nested)
	}
	if list := got["list"].([]any); len(list) != 1 {
		t.Errorf("Non-map values replace outright: %+v", list)
	}
}
