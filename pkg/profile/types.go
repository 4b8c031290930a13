// Package profile loads, merges, and compiles session profiles.
//
// A profile is a markdown document with a YAML front-matter section that
// declares the session's orchestrator, context, and module lists, and a free
// body used as the system instruction. Profiles inherit from each other via
// profile.extends; the loader flattens inheritance chains into a single
// effective profile, and the compiler turns that profile (plus overlays) into
// a mount plan.
package profile

import (
	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// Meta identifies a profile and names its optional parent.
type Meta struct {
	Name        string `yaml:"name" validate:"required"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	// Model pins the session model as "provider/model". Optional.
	Model string `yaml:"model,omitempty"`

	// Extends names the parent profile. Empty means no inheritance.
	Extends string `yaml:"extends,omitempty"`
}

// SessionSpec declares the two modules every session mounts first.
type SessionSpec struct {
	Orchestrator *mountplan.ModuleRef `yaml:"orchestrator" validate:"required"`
	Context      *mountplan.ModuleRef `yaml:"context" validate:"required"`
}

// AgentsSpec controls which agents the compiled plan carries. Exactly one of
// three modes applies: inline-only (neither Dirs nor Include set), include
// (load the named agents), or dirs (load everything discoverable).
type AgentsSpec struct {
	Dirs    []string                  `yaml:"dirs,omitempty"`
	Include []string                  `yaml:"include,omitempty"`
	Inline  map[string]map[string]any `yaml:"inline,omitempty"`
}

// TaskSpec configures sub-agent task execution. It is injected into the
// task tool's own config block at compile time.
type TaskSpec struct {
	MaxRecursionDepth int `yaml:"max_recursion_depth"`
}

// UISpec configures terminal rendering. It is injected into the streaming-UI
// hook's config block at compile time. Pointer fields distinguish "unset"
// from explicit false/zero so defaults apply only to unset fields.
type UISpec struct {
	ShowThinkingStream *bool `yaml:"show_thinking_stream,omitempty"`
	ShowToolLines      *int  `yaml:"show_tool_lines,omitempty"`
}

// LoggingSpec is passed through to the runtime's logging layer untouched.
type LoggingSpec struct {
	CaptureModelIO bool     `yaml:"capture_model_io"`
	Redaction      []string `yaml:"redaction,omitempty"`
}

// SystemSpec carries the system instruction. When the profile body is
// non-empty and no explicit instruction is declared, the loader fills
// Instruction from the body.
type SystemSpec struct {
	Instruction string `yaml:"instruction"`
}

// Profile is a fully parsed (and, after inheritance, fully merged) profile
// document. Module list fields validate each entry's module id.
type Profile struct {
	Meta      Meta                  `yaml:"profile"`
	Session   *SessionSpec          `yaml:"session,omitempty"`
	Agents    *AgentsSpec           `yaml:"agents,omitempty"`
	Task      *TaskSpec             `yaml:"task,omitempty"`
	Logging   *LoggingSpec          `yaml:"logging,omitempty"`
	UI        *UISpec               `yaml:"ui,omitempty"`
	System    *SystemSpec           `yaml:"system,omitempty"`
	Providers []mountplan.ModuleRef `yaml:"providers,omitempty" validate:"dive"`
	Tools     []mountplan.ModuleRef `yaml:"tools,omitempty" validate:"dive"`
	Hooks     []mountplan.ModuleRef `yaml:"hooks,omitempty" validate:"dive"`

	// Path is the file the profile (the child document, for inherited
	// profiles) was loaded from. Not part of the document.
	Path string `yaml:"-"`

	// Origin classifies where Path lives: "user", "project", "collection",
	// or "bundled". Not part of the document.
	Origin string `yaml:"-"`
}
