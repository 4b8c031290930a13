package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/loadout-sh/loadout/pkg/mentions"
	"github.com/loadout-sh/loadout/pkg/mountplan"
)

// AgentMeta identifies an agent.
type AgentMeta struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

// Agent is a partial mount plan applied to sub-sessions. Agents are simpler
// than profiles: no inheritance, no cross-path overlays, first match wins.
type Agent struct {
	Meta      AgentMeta             `yaml:"meta"`
	Providers []mountplan.ModuleRef `yaml:"providers,omitempty" validate:"dive"`
	Tools     []mountplan.ModuleRef `yaml:"tools,omitempty" validate:"dive"`
	Hooks     []mountplan.ModuleRef `yaml:"hooks,omitempty" validate:"dive"`
	Session   map[string]any        `yaml:"session,omitempty"`
	System    *SystemSpec           `yaml:"system,omitempty"`
}

// Fragment converts the agent into the plan-fragment mapping embedded in a
// mount plan's agents section. Name and description are duplicated at the
// top level because the task tool reads them there.
func (a *Agent) Fragment() map[string]any {
	frag := map[string]any{
		"meta": map[string]any{
			"name":        a.Meta.Name,
			"description": a.Meta.Description,
		},
		"name":        a.Meta.Name,
		"description": a.Meta.Description,
	}
	if len(a.Providers) > 0 {
		frag["providers"] = refsToMaps(a.Providers)
	}
	if len(a.Tools) > 0 {
		frag["tools"] = refsToMaps(a.Tools)
	}
	if len(a.Hooks) > 0 {
		frag["hooks"] = refsToMaps(a.Hooks)
	}
	if len(a.Session) > 0 {
		frag["session"] = a.Session
	}
	if a.System != nil && a.System.Instruction != "" {
		frag["system"] = map[string]any{"instruction": a.System.Instruction}
	}
	return frag
}

func refsToMaps(refs []mountplan.ModuleRef) []any {
	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		m := map[string]any{"module": ref.Module}
		if ref.Source != "" {
			m["source"] = ref.Source
		}
		if ref.Config != nil {
			m["config"] = ref.Config
		}
		out = append(out, m)
	}
	return out
}

// AgentLoader discovers and loads agent files from ordered search
// directories. Earlier directories win for the same agent name.
type AgentLoader struct {
	dirs     []string
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAgentLoader creates an agent loader over the given directories.
func NewAgentLoader(dirs []string, logger zerolog.Logger) *AgentLoader {
	return &AgentLoader{
		dirs:     dirs,
		validate: validator.New(),
		logger:   logger.With().Str("component", "agent-loader").Logger(),
	}
}

// ListAgents returns every discoverable agent name, sorted.
func (al *AgentLoader) ListAgents() []string {
	seen := map[string]bool{}
	for _, dir := range al.dirs {
		entries, err := os.ReadDir(dir)
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

// LoadAgent loads and validates a single agent by name.
func (al *AgentLoader) LoadAgent(name string) (*Agent, error) {
	var path string
	for _, dir := range al.dirs {
		candidate := filepath.Join(dir, name+Extension)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			path = candidate
			break
		}
	}
	if path == "" {
		return nil, &mountplan.NotFoundError{Kind: "agent", Name: name, LayersChecked: al.dirs}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent %s: %w", path, err)
	}

	raw, body, err := parseFrontMatter(path, content)
	if err != nil {
		return nil, err
	}
	if body != "" {
		body = mentions.NewExpander(filepath.Dir(path), al.logger).Expand(body)
		setBodyAsInstruction(raw, body)
	}
	// Older agent files carry name/description at the top level.
	if _, ok := raw["meta"]; !ok {
		meta := map[string]any{}
		if v, ok := raw["name"]; ok {
			meta["name"] = v
			delete(raw, "name")
		} else {
			meta["name"] = name
		}
		if v, ok := raw["description"]; ok {
			meta["description"] = v
			delete(raw, "description")
		}
		raw["meta"] = meta
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, &mountplan.ValidationError{Path: path, Message: "failed to re-encode agent", Err: err}
	}
	var agent Agent
	if err := yaml.Unmarshal(data, &agent); err != nil {
		return nil, &mountplan.ValidationError{Path: path, Message: "agent does not match schema", Err: err}
	}
	if err := al.validate.Struct(&agent); err != nil {
		return nil, &mountplan.ValidationError{Path: path, Message: "agent failed validation", Err: err}
	}
	return &agent, nil
}

// LoadNamed loads the given agents by name. Failures are logged and skipped:
// a missing agent must not prevent the rest of the session from starting.
func (al *AgentLoader) LoadNamed(names []string) map[string]map[string]any {
	out := map[string]map[string]any{}
	for _, name := range names {
		agent, err := al.LoadAgent(name)
		if err != nil {
			al.logger.Warn().Err(err).Str("agent", name).Msg("Skipping agent that failed to load")
			continue
		}
		out[name] = agent.Fragment()
	}
	return out
}

// LoadAll loads every discoverable agent, skipping failures like LoadNamed.
func (al *AgentLoader) LoadAll() map[string]map[string]any {
	return al.LoadNamed(al.ListAgents())
}
