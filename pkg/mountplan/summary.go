package mountplan

import "fmt"

// Summary is a display-friendly digest of an assembled plan, used by the CLI
// banner and the plan command's human output.
type Summary struct {
	Profile      string `json:"profile"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Orchestrator string `json:"orchestrator"`
	ToolCount    int    `json:"tool_count"`
	HookCount    int    `json:"hook_count"`
	AgentCount   int    `json:"agent_count"`
}

// Summarize extracts a Summary from a plan. The first provider entry is
// treated as the session's primary provider; a plan with no providers still
// summarizes (the runtime surfaces the degraded state interactively).
func Summarize(p *Plan, profileName string) Summary {
	s := Summary{
		Profile:      profileName,
		Provider:     "none",
		Model:        "none",
		Orchestrator: p.Session.Orchestrator,
		ToolCount:    len(p.Tools),
		HookCount:    len(p.Hooks),
		AgentCount:   len(p.Agents),
	}
	if len(p.Providers) > 0 {
		first := p.Providers[0]
		s.Provider = first.Module
		if model, ok := first.Config["default_model"].(string); ok && model != "" {
			s.Model = model
		} else {
			s.Model = "default"
		}
	}
	return s
}

// BannerLine formats the summary as a single line for terminal display.
func (s Summary) BannerLine() string {
	return fmt.Sprintf("Profile: %s | Provider: %s | %s", s.Profile, s.Provider, s.Model)
}
