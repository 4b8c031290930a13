package mountplan

import (
	"errors"
	"fmt"
	"testing"
)

func TestCheckInvariants_DuplicateModule(t *testing.T) {
	plan := &Plan{
		Session: Session{Orchestrator: "loop-basic", Context: "context-simple"},
		Providers: []ModuleRef{
			{Module: "provider-anthropic"},
			{Module: "provider-anthropic"},
		},
		Tools: []ModuleRef{},
		Hooks: []ModuleRef{},
	}

	err := plan.CheckInvariants()
	if err == nil {
		t.Fatal("Expected duplicate module id to fail invariant check")
	}
	if !IsValidation(err) {
		t.Errorf("Expected ValidationError, got %T", err)
	}
}

func TestCheckInvariants_MissingSession(t *testing.T) {
	plan := &Plan{
		Session:   Session{Context: "context-simple"},
		Providers: []ModuleRef{},
		Tools:     []ModuleRef{},
		Hooks:     []ModuleRef{},
	}

	if err := plan.CheckInvariants(); err == nil {
		t.Fatal("Expected missing orchestrator to fail invariant check")
	}
}

func TestModuleRefClone_NoAliasing(t *testing.T) {
	ref := ModuleRef{
		Module: "tool-task",
		Config: map[string]any{
			"limits": map[string]any{"max_recursion_depth": 2},
		},
	}

	clone := ref.Clone()
	clone.Config["limits"].(map[string]any)["max_recursion_depth"] = 9

	orig := ref.Config["limits"].(map[string]any)["max_recursion_depth"]
	if orig != 2 {
		t.Errorf("Clone aliased nested config: original changed to %v", orig)
	}
}

func TestPlanValidator_ValidPlan(t *testing.T) {
	v, err := NewPlanValidator()
	if err != nil {
		t.Fatalf("Failed to build validator: %v", err)
	}

	plan := &Plan{
		Session: Session{Orchestrator: "loop-basic", Context: "context-simple"},
		Providers: []ModuleRef{
			{Module: "provider-anthropic", Config: map[string]any{"default_model": "claude"}},
		},
		Tools: []ModuleRef{{Module: "tool-filesystem"}},
		Hooks: []ModuleRef{},
	}

	if err := v.Validate(plan); err != nil {
		t.Errorf("Expected valid plan, got: %v", err)
	}
}

func TestPlanValidator_EmptyModuleID(t *testing.T) {
	v, err := NewPlanValidator()
	if err != nil {
		t.Fatalf("Failed to build validator: %v", err)
	}

	plan := &Plan{
		Session:   Session{Orchestrator: "loop-basic", Context: "context-simple"},
		Providers: []ModuleRef{{Module: ""}},
		Tools:     []ModuleRef{},
		Hooks:     []ModuleRef{},
	}

	if err := v.Validate(plan); err == nil {
		t.Error("Expected empty module id to fail validation")
	}
}

func TestErrorPredicates(t *testing.T) {
	cases := []struct {
		err   error
		check func(error) bool
		name  string
	}{
		{&NotFoundError{Kind: "profile", Name: "dev"}, IsNotFound, "NotFound"},
		{&CycleError{Chain: []string{"a", "b", "a"}}, IsCycle, "Cycle"},
		{&ScopeUnavailableError{Scope: "project"}, IsScopeUnavailable, "ScopeUnavailable"},
		{&ValidationError{Message: "bad"}, IsValidation, "Validation"},
	}

	for _, tc := range cases {
		if !tc.check(tc.err) {
			t.Errorf("%s predicate failed on direct error", tc.name)
		}
		wrapped := fmt.Errorf("context: %w", tc.err)
		if !tc.check(wrapped) {
			t.Errorf("%s predicate failed on wrapped error", tc.name)
		}
	}

	if IsNotFound(errors.New("plain")) {
		t.Error("IsNotFound matched a plain error")
	}
}

func TestSummarize(t *testing.T) {
	plan := &Plan{
		Session: Session{Orchestrator: "loop-basic", Context: "context-simple"},
		Providers: []ModuleRef{
			{Module: "provider-anthropic", Config: map[string]any{"default_model": "claude-opus"}},
		},
		Tools: []ModuleRef{{Module: "tool-task"}, {Module: "tool-filesystem"}},
		Hooks: []ModuleRef{{Module: "hooks-streaming-ui"}},
	}

	s := Summarize(plan, "dev")
	if s.Provider != "provider-anthropic" {
		t.Errorf("Expected provider-anthropic, got %s", s.Provider)
	}
	if s.Model != "claude-opus" {
		t.Errorf("Expected claude-opus, got %s", s.Model)
	}
	if s.ToolCount != 2 || s.HookCount != 1 {
		t.Errorf("Wrong counts: tools=%d hooks=%d", s.ToolCount, s.HookCount)
	}
	want := "Profile: dev | Provider: provider-anthropic | claude-opus"
	if s.BannerLine() != want {
		t.Errorf("Banner line mismatch: %s", s.BannerLine())
	}
}

func TestSummarize_NoProviders(t *testing.T) {
	plan := &Plan{
		Session:   Session{Orchestrator: "loop-basic", Context: "context-simple"},
		Providers: []ModuleRef{},
		Tools:     []ModuleRef{},
		Hooks:     []ModuleRef{},
	}

	s := Summarize(plan, "default")
	if s.Provider != "none" || s.Model != "none" {
		t.Errorf("Expected none/none, got %s/%s", s.Provider, s.Model)
	}
}
