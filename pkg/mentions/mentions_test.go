package mentions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestExtract(t *testing.T) {
	text := "Follow @docs/style.md and @docs/style.md plus @rules.md\nContact me at me@example.com"
	got := Extract(text)
	if len(got) != 2 {
		t.Fatalf("Expected 2 unique mentions, got %v", got)
	}
	if got[0] != "docs/style.md" || got[1] != "rules.md" {
		t.Errorf("Unexpected mentions: %v", got)
	}
	for _, m := range got {
		if strings.Contains(m, "example.com") {
			t.Errorf("Email address captured as mention: %v", got)
		}
	}
}

func TestExpand_PrependsContent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "style.md"), []byte("Use tabs.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewExpander(dir, zerolog.Nop())
	out := e.Expand("Follow @style.md strictly")

	if !strings.HasPrefix(out, "<!-- from @style.md -->\nUse tabs.") {
		t.Errorf("Expected mention content prepended, got:\n%s", out)
	}
	if !strings.HasSuffix(out, "Follow @style.md strictly") {
		t.Errorf("Expected original text preserved at the end, got:\n%s", out)
	}
}

func TestExpand_UnreadableMentionSkipped(t *testing.T) {
	e := NewExpander(t.TempDir(), zerolog.Nop())
	text := "See @missing.md for details"
	if out := e.Expand(text); out != text {
		t.Errorf("Expected text unchanged when all mentions fail, got:\n%s", out)
	}
}

func TestExpand_NoMentions(t *testing.T) {
	e := NewExpander(t.TempDir(), zerolog.Nop())
	text := "No references here"
	if out := e.Expand(text); out != text {
		t.Errorf("Expected text unchanged, got %q", out)
	}
}
