// Package scope manages loadout's three-level settings hierarchy.
//
// Settings live in YAML documents at three locations:
//
//   - global:  ~/.loadout/settings.yaml (user-wide defaults)
//   - project: ./.loadout/settings.yaml (shared, checked in)
//   - local:   ./.loadout/settings.local.yaml (personal, git-ignored)
//
// Reads merge the three documents with local taking precedence over project,
// and project over global. Writes always target exactly one scope.
package scope

import (
	"fmt"
	"path/filepath"
)

// Scope identifies one of the three settings levels.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
	ScopeLocal   Scope = "local"
)

// IsValid reports whether the scope is one of the known levels.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeGlobal, ScopeProject, ScopeLocal:
		return true
	}
	return false
}

func (s Scope) String() string {
	return string(s)
}

// ParseScope converts a user-supplied string into a Scope.
func ParseScope(raw string) (Scope, error) {
	s := Scope(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown scope %q (expected global, project, or local)", raw)
	}
	return s, nil
}

// mergeOrder is the read precedence, lowest first. Later scopes win.
var mergeOrder = []Scope{ScopeGlobal, ScopeProject, ScopeLocal}

const (
	configDirName     = ".loadout"
	settingsFileName  = "settings.yaml"
	localSettingsName = "settings.local.yaml"
)

// GlobalDir returns the user-wide configuration directory under home.
func GlobalDir(homeDir string) string {
	return filepath.Join(homeDir, configDirName)
}

// ProjectDir returns the project configuration directory under workDir.
func ProjectDir(workDir string) string {
	return filepath.Join(workDir, configDirName)
}
