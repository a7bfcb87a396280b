package planning

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/degreeplan-backend/internal/modules/planning/steps"
)

//go:embed level_patches.yaml
var defaultLevelPatchesYAML []byte

// DefaultLevelPatches returns the built-in patches.
func DefaultLevelPatches() (steps.LevelPatches, error) {
	return ParseLevelPatches(defaultLevelPatchesYAML)
}

// LoadLevelPatches reads level patches keyed by course display name. An empty
// path yields the built-in patches.
func LoadLevelPatches(path string) (steps.LevelPatches, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultLevelPatches()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level patches: %w", err)
	}
	return ParseLevelPatches(raw)
}

func ParseLevelPatches(raw []byte) (steps.LevelPatches, error) {
	patches := steps.LevelPatches{}
	if err := yaml.Unmarshal(raw, &patches); err != nil {
		return nil, fmt.Errorf("parse level patches: %w", err)
	}
	v := validator.New()
	for course, level := range patches {
		if err := v.Struct(level); err != nil {
			return nil, fmt.Errorf("level patch for %q: %w", course, err)
		}
	}
	return patches, nil
}
