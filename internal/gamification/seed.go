package gamification

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codebro/backend/internal/models"
)

//go:embed achievements.yaml
var defaultAchievements []byte

type seedFile struct {
	Achievements []models.Achievement `yaml:"achievements"`
}

// LoadAchievements reads definitions from path, or the embedded defaults
// when path is empty.
func LoadAchievements(path string) ([]models.Achievement, error) {
	raw := defaultAchievements
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read achievements seed: %w", err)
		}
		raw = b
	}
	return ParseAchievements(raw)
}

func ParseAchievements(raw []byte) ([]models.Achievement, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse achievements seed: %w", err)
	}

	seen := make(map[string]bool, len(f.Achievements))
	for i, a := range f.Achievements {
		switch {
		case a.Name == "":
			return nil, fmt.Errorf("achievement %d: name is required", i)
		case seen[a.Name]:
			return nil, fmt.Errorf("achievement %q: duplicate name", a.Name)
		case !models.ValidCriteriaTypes[a.CriteriaType]:
			return nil, fmt.Errorf("achievement %q: unknown criteria_type %q", a.Name, a.CriteriaType)
		case a.CriteriaValue < 0:
			return nil, fmt.Errorf("achievement %q: criteria_value must not be negative", a.Name)
		}
		seen[a.Name] = true
	}
	return f.Achievements, nil
}
