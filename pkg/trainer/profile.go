package trainer

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile configures one training run. A profile file lets operators change
// the feature set or optimizer settings without a rebuild; every knob has a
// reproducible default.
type Profile struct {
	Algorithm    string   `yaml:"algorithm" json:"algorithm"`
	FeatureNames []string `yaml:"feature_names" json:"feature_names"`
	Epochs       int      `yaml:"epochs" json:"epochs"`
	LearningRate float64  `yaml:"learning_rate" json:"learning_rate"`
	EvalRatio    float64  `yaml:"eval_ratio" json:"eval_ratio"`
	Seed         int64    `yaml:"seed" json:"seed"`
	MinRows      int      `yaml:"min_rows" json:"min_rows"`
}

func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultProfile(), err
	}

	var profile Profile
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return Profile{}, err
	}

	if len(profile.FeatureNames) == 0 {
		return Profile{}, errors.New("training profile has no feature names")
	}

	defaults := DefaultProfile()
	if profile.Algorithm == "" {
		profile.Algorithm = defaults.Algorithm
	}
	if profile.Epochs <= 0 {
		profile.Epochs = defaults.Epochs
	}
	if profile.LearningRate <= 0 {
		profile.LearningRate = defaults.LearningRate
	}
	if profile.EvalRatio <= 0 || profile.EvalRatio >= 1 {
		profile.EvalRatio = defaults.EvalRatio
	}
	if profile.Seed == 0 {
		profile.Seed = defaults.Seed
	}
	if profile.MinRows <= 0 {
		profile.MinRows = defaults.MinRows
	}

	return profile, nil
}

func DefaultProfile() Profile {
	return Profile{
		Algorithm:    "logistic",
		FeatureNames: []string{"age", "attendance_score", "sms_received"},
		Epochs:       1000,
		LearningRate: 0.1,
		EvalRatio:    0.2,
		Seed:         42,
		MinRows:      10,
	}
}
