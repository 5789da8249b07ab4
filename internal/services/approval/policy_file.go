package approvalservice

import (
	"os"

	"gopkg.in/yaml.v3"

	"brandpulse/pkg/errors"
)

// policyFile is the on-disk shape. Absent sections keep the base values.
type policyFile struct {
	Thresholds *struct {
		AutoApprove        *float64 `yaml:"auto_approve"`
		HumanReview        *float64 `yaml:"human_review"`
		RejectQualityFloor *float64 `yaml:"reject_quality_floor"`
	} `yaml:"thresholds"`
	Weights                 *Weights `yaml:"weights"`
	Rules                   []Rule   `yaml:"rules"`
	HighVisibilityPlatforms []string `yaml:"high_visibility_platforms"`
}

// LoadPolicyFile overlays a YAML policy file onto base
//
//	thresholds: {auto_approve: 0.3, human_review: 0.7}
//	weights: {quality_deficit: 0.3, sentiment_urgency: 0.25, ...}
//	rules:
//	  - {name: weekend, when: "outside_business_hours", bias: 0.1}
func LoadPolicyFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, errors.Wrapf(err, "read approval policy %s", path)
	}
	return ParsePolicy(raw, base)
}

// ParsePolicy overlays YAML policy bytes onto base
func ParsePolicy(raw []byte, base Config) (Config, error) {
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return base, errors.Wrap(err, "parse approval policy")
	}

	cfg := base
	if t := pf.Thresholds; t != nil {
		if t.AutoApprove != nil {
			cfg.LowThreshold = *t.AutoApprove
		}
		if t.HumanReview != nil {
			cfg.HighThreshold = *t.HumanReview
		}
		if t.RejectQualityFloor != nil {
			cfg.RejectQualityFloor = *t.RejectQualityFloor
		}
	}
	if pf.Weights != nil {
		cfg.Weights = *pf.Weights
	}
	if pf.Rules != nil {
		cfg.Rules = pf.Rules
	}
	if pf.HighVisibilityPlatforms != nil {
		cfg.HighVisibilityPlatforms = pf.HighVisibilityPlatforms
	}
	return cfg, nil
}
