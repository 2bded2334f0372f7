package database

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_alert_rules.yaml
var defaultAlertRulesYAML []byte

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name       string `yaml:"name"`
	Trigger    string `yaml:"trigger"`
	OffsetDays int    `yaml:"offset_days"`
	Enabled    *bool  `yaml:"enabled"`
	Channels   string `yaml:"channels"`
}

// LoadDefaultAlertRules reads the seed rules from path, or from the embedded
// defaults when path is empty. Rules are enabled unless they say otherwise.
func LoadDefaultAlertRules(path string) ([]AlertRule, error) {
	data := defaultAlertRulesYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read alert rules file: %w", err)
		}
	}
	return ParseAlertRules(data)
}

// ParseAlertRules decodes a YAML rules document.
func ParseAlertRules(data []byte) ([]AlertRule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse alert rules: %w", err)
	}

	rules := make([]AlertRule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		if spec.Name == "" {
			return nil, fmt.Errorf("alert rule #%d: name is required", i+1)
		}
		trigger := spec.Trigger
		if trigger == "" {
			trigger = TriggerWarrantyEndDate
		}
		rule := AlertRule{
			Name:       spec.Name,
			Trigger:    trigger,
			OffsetDays: spec.OffsetDays,
			Enabled:    spec.Enabled == nil || *spec.Enabled,
		}
		if spec.Channels != "" {
			channels := spec.Channels
			rule.Channels = &channels
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
