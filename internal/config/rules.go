package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []domain.FeatureRule `yaml:"rules"`
}

// LoadFeatureRules returns the built-in rule table when path is empty,
// otherwise the table declared in the YAML file at path.
func LoadFeatureRules(path string) ([]domain.FeatureRule, error) {
	if path == "" {
		return domain.DefaultFeatureRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature rules: %w", err)
	}
	return ParseFeatureRules(data)
}

// ParseFeatureRules decodes a YAML rule table. Unknown keys are rejected.
func ParseFeatureRules(data []byte) ([]domain.FeatureRule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f rulesFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feature rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, errors.New("feature rules file declares no rules")
	}
	return f.Rules, nil
}
