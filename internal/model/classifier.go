// Package model loads the pre-trained flood and cyclone classifiers and wraps
// them with the risk band mapping.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// Classifier is a binary classifier with a declared, ordered input schema.
type Classifier interface {
	// FeatureNames returns the ordered input schema.
	FeatureNames() []string
	// PredictProba returns the two-class probability pair for one sample;
	// index 1 is the positive class.
	PredictProba(x []float64) ([2]float64, error)
}

// Artifact kinds.
const (
	KindRandomForest = "random_forest"
	KindFormula      = "formula"
)

// Assess runs clf on vec and maps the positive-class probability to a band.
// vec must carry exactly clf's schema, in order.
func Assess(clf Classifier, vec domain.FeatureVector) (domain.RiskAssessment, error) {
	schema := clf.FeatureNames()
	if !vec.Matches(schema) {
		return domain.RiskAssessment{}, fmt.Errorf("%w: vector %q, classifier %q", domain.ErrSchemaMismatch, vec.Names(), schema)
	}

	proba, err := clf.PredictProba(vec.Values())
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("predict: %w", err)
	}
	return domain.NewRiskAssessment(proba[1]), nil
}

type artifactHeader struct {
	Kind string `json:"kind"`
}

// Load reads a classifier artifact and dispatches on its "kind" field.
func Load(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	clf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clf, nil
}

// Parse decodes a classifier artifact.
func Parse(data []byte) (Classifier, error) {
	var hdr artifactHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	switch hdr.Kind {
	case KindRandomForest:
		var f Forest
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode random forest: %w", err)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		return &f, nil
	case KindFormula:
		var art struct {
			Hazard domain.Hazard `json:"hazard"`
		}
		if err := json.Unmarshal(data, &art); err != nil {
			return nil, fmt.Errorf("decode formula: %w", err)
		}
		return NewFormula(art.Hazard)
	case "":
		return nil, errors.New("model artifact has no kind")
	default:
		return nil, fmt.Errorf("unsupported model kind %q", hdr.Kind)
	}
}
