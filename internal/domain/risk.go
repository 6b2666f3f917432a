package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Hazard identifies one of the two risk pipelines.
type Hazard string

const (
	HazardFlood   Hazard = "flood"
	HazardCyclone Hazard = "cyclone"
)

// RiskLabel is the categorical band derived from a probability.
type RiskLabel string

const (
	RiskLow    RiskLabel = "Low"
	RiskMedium RiskLabel = "Medium"
	RiskHigh   RiskLabel = "High"
)

// Band thresholds. Each band includes its lower bound.
const (
	MediumThreshold = 0.4
	HighThreshold   = 0.7
)

// Classify maps a probability to its risk band:
//   - p < 0.4        Low
//   - 0.4 <= p < 0.7 Medium
//   - p >= 0.7       High
func Classify(p float64) RiskLabel {
	switch {
	case p < MediumThreshold:
		return RiskLow
	case p < HighThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskAssessment is the classifier output for one hazard.
type RiskAssessment struct {
	Probability float64   `json:"probability"`
	Label       RiskLabel `json:"label"`
}

// NewRiskAssessment pairs a probability with its band.
func NewRiskAssessment(p float64) RiskAssessment {
	return RiskAssessment{Probability: p, Label: Classify(p)}
}

// Alert reports whether the assessment warrants a warning (Medium or above).
func (a RiskAssessment) Alert() bool {
	return a.Probability >= MediumThreshold
}

// RiskReport is the combined result returned for a city.
type RiskReport struct {
	City        string          `json:"city"`
	Weather     WeatherSnapshot `json:"weather"`
	FloodProb   float64         `json:"flood_prob"`
	FloodRisk   RiskLabel       `json:"flood_risk"`
	CycloneProb float64         `json:"cyclone_prob"`
	CycloneRisk RiskLabel       `json:"cyclone_risk"`
}

// NewRiskReport assembles the response shape from both hazard assessments.
func NewRiskReport(city string, weather WeatherSnapshot, flood, cyclone RiskAssessment) RiskReport {
	return RiskReport{
		City:        CapitalizeCity(city),
		Weather:     weather,
		FloodProb:   flood.Probability,
		FloodRisk:   flood.Label,
		CycloneProb: cyclone.Probability,
		CycloneRisk: cyclone.Label,
	}
}

// PublishedReport is the form of a RiskReport written to the assessment sink
// and the prediction store.
type PublishedReport struct {
	ID         string    `json:"id"`
	AssessedAt time.Time `json:"assessed_at"`
	RiskReport
}

// NewPublishedReport stamps a report with an ID and the current clock time.
func NewPublishedReport(id string, report RiskReport) PublishedReport {
	return PublishedReport{
		ID:         id,
		AssessedAt: clock.Now().UTC(),
		RiskReport: report,
	}
}

// CapitalizeCity upper-cases the first letter and lower-cases the rest,
// e.g. "new DELHI" -> "New delhi".
func CapitalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(city)
	return string(unicode.ToUpper(r)) + strings.ToLower(city[size:])
}
