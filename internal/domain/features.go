package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Rule sources. A rule's Source is one of the weather fields, the elevation
// lookup, or "history:<column>" for a named column on the nearest record.
const (
	SourceRainfall    = "weather:rainfall"
	SourceTemperature = "weather:temperature"
	SourceHumidity    = "weather:humidity"
	SourcePressure    = "weather:pressure"
	SourceElevation   = "elevation"

	historySourcePrefix = "history:"
)

// HistorySource returns the rule source that reads column from the nearest
// historical record.
func HistorySource(column string) string {
	return historySourcePrefix + column
}

// FeatureRule maps the accepted spellings of one feature concept to the place
// its value comes from.
type FeatureRule struct {
	Concept string   `yaml:"concept"`
	Aliases []string `yaml:"aliases"`
	Source  string   `yaml:"source"`
}

// DefaultFeatureRules is the translation table between the column names the
// flood and cyclone classifiers were trained on and the live inputs.
func DefaultFeatureRules() []FeatureRule {
	return []FeatureRule{
		{Concept: "rainfall", Aliases: []string{"Rainfall (mm)", "Rainfall"}, Source: SourceRainfall},
		{Concept: "temperature", Aliases: []string{"Temperature (°C)", "Temperature"}, Source: SourceTemperature},
		{Concept: "humidity", Aliases: []string{"Humidity (%)", "Humidity"}, Source: SourceHumidity},
		{Concept: "pressure", Aliases: []string{"Atmospheric_Pressure", "Pressure", "Pressure (hPa)"}, Source: SourcePressure},
		{Concept: "elevation", Aliases: []string{"Elevation (m)"}, Source: SourceElevation},
		{Concept: "historical_floods", Aliases: []string{"Historical Floods"}, Source: HistorySource("Historical Floods")},
		{
			Concept: "sea_surface_temperature",
			Aliases: []string{"Sea_Surface_Temperature", "Sea_Surface_Temperature (°C)"},
			Source:  HistorySource("Sea_Surface_Temperature"),
		},
	}
}

// FeatureVector is an ordered mapping from feature name to value.
type FeatureVector struct {
	names  []string
	values []float64
}

// Names returns the feature names in order.
func (v FeatureVector) Names() []string {
	return append([]string(nil), v.names...)
}

// Values returns the feature values in order.
func (v FeatureVector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Len is the number of features.
func (v FeatureVector) Len() int { return len(v.names) }

// Get returns the value for a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Matches reports whether the vector's names equal schema in the same order.
func (v FeatureVector) Matches(schema []string) bool {
	if len(v.names) != len(schema) {
		return false
	}
	for i := range schema {
		if v.names[i] != schema[i] {
			return false
		}
	}
	return true
}

type assemblyInput struct {
	weather WeatherSnapshot
	nearest HistoricalRecord
}

type resolveFunc func(ctx context.Context, in assemblyInput) (float64, error)

type compiledRule struct {
	concept string
	source  string
	resolve resolveFunc
}

// Assembler turns a weather snapshot and the nearest historical record into
// the exact feature vector a classifier declares. It holds no per-request
// state and is safe for concurrent use.
type Assembler struct {
	rules     []FeatureRule
	byAlias   map[string]compiledRule
	elevation ElevationProvider
}

// NewAssembler compiles the rule table. An alias claimed by two rules, an
// empty alias, or an unknown source is a construction error.
func NewAssembler(rules []FeatureRule, elevation ElevationProvider) (*Assembler, error) {
	a := &Assembler{
		rules:     append([]FeatureRule(nil), rules...),
		byAlias:   make(map[string]compiledRule),
		elevation: elevation,
	}
	for _, r := range rules {
		resolve, err := a.compileSource(r.Source)
		if err != nil {
			return nil, fmt.Errorf("feature rule %q: %w", r.Concept, err)
		}
		if len(r.Aliases) == 0 {
			return nil, fmt.Errorf("feature rule %q: no aliases", r.Concept)
		}
		for _, alias := range r.Aliases {
			if alias == "" {
				return nil, fmt.Errorf("feature rule %q: empty alias", r.Concept)
			}
			if prev, dup := a.byAlias[alias]; dup {
				return nil, fmt.Errorf("feature alias %q claimed by both %q and %q", alias, prev.concept, r.Concept)
			}
			a.byAlias[alias] = compiledRule{concept: r.Concept, source: r.Source, resolve: resolve}
		}
	}
	return a, nil
}

// Rules returns a copy of the compiled rule table.
func (a *Assembler) Rules() []FeatureRule {
	return append([]FeatureRule(nil), a.rules...)
}

func (a *Assembler) compileSource(source string) (resolveFunc, error) {
	switch source {
	case SourceRainfall:
		return func(_ context.Context, in assemblyInput) (float64, error) { return in.weather.Rainfall, nil }, nil
	case SourceTemperature:
		return func(_ context.Context, in assemblyInput) (float64, error) { return in.weather.Temperature, nil }, nil
	case SourceHumidity:
		return func(_ context.Context, in assemblyInput) (float64, error) { return in.weather.Humidity, nil }, nil
	case SourcePressure:
		return func(_ context.Context, in assemblyInput) (float64, error) { return in.weather.Pressure, nil }, nil
	case SourceElevation:
		return a.resolveElevation, nil
	}

	column, ok := strings.CutPrefix(source, historySourcePrefix)
	if !ok || column == "" {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	return func(_ context.Context, in assemblyInput) (float64, error) {
		return historyField(in.nearest, column)
	}, nil
}

func (a *Assembler) resolveElevation(ctx context.Context, in assemblyInput) (float64, error) {
	if a.elevation == nil {
		return 0, errors.New("no elevation provider configured")
	}
	return a.elevation.Elevation(ctx, in.weather.Lat, in.weather.Lon)
}

func historyField(rec HistoricalRecord, column string) (float64, error) {
	v, ok := rec.Field(column)
	if !ok {
		return 0, fmt.Errorf("%w: %q absent from historical record (row %d)", ErrUnresolvedFeature, column, rec.Row)
	}
	return v, nil
}

// Assemble resolves every name in schema, in order. Names without a rule fall
// back to a direct column lookup on nearest; a miss is ErrUnresolvedFeature.
// No default value is ever substituted.
func (a *Assembler) Assemble(ctx context.Context, schema []string, weather WeatherSnapshot, nearest HistoricalRecord) (FeatureVector, error) {
	if len(schema) == 0 {
		return FeatureVector{}, fmt.Errorf("%w: classifier declares no features", ErrSchemaMismatch)
	}

	in := assemblyInput{weather: weather, nearest: nearest}
	vec := FeatureVector{
		names:  make([]string, 0, len(schema)),
		values: make([]float64, 0, len(schema)),
	}
	seen := make(map[string]struct{}, len(schema))

	for _, name := range schema {
		if _, dup := seen[name]; dup {
			return FeatureVector{}, fmt.Errorf("%w: duplicate feature %q", ErrSchemaMismatch, name)
		}
		seen[name] = struct{}{}

		var (
			v   float64
			err error
		)
		if rule, ok := a.byAlias[name]; ok {
			v, err = rule.resolve(ctx, in)
		} else {
			v, err = historyField(nearest, name)
		}
		if err != nil {
			return FeatureVector{}, fmt.Errorf("resolve feature %q: %w", name, err)
		}

		vec.names = append(vec.names, name)
		vec.values = append(vec.values, v)
	}
	return vec, nil
}

// Unresolved lists the schema names that could not be resolved against a
// dataset with the given columns. It performs no lookups.
func (a *Assembler) Unresolved(schema []string, columns map[string]bool) []string {
	var missing []string
	for _, name := range schema {
		column := name
		if rule, ok := a.byAlias[name]; ok {
			c, isHistory := strings.CutPrefix(rule.source, historySourcePrefix)
			if !isHistory {
				continue
			}
			column = c
		}
		if !columns[column] {
			missing = append(missing, name)
		}
	}
	return missing
}
