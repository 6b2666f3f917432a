// Package domain models city-level flood and cyclone risk.
//
// # Inputs
//
// A risk query starts from a [WeatherSnapshot] fetched for a named city
// (temperature in °C, relative humidity in %, sea-level pressure in hPa,
// rainfall over the last hour in mm, and the city's coordinates). Rainfall
// is 0 when the provider reports none.
//
// Each hazard also consults the nearest row of its static historical
// dataset ([HistoricalRecord]). Flood rows are matched by great-circle
// distance on latitude and longitude; cyclone rows by latitude alone.
//
// # Feature assembly
//
// The classifiers were trained on dataset column names that do not match
// the live inputs ("Rainfall (mm)" vs rainfall, "Atmospheric_Pressure" vs
// pressure). The [Assembler] translates with a declarative table of
// [FeatureRule] aliases:
//
//	Rainfall (mm), Rainfall                 -> weather rainfall
//	Temperature (°C), Temperature           -> weather temperature
//	Humidity (%), Humidity                  -> weather humidity
//	Atmospheric_Pressure, Pressure, ...     -> weather pressure
//	Elevation (m)                           -> elevation lookup
//	Historical Floods                       -> nearest record
//	Sea_Surface_Temperature, ...            -> nearest record
//
// A declared name with no rule is read directly from the nearest record. A
// name that resolves nowhere is [ErrUnresolvedFeature]; no default is ever
// substituted for it.
//
// # Risk bands
//
// A probability maps to a [RiskLabel] by [Classify]:
//
//	p < 0.4        Low
//	0.4 <= p < 0.7 Medium
//	p >= 0.7       High
//
// Medium and High assessments raise an alert on the report log line.
package domain
