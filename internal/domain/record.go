package domain

// HistoricalRecord is one row of a static hazard dataset. Numeric columns are
// exposed by their source header name; non-numeric cells are absent.
// Records are built once at load time and never mutated.
type HistoricalRecord struct {
	Row    int // 0-based position in source order
	Lat    float64
	Lon    float64 // zero for datasets without a longitude column
	fields map[string]float64
}

// NewHistoricalRecord builds a record. The fields map is copied.
func NewHistoricalRecord(row int, lat, lon float64, fields map[string]float64) HistoricalRecord {
	cp := make(map[string]float64, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return HistoricalRecord{Row: row, Lat: lat, Lon: lon, fields: cp}
}

// Field returns the numeric value of a named column.
func (r HistoricalRecord) Field(name string) (float64, bool) {
	v, ok := r.fields[name]
	return v, ok
}
