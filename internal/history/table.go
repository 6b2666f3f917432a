// Package history holds the static flood and cyclone datasets and answers
// nearest-record queries against them.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// Coordinate column names shared by both datasets.
const (
	LatitudeColumn  = "Latitude"
	LongitudeColumn = "Longitude"
)

// Kind selects the coordinate schema a dataset must provide.
type Kind string

const (
	// Flood datasets carry Latitude and Longitude.
	Flood Kind = "flood"
	// Cyclone datasets carry Latitude only.
	Cyclone Kind = "cyclone"
)

// Table is a read-only dataset. Records keep source order.
type Table struct {
	kind    Kind
	columns []string
	records []domain.HistoricalRecord
}

// Kind returns the dataset kind.
func (t *Table) Kind() Kind { return t.kind }

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Columns returns the header names in source order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// ColumnSet returns the header names as a set.
func (t *Table) ColumnSet() map[string]bool {
	set := make(map[string]bool, len(t.columns))
	for _, c := range t.columns {
		set[c] = true
	}
	return set
}

// LoadCSV reads a dataset file.
func LoadCSV(path string, kind Kind) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s dataset: %w", kind, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a dataset with a header row. Coordinate columns are required
// on every row; other cells are kept when numeric and dropped otherwise.
func ReadCSV(r io.Reader, kind Kind) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s dataset: %w", kind, domain.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", kind, err)
	}

	columns := make([]string, len(header))
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[i] = h
		colIdx[h] = i
	}

	latIdx, ok := colIdx[LatitudeColumn]
	if !ok {
		return nil, fmt.Errorf("%s dataset: missing %q column", kind, LatitudeColumn)
	}
	lonIdx := -1
	if kind == Flood {
		if lonIdx, ok = colIdx[LongitudeColumn]; !ok {
			return nil, fmt.Errorf("%s dataset: missing %q column", kind, LongitudeColumn)
		}
	}

	t := &Table{kind: kind, columns: columns}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", kind, line, err)
		}

		rec, err := parseRow(len(t.records), row, columns, latIdx, lonIdx)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", kind, line, err)
		}
		t.records = append(t.records, rec)
	}

	if len(t.records) == 0 {
		return nil, fmt.Errorf("%s dataset: %w", kind, domain.ErrEmptyDataset)
	}
	return t, nil
}

func parseRow(index int, row, columns []string, latIdx, lonIdx int) (domain.HistoricalRecord, error) {
	fields := make(map[string]float64, len(columns))
	for i, cell := range row {
		if i >= len(columns) {
			break
		}
		if v, ok := parseNumber(cell); ok {
			fields[columns[i]] = v
		}
	}

	lat, ok := fields[columns[latIdx]]
	if !ok {
		return domain.HistoricalRecord{}, fmt.Errorf("invalid %s value", LatitudeColumn)
	}
	var lon float64
	if lonIdx >= 0 {
		if lon, ok = fields[columns[lonIdx]]; !ok {
			return domain.HistoricalRecord{}, fmt.Errorf("invalid %s value", LongitudeColumn)
		}
	}
	return domain.NewHistoricalRecord(index, lat, lon, fields), nil
}

// parseNumber parses a numeric cell. Empty, non-numeric and NaN cells are
// treated as absent.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
