package history

import (
	"fmt"
	"math"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// Outcome columns used for dataset statistics.
const (
	FloodOutcomeColumn   = "Flood Occurred"
	CycloneOutcomeColumn = "Cyclone"
)

// earthRadiusKm is the IUGG mean earth radius.
const earthRadiusKm = 6371.0088

// Store is the load-once historical feature store. Tables are never written
// after construction; every query computes distances in local variables, so a
// Store is safe for concurrent use.
type Store struct {
	flood   *Table
	cyclone *Table
}

// NewStore pairs the two datasets. Both must be present and non-empty.
func NewStore(flood, cyclone *Table) (*Store, error) {
	if flood == nil || flood.Len() == 0 {
		return nil, fmt.Errorf("flood dataset: %w", domain.ErrEmptyDataset)
	}
	if cyclone == nil || cyclone.Len() == 0 {
		return nil, fmt.Errorf("cyclone dataset: %w", domain.ErrEmptyDataset)
	}
	if flood.Kind() != Flood {
		return nil, fmt.Errorf("flood dataset has kind %q", flood.Kind())
	}
	if cyclone.Kind() != Cyclone {
		return nil, fmt.Errorf("cyclone dataset has kind %q", cyclone.Kind())
	}
	return &Store{flood: flood, cyclone: cyclone}, nil
}

// Load reads both datasets from disk.
func Load(floodPath, cyclonePath string) (*Store, error) {
	flood, err := LoadCSV(floodPath, Flood)
	if err != nil {
		return nil, err
	}
	cyclone, err := LoadCSV(cyclonePath, Cyclone)
	if err != nil {
		return nil, err
	}
	return NewStore(flood, cyclone)
}

// FloodTable returns the flood dataset.
func (s *Store) FloodTable() *Table { return s.flood }

// CycloneTable returns the cyclone dataset.
func (s *Store) CycloneTable() *Table { return s.cyclone }

// NearestFlood returns the flood record with the smallest great-circle
// distance to (lat, lon). Ties go to the earliest record.
func (s *Store) NearestFlood(lat, lon float64) (domain.HistoricalRecord, error) {
	return nearest(s.flood, func(r domain.HistoricalRecord) float64 {
		return GreatCircleKm(lat, lon, r.Lat, r.Lon)
	})
}

// NearestCyclone returns the cyclone record whose latitude is closest to lat.
// The cyclone dataset has no longitude, so longitude plays no part. Ties go to
// the earliest record.
func (s *Store) NearestCyclone(lat float64) (domain.HistoricalRecord, error) {
	return nearest(s.cyclone, func(r domain.HistoricalRecord) float64 {
		return math.Abs(r.Lat - lat)
	})
}

func nearest(t *Table, dist func(domain.HistoricalRecord) float64) (domain.HistoricalRecord, error) {
	if t == nil || len(t.records) == 0 {
		return domain.HistoricalRecord{}, domain.ErrEmptyDataset
	}

	best := 0
	bestDist := dist(t.records[0])
	for i := 1; i < len(t.records); i++ {
		// Strict comparison keeps the first occurrence on ties.
		if d := dist(t.records[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return t.records[best], nil
}

// GreatCircleKm returns the haversine distance in kilometers between two
// WGS-84 coordinates given in degrees.
func GreatCircleKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DatasetStats summarizes one dataset.
type DatasetStats struct {
	Records     int `json:"records"`
	Occurrences int `json:"occurrences"`
}

// Stats summarizes both datasets.
type Stats struct {
	Flood   DatasetStats `json:"flood"`
	Cyclone DatasetStats `json:"cyclone"`
}

// Stats counts records and positive outcomes per dataset.
func (s *Store) Stats() Stats {
	return Stats{
		Flood:   tableStats(s.flood, FloodOutcomeColumn),
		Cyclone: tableStats(s.cyclone, CycloneOutcomeColumn),
	}
}

func tableStats(t *Table, outcome string) DatasetStats {
	st := DatasetStats{Records: t.Len()}
	for _, r := range t.records {
		if v, ok := r.Field(outcome); ok && v >= 1 {
			st.Occurrences++
		}
	}
	return st
}
