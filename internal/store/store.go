// Package store persists registered users and recent risk predictions in a
// single local SQLite database.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Prediction is one persisted risk report.
type Prediction struct {
	ID          uint             `gorm:"primaryKey" json:"-"`
	ReportID    string           `gorm:"uniqueIndex" json:"id"`
	City        string           `json:"city"`
	FloodProb   float64          `json:"flood_prob"`
	FloodRisk   domain.RiskLabel `json:"flood_risk"`
	CycloneProb float64          `json:"cyclone_prob"`
	CycloneRisk domain.RiskLabel `json:"cyclone_risk"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// MonthlyCount is the number of registrations in one calendar month.
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// Store wraps the GORM handle.
type Store struct {
	db    *gorm.DB
	clock clockwork.Clock
}

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string, clock clockwork.Clock) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&User{}, &Prediction{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, clock: clock}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateUser inserts a user. A duplicate email yields ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.clock.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		return tx.Create(u).Error
	})
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByEmail looks up a user by exact email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MonthlyRegistrations counts users by the calendar month (UTC) of their
// CreatedAt, oldest month first.
func (s *Store) MonthlyRegistrations(ctx context.Context) ([]MonthlyCount, error) {
	var stamps []time.Time
	if err := s.db.WithContext(ctx).Model(&User{}).Pluck("created_at", &stamps).Error; err != nil {
		return nil, fmt.Errorf("monthly registrations: %w", err)
	}

	counts := make(map[string]int)
	for _, ts := range stamps {
		counts[ts.UTC().Format("2006-01")]++
	}

	out := make([]MonthlyCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthlyCount{Month: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// RecordPrediction persists a published report.
func (s *Store) RecordPrediction(ctx context.Context, report domain.PublishedReport) error {
	p := Prediction{
		ReportID:    report.ID,
		City:        report.City,
		FloodProb:   report.FloodProb,
		FloodRisk:   report.FloodRisk,
		CycloneProb: report.CycloneProb,
		CycloneRisk: report.CycloneRisk,
		CreatedAt:   report.AssessedAt,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return fmt.Errorf("record prediction for %s: %w", report.City, err)
	}
	return nil
}

// RecentPredictions returns at most limit predictions, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]Prediction, error) {
	var preds []Prediction
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&preds).Error
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	return preds, nil
}
