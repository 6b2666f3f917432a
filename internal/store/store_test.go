package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClockAt(epoch)
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), clk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clk
}

func TestCreateUser_AndLookup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Asha", "asha@example.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, epoch, u.CreatedAt)

	got, err := s.UserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "A", "dup@example.com", "h1")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "B", "dup@example.com", "h2")
	require.ErrorIs(t, err, ErrEmailTaken)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserByEmail_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.UserByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "A", "a@example.com", "h")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrUserNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsers_OrderedByID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, e := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		_, err := s.CreateUser(ctx, e, e, "h")
		require.NoError(t, err)
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "c@example.com", users[0].Email)
	assert.Equal(t, "b@example.com", users[2].Email)
}

func TestMonthlyRegistrations(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "a", "a@example.com", "h")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "b", "b@example.com", "h")
	require.NoError(t, err)

	clk.Advance(45 * 24 * time.Hour) // into March
	_, err = s.CreateUser(ctx, "c", "c@example.com", "h")
	require.NoError(t, err)

	counts, err := s.MonthlyRegistrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []MonthlyCount{
		{Month: "2026-01", Count: 2},
		{Month: "2026-03", Count: 1},
	}, counts)
}

func TestMonthlyRegistrations_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	counts, err := s.MonthlyRegistrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func testReport(id, city string, at time.Time) domain.PublishedReport {
	return domain.PublishedReport{
		ID:         id,
		AssessedAt: at,
		RiskReport: domain.RiskReport{
			City:        city,
			FloodProb:   0.4,
			FloodRisk:   domain.RiskMedium,
			CycloneProb: 0.93,
			CycloneRisk: domain.RiskHigh,
		},
	}
}

func TestRecentPredictions_NewestFirstWithLimit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cities := []string{"Chennai", "Mumbai", "Kolkata"}
	for i, c := range cities {
		require.NoError(t, s.RecordPrediction(ctx, testReport(c, c, epoch.Add(time.Duration(i)*time.Minute))))
	}

	preds, err := s.RecentPredictions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Kolkata", preds[0].City)
	assert.Equal(t, "Mumbai", preds[1].City)
	assert.Equal(t, domain.RiskHigh, preds[0].CycloneRisk)
	assert.InDelta(t, 0.4, preds[0].FloodProb, 1e-9)
}

func TestRecordPrediction_DuplicateReportID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordPrediction(ctx, testReport("same", "Chennai", epoch)))
	require.Error(t, s.RecordPrediction(ctx, testReport("same", "Chennai", epoch)))
}

func TestPing(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
