package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/taskquest/internal"
)

func TestRequiredXP(t *testing.T) {
	p := testLevelPolicy()
	assert.Equal(t, 1000, p.RequiredXP(1))
	assert.Equal(t, 1100, p.RequiredXP(2))
	assert.Equal(t, 1900, p.RequiredXP(10))
}

func TestAddXPMultiLevelJump(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	p := LevelPolicy{BaseXP: 1000, Increment: 100, DailyXPCap: 10000}

	res, err := AddXP(ctx, s, "u1", 2500, p, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, 400, res.XP) // 2500 - 1000 - 1100
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, levelRewards[3], res.Reward)

	ledger, err := s.GetLedger(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 3, ledger.Level)
	assert.Equal(t, 400, ledger.XP)
}

func TestAddXPNoLevelUp(t *testing.T) {
	s := newTestStorage(t)
	p := testLevelPolicy()

	res, err := AddXP(context.Background(), s, "u1", 300, p, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 300, res.XP)
	assert.False(t, res.LeveledUp)
	assert.Zero(t, res.LevelsGained)
	assert.Empty(t, res.Reward)
}

func TestDailyCapEnforcement(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	p := testLevelPolicy() // cap 400
	now := time.Now()

	// Exactly at the cap succeeds.
	res, err := AddXP(ctx, s, "u1", 400, p, now)
	assert.NoError(t, err)
	assert.Equal(t, 400, res.DailyXP)

	// One more point breaches it and mutates nothing.
	_, err = AddXP(ctx, s, "u1", 1, p, now)
	assert.ErrorIs(t, err, internal.ErrDailyLimitExceeded)

	ledger, err := s.GetLedger(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 400, ledger.DailyXP)
	assert.Equal(t, 400, ledger.XP)

	// The next day the cap applies afresh.
	res, err = AddXP(ctx, s, "u1", 400, p, now.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, 400, res.DailyXP)
}

func TestFixCorruptedXPSelfHealing(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	p := testLevelPolicy()

	// Simulate a historical direct write: total XP stored at level 1.
	_, err := s.UpdateLedger(ctx, "u1", func(l *internal.ProgressionLedger) error {
		l.Level = 1
		l.XP = 2500
		return nil
	})
	assert.NoError(t, err)

	ledger, changed, err := FixCorruptedXP(ctx, s, "u1", p)
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 3, ledger.Level)
	assert.Equal(t, 400, ledger.XP)

	// Second call is a no-op.
	ledger, changed, err = FixCorruptedXP(ctx, s, "u1", p)
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 3, ledger.Level)
	assert.Equal(t, 400, ledger.XP)
}

func TestRecordCompletionCountersAndStreak(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	p := testLevelPolicy()
	day1 := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

	_, err := RecordCompletion(ctx, s, "u1", 50, p, day1)
	assert.NoError(t, err)
	_, err = RecordCompletion(ctx, s, "u1", 50, p, day1.Add(time.Hour))
	assert.NoError(t, err)

	ledger, err := s.GetLedger(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, ledger.CompletedToday)
	assert.Equal(t, 2, ledger.TotalCompleted)
	assert.Equal(t, 1, ledger.Streak) // same day counts once

	// Next day extends the streak and resets the daily counters first.
	day2 := day1.AddDate(0, 0, 1)
	_, err = RecordCompletion(ctx, s, "u1", 50, p, day2)
	assert.NoError(t, err)
	ledger, _ = s.GetLedger(ctx, "u1")
	assert.Equal(t, 2, ledger.Streak)
	assert.Equal(t, 1, ledger.CompletedToday)
	assert.Equal(t, 3, ledger.TotalCompleted)
	assert.Equal(t, 50, ledger.DailyXP)

	// A gap restarts the streak.
	day5 := day2.AddDate(0, 0, 3)
	_, err = RecordCompletion(ctx, s, "u1", 50, p, day5)
	assert.NoError(t, err)
	ledger, _ = s.GetLedger(ctx, "u1")
	assert.Equal(t, 1, ledger.Streak)
}

func TestResetDailyIfStale(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	p := testLevelPolicy()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := AddXP(ctx, s, "u1", 200, p, now)
	assert.NoError(t, err)

	// Same day: counters untouched.
	ledger, err := ResetDailyIfStale(ctx, s, "u1", now.Add(2*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 200, ledger.DailyXP)

	// Next day: daily counters cleared, lifetime state kept.
	ledger, err = ResetDailyIfStale(ctx, s, "u1", now.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Zero(t, ledger.DailyXP)
	assert.Zero(t, ledger.CompletedToday)
	assert.Equal(t, 200, ledger.XP)
}
