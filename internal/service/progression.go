package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/storage"
)

// LevelPolicy is the leveling cost curve plus the daily XP cap.
type LevelPolicy struct {
	BaseXP     int
	Increment  int
	DailyXPCap int
}

// RequiredXP is the XP needed to clear the given level. Strictly
// increasing, so the level-up loop always terminates.
func (p LevelPolicy) RequiredXP(level int) int {
	return p.BaseXP + (level-1)*p.Increment
}

// Sparse reward table keyed by reached level.
var levelRewards = map[int]string{
	2:  "Momentum: you cleared your first level",
	3:  "Habit forming: three levels in",
	5:  "Consistency badge unlocked",
	10: "Double digits: veteran planner",
	20: "Long-haul achiever",
	50: "Half a century of levels",
}

type XPResult struct {
	Level        int    `json:"level"`
	XP           int    `json:"xp"`
	DailyXP      int    `json:"daily_xp"`
	LeveledUp    bool   `json:"leveled_up"`
	LevelsGained int    `json:"levels_gained"`
	Reward       string `json:"reward,omitempty"`
}

// rollDailyCounters clears the daily counters when the ledger's last
// reset was on an earlier calendar day. Called inside every atomic
// ledger mutation so a late or missed scheduler run cannot leave stale
// daily totals blocking the cap.
func rollDailyCounters(l *internal.ProgressionLedger, now time.Time) {
	if sameDay(l.LastDailyReset, now) {
		return
	}
	l.DailyXP = 0
	l.CompletedToday = 0
	l.LastDailyReset = startOfDay(now)
}

// grantXP applies amount to the ledger under the daily cap and walks the
// level-up loop. Returns ErrDailyLimitExceeded without mutating when the
// cap would be breached; an amount landing exactly on the cap succeeds.
func grantXP(l *internal.ProgressionLedger, amount int, p LevelPolicy, now time.Time) (XPResult, error) {
	rollDailyCounters(l, now)
	if l.DailyXP+amount > p.DailyXPCap {
		return XPResult{}, fmt.Errorf("daily XP cap of %d reached: %w", p.DailyXPCap, internal.ErrDailyLimitExceeded)
	}
	l.DailyXP += amount
	l.XP += amount
	gained := 0
	for l.XP >= p.RequiredXP(l.Level) {
		l.XP -= p.RequiredXP(l.Level)
		l.Level++
		gained++
	}
	l.LastActivity = now
	res := XPResult{
		Level:        l.Level,
		XP:           l.XP,
		DailyXP:      l.DailyXP,
		LeveledUp:    gained > 0,
		LevelsGained: gained,
	}
	if gained > 0 {
		res.Reward = levelRewards[l.Level]
	}
	return res, nil
}

// AddXP grants XP to the user's ledger as one atomic read-modify-write.
func AddXP(ctx context.Context, ledgerRepo storage.LedgerRepository, userID string, amount int, p LevelPolicy, now time.Time) (*XPResult, error) {
	var res XPResult
	_, err := ledgerRepo.UpdateLedger(ctx, userID, func(l *internal.ProgressionLedger) error {
		r, err := grantXP(l, amount, p, now)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// updateStreak advances the running streak for a completion at now.
// Same-day activity leaves it unchanged, consecutive days increment,
// anything else restarts at 1.
func updateStreak(l *internal.ProgressionLedger, now time.Time) {
	switch {
	case l.LastActivity.IsZero() || l.Streak == 0:
		l.Streak = 1
	case sameDay(l.LastActivity, now):
		// already counted today
	case sameDay(l.LastActivity.AddDate(0, 0, 1), now):
		l.Streak++
	default:
		l.Streak = 1
	}
}

// RecordCompletion books one task completion: XP under the cap, the
// completion counters and the streak, in a single atomic ledger update.
func RecordCompletion(ctx context.Context, ledgerRepo storage.LedgerRepository, userID string, xp int, p LevelPolicy, now time.Time) (*XPResult, error) {
	var res XPResult
	_, err := ledgerRepo.UpdateLedger(ctx, userID, func(l *internal.ProgressionLedger) error {
		updateStreak(l, now)
		r, err := grantXP(l, xp, p, now)
		if err != nil {
			return err
		}
		l.CompletedToday++
		l.TotalCompleted++
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FixCorruptedXP re-derives level from accumulated XP when historical
// direct writes left XP at or above the level's requirement. Walks the
// same cost curve as grantXP; a consistent ledger is left untouched, so
// repeated calls are no-ops.
func FixCorruptedXP(ctx context.Context, ledgerRepo storage.LedgerRepository, userID string, p LevelPolicy) (*internal.ProgressionLedger, bool, error) {
	changed := false
	led, err := ledgerRepo.UpdateLedger(ctx, userID, func(l *internal.ProgressionLedger) error {
		if l.Level < 1 {
			l.Level = 1
			changed = true
		}
		for l.XP >= p.RequiredXP(l.Level) {
			l.XP -= p.RequiredXP(l.Level)
			l.Level++
			changed = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return led, changed, nil
}

// ResetDailyIfStale performs the daily reset when the last one happened
// on an earlier day. The reset is the only operation allowed to decrease
// a ledger counter. Idempotent within a day.
func ResetDailyIfStale(ctx context.Context, ledgerRepo storage.LedgerRepository, userID string, now time.Time) (*internal.ProgressionLedger, error) {
	return ledgerRepo.UpdateLedger(ctx, userID, func(l *internal.ProgressionLedger) error {
		rollDailyCounters(l, now)
		return nil
	})
}
