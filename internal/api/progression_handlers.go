package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/service"
)

func GetProgression(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		ledger, err := app.LedgerRepo().GetLedger(c.Request.Context(), user.ID)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to fetch progression")
			return
		}
		p := levelPolicy(app.Config())
		HandleSuccess(c, app.Logger(), ledger, map[string]any{
			"required_xp":  p.RequiredXP(ledger.Level),
			"daily_xp_cap": p.DailyXPCap,
		})
	}
}

// PostProgressionRepair re-derives level from XP for ledgers desynced by
// historical direct writes. Idempotent.
func PostProgressionRepair(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		ledger, changed, err := service.FixCorruptedXP(c.Request.Context(), app.LedgerRepo(),
			user.ID, levelPolicy(app.Config()))
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to repair progression")
			return
		}
		HandleSuccess(c, app.Logger(), ledger, map[string]any{"repaired": changed})
	}
}

// PostRollover is the scheduler-facing hook: reset stale daily counters
// and top up the daily task window. Tolerates being called more often
// than needed.
func PostRollover(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		res, err := service.RolloverDaily(c.Request.Context(), app.PlanRepo(), app.TaskRepo(),
			app.LedgerRepo(), user.ID, xpPolicy(app.Config()), app.Config().DailyWindowDays, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Daily rollover failed")
			return
		}
		meta := map[string]any{}
		if len(res.Warnings) > 0 {
			meta["warnings"] = res.Warnings
		}
		HandleSuccess(c, app.Logger(), res, meta)
	}
}
