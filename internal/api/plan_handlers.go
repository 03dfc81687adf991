package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/service"
)

func PostPlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		var req service.PlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid request: vision required")
			return
		}
		if err := service.ValidatePlanRequest(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Plan validation failed")
			return
		}

		plan, res, err := service.CreatePlan(c.Request.Context(), app.PlanRepo(), app.TaskRepo(),
			app.Generator(), user, &req, xpPolicy(app.Config()), app.Config().DailyWindowDays, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to create plan")
			return
		}

		meta := map[string]any{"tasks_created": res.TasksCreated}
		if len(res.Warnings) > 0 {
			meta["warnings"] = res.Warnings
		}
		HandleSuccess(c, app.Logger(), plan, meta)
	}
}

func GetActivePlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		plan, err := app.PlanRepo().GetActivePlan(c.Request.Context(), user.ID)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "No active plan for user")
			return
		}
		HandleSuccess(c, app.Logger(), plan, nil)
	}
}

func PostPlanConfirm(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		plan, err := service.ConfirmPlan(c.Request.Context(), app.PlanRepo(), user.ID, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to confirm plan")
			return
		}
		HandleSuccess(c, app.Logger(), plan, nil)
	}
}

type AdjustRequest struct {
	Feedback    string `json:"feedback" binding:"required"`
	UserContext string `json:"user_context,omitempty"`
}

func PostPlanAdjust(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		var req AdjustRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid request: feedback required")
			return
		}

		plan, err := app.PlanRepo().GetActivePlan(c.Request.Context(), user.ID)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "No active plan to adjust")
			return
		}

		// No safe local fallback for partial edits; collaborator errors
		// surface to the caller.
		revised, err := app.Generator().AdjustPlan(c.Request.Context(), plan, req.Feedback, req.UserContext)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Plan adjustment failed")
			return
		}

		res, err := service.Adjust(c.Request.Context(), app.PlanRepo(), app.TaskRepo(), plan, revised,
			req.Feedback, req.UserContext, xpPolicy(app.Config()), app.Config().DailyWindowDays, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Plan adjustment rejected")
			return
		}

		meta := map[string]any{"tasks_removed": res.TasksRemoved, "daily_backfilled": res.DailyBackfilled}
		if len(res.Warnings) > 0 {
			meta["warnings"] = res.Warnings
		}
		HandleSuccess(c, app.Logger(), plan, meta)
	}
}

func GetPlanProgress(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		plan, err := service.RefreshPlanProgress(c.Request.Context(), app.PlanRepo(), app.TaskRepo(), user.ID, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to compute plan progress")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{
			"progress":   plan.Progress,
			"easy_goals": plan.EasyGoals,
		}, nil)
	}
}
