package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/service"
)

func PostTask(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)

		var req service.TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid request: text required")
			return
		}
		if err := service.ValidateTaskRequest(&req); err != nil {
			HandleError(c, app.Logger(), err, 400, "Task validation failed")
			return
		}

		task, err := service.CreateTask(c.Request.Context(), app.TaskRepo(), user, &req,
			app.Config().XPDaily, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to create task")
			return
		}
		HandleSuccess(c, app.Logger(), task, nil)
	}
}

func GetTasks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		tasks, err := app.TaskRepo().ListTasks(c.Request.Context(), user.ID)
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to fetch tasks")
			return
		}
		HandleSuccess(c, app.Logger(), tasks, map[string]any{"count": len(tasks)})
	}
}

// GetTodayTasks surfaces the rotator's priority selection.
func GetTodayTasks(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		tasks, err := service.SelectPriority(c.Request.Context(), app.TaskRepo(), user.ID,
			app.Config().PriorityTaskCount, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to select today's tasks")
			return
		}
		HandleSuccess(c, app.Logger(), tasks, map[string]any{"count": len(tasks)})
	}
}

func PostTaskComplete(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		taskID := c.Param("id")

		res, err := service.CompleteTask(c.Request.Context(), app.TaskRepo(), app.LedgerRepo(),
			user.ID, taskID, levelPolicy(app.Config()), time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to complete task")
			return
		}
		HandleSuccess(c, app.Logger(), res, nil)
	}
}

func DeleteTask(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		taskID := c.Param("id")

		if err := app.TaskRepo().DeleteTask(c.Request.Context(), user.ID, taskID); err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to delete task")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"deleted": taskID}, nil)
	}
}

func GetTaskSuggestion(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*internal.User)
		task, err := service.SuggestTask(c.Request.Context(), app.TaskRepo(), app.RotationRepo(),
			user.ID, time.Now())
		if err != nil {
			HandleServiceError(c, app.Logger(), err, "Failed to suggest a task")
			return
		}
		HandleSuccess(c, app.Logger(), task, nil)
	}
}
