package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yourname/taskquest/internal"
	"github.com/yourname/taskquest/internal/response"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case 400:
		resp = response.BadRequest(msg + ": " + err.Error())
	case 404:
		resp = response.NotFound(msg + ": " + err.Error())
	case 409:
		resp = response.Conflict(msg + ": " + err.Error())
	case 422:
		resp = response.UnprocessableEntity(msg + ": " + err.Error())
	case 500:
		resp = response.InternalError(msg + ": " + err.Error())
	default:
		resp = response.NewAppError(status, msg+": "+err.Error())
	}
	c.JSON(status, resp)
}

// HandleServiceError maps the error taxonomy onto HTTP statuses.
func HandleServiceError(c *gin.Context, logger internal.Logger, err error, msg string) {
	switch {
	case errors.Is(err, internal.ErrNotFound):
		HandleError(c, logger, err, 404, msg)
	case errors.Is(err, internal.ErrValidationFailed):
		HandleError(c, logger, err, 400, msg)
	case errors.Is(err, internal.ErrDuplicateTask):
		HandleError(c, logger, err, 409, msg)
	case errors.Is(err, internal.ErrDailyLimitExceeded):
		HandleError(c, logger, err, 422, msg)
	case errors.Is(err, internal.ErrExternalUnavailable):
		HandleError(c, logger, err, 502, msg)
	default:
		HandleError(c, logger, err, 500, msg)
	}
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}
