package handler

import (
	"context"
	"net/http"
	"strconv"

	"techpay/internal/apperr"
	"techpay/internal/logger"
	"techpay/internal/middleware"
	"techpay/internal/service"
	"techpay/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestContext carries the authenticated user and request id into the
// service layer for the activity log
func requestContext(c *gin.Context) context.Context {
	return service.WithActor(c.Request.Context(), service.Actor{
		Name:      c.GetString(middleware.UserIDKey),
		RequestID: c.GetString(logger.RequestIDKey),
	})
}

// writeError maps a service error to its HTTP status. Internal errors are
// logged and hidden from the caller.
func writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, response.ErrorWithCode(status, apperr.CodeOf(err), msg))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request payload: "+describeBindError(err)))
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "INVALID_ID", "invalid "+name))
		return 0, false
	}
	return uint(id), true
}

// optionalUintQuery reads a positive integer query parameter; absent is nil
func optionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "INVALID_QUERY", "invalid "+name))
		return nil, false
	}
	id := uint(v)
	return &id, true
}
