package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/event"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
)

// classify maps an error onto an HTTP status, an error event code and a
// client-safe message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, usecase.ErrAuth):
		return http.StatusUnauthorized, event.CodeUnauthorized, "authentication failed"
	case errors.Is(err, event.ErrUnknownEvent):
		return http.StatusBadRequest, event.CodeUnsupported, err.Error()
	case errors.Is(err, usecase.ErrValidation), errors.Is(err, event.ErrMalformed):
		return http.StatusBadRequest, event.CodeBadRequest, err.Error()
	case errors.Is(err, usecase.ErrAuthorization):
		return http.StatusForbidden, event.CodeForbidden, err.Error()
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, event.CodeRateLimited, err.Error()
	case errors.Is(err, usecase.ErrResolution):
		return http.StatusServiceUnavailable, event.CodeTenantUnavailable, "tenant partition unavailable"
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusInternalServerError, event.CodeInternal, "unexpected persistence error"
	default:
		return http.StatusInternalServerError, event.CodeInternal, "internal error"
	}
}

func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// bindError answers a request whose path, query or body failed binding.
func bindError(c *gin.Context, err error) {
	writeError(c, zap.NewNop(), fmt.Errorf("%w: %v", usecase.ErrValidation, err))
}
