package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/metrics"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
)

const sessionKey = "chat.session"

// ExtractCredential picks the bearer credential from the permitted handshake
// locations in order: auth payload, query parameter, Authorization header.
// The first non-empty source wins.
func ExtractCredential(payloadToken string, queryToken string, authorization string) string {
	if t := strings.TrimSpace(payloadToken); t != "" {
		return t
	}
	if t := strings.TrimSpace(queryToken); t != "" {
		return t
	}
	return BearerToken(authorization)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" value.
func BearerToken(authorization string) string {
	const prefix = "bearer "
	v := strings.TrimSpace(authorization)
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

// Authenticate resolves the bearer token into a session for the rest of the
// chain and releases its handles once the request is done.
func Authenticate(uc *usecase.AuthenticateUseCase, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		session, err := uc.Execute(ctx, BearerToken(c.GetHeader("Authorization")))
		cancel()
		if err != nil {
			reason := AuthFailureReason(err)
			m.AuthFailed(reason)
			log.Info("request rejected", zap.String("path", c.FullPath()), zap.String("reason", reason), zap.Error(err))

			if errors.Is(err, usecase.ErrResolution) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "tenant partition unavailable"})
				return
			}
			if errors.Is(err, usecase.ErrAuth) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		defer session.Bundle.Release()

		c.Set(sessionKey, session)
		c.Next()
	}
}

// AuthFailureReason labels an authentication error for metrics and logs.
func AuthFailureReason(err error) string {
	switch {
	case errors.Is(err, usecase.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, usecase.ErrAuth):
		return "invalid_credential"
	case errors.Is(err, usecase.ErrResolution):
		return "resolution"
	default:
		return "internal"
	}
}

// SessionFrom returns the session stored by Authenticate.
func SessionFrom(c *gin.Context) *usecase.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*usecase.Session)
	return s
}
