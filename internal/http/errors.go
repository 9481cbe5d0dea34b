package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/service"
)

// statusFor traduce los errores del servicio a status HTTP y un mensaje publico.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "member not found"
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "member already exists"
	case errors.Is(err, service.ErrReusedCredential):
		return http.StatusConflict, "password was used recently"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, service.ErrOAuthExchangeFailed):
		return http.StatusBadGateway, "oauth login failed"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
	} else {
		logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
