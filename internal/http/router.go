package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketplace/internal/service"
)

// HealthChecker reporta si las dependencias del proceso responden.
type HealthChecker func(ctx context.Context) error

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	memberH *MemberHandler,
	authH *AuthHandler,
	jwtSvc *service.JWTService,
	gatherer prometheus.Gatherer,
	health HealthChecker,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, metricas y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(), jsonContentTypeMiddleware())

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", healthHandler(health))

	r.POST("/members", memberH.Signup)

	auth := r.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)
	auth.POST("/logout", authH.Logout)
	auth.GET("/oauth/:provider/login-url", authH.OAuthLoginURL)
	auth.GET("/oauth/:provider/callback", authH.OAuthCallback)

	members := r.Group("/members", JWTAuthMiddleware(jwtSvc))
	members.GET("/me", memberH.Me)
	members.GET("/:id", memberH.GetMember)
	members.PATCH("/:id", memberH.UpdateMember)
	members.POST("/:id/password-check", memberH.PasswordCheck)

	return r
}

func healthHandler(check HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
