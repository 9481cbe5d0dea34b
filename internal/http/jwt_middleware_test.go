package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"marketplace/internal/service"
)

func protectedRouter(jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(jwtSvc), func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		caller, hasCaller := service.CallerFromContext(c.Request.Context())
		if !ok || !hasCaller || claims.MemberID != caller {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.String(http.StatusOK, caller)
	})
	return r
}

func TestJWTAuthMiddleware_AllowsValidAccessToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", "marketplace", 15*time.Minute, 30*time.Minute)
	token, err := jwtSvc.GenerateAccessToken("m1", "a@x.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	protectedRouter(jwtSvc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "m1" {
		t.Fatalf("expected 200 with caller m1, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", "marketplace", 15*time.Minute, 30*time.Minute)
	now := time.Now().UTC()
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		MemberID:  "m1",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "marketplace",
			Subject:   "m1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))

	cases := map[string]struct {
		header string
		want   string
	}{
		"missing": {"", "missing token"},
		"basic":   {"Basic abc", "missing token"},
		"garbage": {"Bearer abc", "invalid token"},
		"expired": {"Bearer " + expired, "token expired"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protectedRouter(jwtSvc).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("expected %q in body, got %q", tc.want, rec.Body.String())
			}
		})
	}
}
