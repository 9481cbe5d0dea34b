package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthHandlerLogin(t *testing.T) {
	env := setupRouter(t)
	_, login := signupAndLogin(t, env, "a@x.com", "010-1111-1111")
	if login.Tokens.AccessToken == "" || login.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens in login response")
	}

	rec := performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "bad"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{"email": "ghost@x.com", "password": "p1"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown email, got %d", rec.Code)
	}
	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestAuthHandlerRefreshAndLogout(t *testing.T) {
	env := setupRouter(t)
	_, login := signupAndLogin(t, env, "a@x.com", "010-1111-1111")

	rec := performRequest(env.router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": login.Tokens.RefreshToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var refreshed struct {
		Tokens struct {
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &refreshed)

	rec = performRequest(env.router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": login.Tokens.RefreshToken}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected rotated token to be rejected, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": refreshed.Tokens.RefreshToken}, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	rec = performRequest(env.router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshed.Tokens.RefreshToken}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rec.Code)
	}
}

func TestAuthHandlerOAuthFlow(t *testing.T) {
	env := setupRouter(t)

	rec := performRequest(env.router, http.MethodGet, "/auth/oauth/naver/login-url", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var urlResp struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &urlResp)
	if urlResp.State == "" || !strings.Contains(urlResp.URL, urlResp.State) {
		t.Fatalf("unexpected login url response: %+v", urlResp)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != oauthStateCookie || cookies[0].Value != urlResp.State {
		t.Fatalf("expected state cookie, got %+v", cookies)
	}

	callback := func(state string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/oauth/naver/callback?code=abc&state="+state, nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	if rec := callback("forged"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for state mismatch, got %d", rec.Code)
	}

	rec = callback(urlResp.State)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Member.Email != "social@x.com" || resp.Member.AuthProvider != "naver" {
		t.Fatalf("unexpected oauth member: %+v", resp.Member)
	}
	if id, err := env.jwt.Validate(resp.Tokens.AccessToken); err != nil || id != resp.Member.ID {
		t.Fatalf("expected valid token for oauth member, got %q (%v)", id, err)
	}
}

func TestAuthHandlerOAuthFailures(t *testing.T) {
	env := setupRouter(t)

	rec := performRequest(env.router, http.MethodGet, "/auth/oauth/github/login-url", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown provider, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodGet, "/auth/oauth/naver/callback?error=access_denied", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 for provider error, got %d", rec.Code)
	}

	env.provider.profile.Email = "not-an-email"
	rec = performRequest(env.router, http.MethodGet, "/auth/oauth/naver/callback?code=abc", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 for malformed profile, got %d", rec.Code)
	}

	env.provider.exchangeErr = errProviderDown
	rec = performRequest(env.router, http.MethodGet, "/auth/oauth/naver/callback?code=abc", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 for exchange failure, got %d", rec.Code)
	}
}
