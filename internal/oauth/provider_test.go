package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"marketplace/internal/config"
)

type fakeServer struct {
	tokenStatus int
	profile     string
	lastForm    url.Values
	lastAuth    string
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.lastForm = r.PostForm
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		if f.lastAuth != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.profile))
	})
	return mux
}

func newTestProvider(t *testing.T, name string, f *fakeServer) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	p, err := NewHTTPProvider(name, config.OAuthProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/oauth/" + name + "/callback",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/me",
	}, srv.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestHTTPProvider_Flow(t *testing.T) {
	cases := []struct {
		provider string
		profile  string
		subject  string
		email    string
		name     string
	}{
		{
			provider: ProviderNaver,
			profile:  `{"resultcode":"00","message":"success","response":{"id":"n-1","email":"n@x.com","name":"네이버"}}`,
			subject:  "n-1",
			email:    "n@x.com",
			name:     "네이버",
		},
		{
			provider: ProviderKakao,
			profile:  `{"id":1234567890,"kakao_account":{"email":"k@x.com","profile":{"nickname":"kakao"}}}`,
			subject:  "1234567890",
			email:    "k@x.com",
			name:     "kakao",
		},
		{
			provider: ProviderGoogle,
			profile:  `{"sub":"g-1","email":"g@x.com","name":"Google User"}`,
			subject:  "g-1",
			email:    "g@x.com",
			name:     "Google User",
		},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			f := &fakeServer{profile: tc.profile}
			p := newTestProvider(t, tc.provider, f)

			token, err := p.ExchangeCode(context.Background(), "auth-code")
			if err != nil {
				t.Fatalf("exchange: %v", err)
			}
			if token != "provider-token" {
				t.Fatalf("unexpected token %q", token)
			}
			if f.lastForm.Get("code") != "auth-code" || f.lastForm.Get("client_id") != "client" || f.lastForm.Get("client_secret") != "secret" {
				t.Fatalf("unexpected token request form: %v", f.lastForm)
			}

			profile, err := p.FetchUserInfo(context.Background(), token)
			if err != nil {
				t.Fatalf("fetch user info: %v", err)
			}
			if profile.Provider != tc.provider || profile.Subject != tc.subject || profile.Email != tc.email || profile.Name != tc.name {
				t.Fatalf("unexpected profile: %+v", profile)
			}
		})
	}
}

func TestHTTPProvider_Failures(t *testing.T) {
	t.Run("token endpoint error", func(t *testing.T) {
		p := newTestProvider(t, ProviderNaver, &fakeServer{tokenStatus: http.StatusBadRequest})
		if _, err := p.ExchangeCode(context.Background(), "bad"); err == nil {
			t.Fatalf("expected exchange error")
		}
	})

	t.Run("user info unauthorized", func(t *testing.T) {
		p := newTestProvider(t, ProviderGoogle, &fakeServer{profile: `{}`})
		if _, err := p.FetchUserInfo(context.Background(), "wrong-token"); err == nil || !strings.Contains(err.Error(), "status=401") {
			t.Fatalf("expected http error, got %v", err)
		}
	})

	t.Run("profile without email", func(t *testing.T) {
		p := newTestProvider(t, ProviderKakao, &fakeServer{profile: `{"id":1,"kakao_account":{}}`})
		if _, err := p.FetchUserInfo(context.Background(), "provider-token"); !errors.Is(err, ErrMalformedProfile) {
			t.Fatalf("expected ErrMalformedProfile, got %v", err)
		}
	})

	t.Run("profile with unusable email", func(t *testing.T) {
		p := newTestProvider(t, ProviderGoogle, &fakeServer{profile: `{"sub":"g-1","email":"not-an-email"}`})
		if _, err := p.FetchUserInfo(context.Background(), "provider-token"); !errors.Is(err, ErrMalformedProfile) {
			t.Fatalf("expected ErrMalformedProfile, got %v", err)
		}
	})

	t.Run("naver result code", func(t *testing.T) {
		p := newTestProvider(t, ProviderNaver, &fakeServer{profile: `{"resultcode":"024","message":"Authentication failed"}`})
		if _, err := p.FetchUserInfo(context.Background(), "provider-token"); err == nil || !strings.Contains(err.Error(), "024") {
			t.Fatalf("expected naver result code error, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		p := newTestProvider(t, ProviderGoogle, &fakeServer{profile: `<html>`})
		if _, err := p.FetchUserInfo(context.Background(), "provider-token"); !errors.Is(err, ErrMalformedProfile) {
			t.Fatalf("expected ErrMalformedProfile, got %v", err)
		}
	})
}

func TestHTTPProvider_AuthCodeURL(t *testing.T) {
	p, err := NewHTTPProvider("Kakao", config.OAuthProviderConfig{ClientID: "client", RedirectURL: "http://localhost/cb"}, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	raw := p.AuthCodeURL("state-1")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if u.Host != "kauth.kakao.com" || q.Get("state") != "state-1" || q.Get("client_id") != "client" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected auth url %q", raw)
	}
	if q.Get("redirect_uri") != "http://localhost/cb" {
		t.Fatalf("missing redirect uri in %q", raw)
	}
}

func TestNewHTTPProvider_Validation(t *testing.T) {
	if _, err := NewHTTPProvider("github", config.OAuthProviderConfig{ClientID: "x"}, nil); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := NewHTTPProvider(ProviderNaver, config.OAuthProviderConfig{}, nil); err == nil {
		t.Fatalf("expected error without client id")
	}
}

func TestEnabledProviders(t *testing.T) {
	cfg := &config.Config{
		Naver:  config.OAuthProviderConfig{ClientID: "n"},
		Google: config.OAuthProviderConfig{ClientID: "g"},
	}
	providers, err := EnabledProviders(cfg, nil)
	if err != nil {
		t.Fatalf("enabled providers: %v", err)
	}
	if len(providers) != 2 || providers[0].Name() != ProviderNaver || providers[1].Name() != ProviderGoogle {
		t.Fatalf("unexpected providers")
	}
}
