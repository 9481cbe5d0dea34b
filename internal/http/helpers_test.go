package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
	"marketplace/internal/service"
)

type mockMemberRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Member
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{byID: make(map[string]domain.Member)}
}

func (m *mockMemberRepo) Create(_ context.Context, member domain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Email == member.Email || (member.PhoneNumber != "" && other.PhoneNumber == member.PhoneNumber) {
			return repository.ErrDuplicate
		}
	}
	m.byID[member.ID] = member
	return nil
}

func (m *mockMemberRepo) GetByID(_ context.Context, id string) (domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.byID[id]
	if !ok {
		return domain.Member{}, repository.ErrNotFound
	}
	return member, nil
}

func (m *mockMemberRepo) first(match func(domain.Member) bool) (domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.byID {
		if match(member) {
			return member, nil
		}
	}
	return domain.Member{}, repository.ErrNotFound
}

func (m *mockMemberRepo) GetByEmail(_ context.Context, email string) (domain.Member, error) {
	return m.first(func(member domain.Member) bool { return member.Email == email })
}

func (m *mockMemberRepo) GetByAuth(_ context.Context, provider, subject string) (domain.Member, error) {
	return m.first(func(member domain.Member) bool {
		return member.AuthProvider == provider && member.AuthSubject == subject
	})
}

func (m *mockMemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockMemberRepo) ExistsByPhoneNumber(_ context.Context, phone string) (bool, error) {
	_, err := m.first(func(member domain.Member) bool { return member.PhoneNumber == phone })
	return err == nil, nil
}

func (m *mockMemberRepo) Update(ctx context.Context, id string, fn func(*domain.Member) error) (domain.Member, error) {
	member, err := m.GetByID(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if err := fn(&member); err != nil {
		return domain.Member{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = member
	return member, nil
}

func (m *mockMemberRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type fakeProvider struct {
	exchangeErr error
	profile     domain.OAuthProfile
}

func (p *fakeProvider) Name() string { return "naver" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://nid.naver.com/oauth2.0/authorize?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, _ string) (string, error) {
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return "provider-token", nil
}

func (p *fakeProvider) FetchUserInfo(_ context.Context, _ string) (domain.OAuthProfile, error) {
	return p.profile, nil
}

type testEnv struct {
	router   *gin.Engine
	jwt      *service.JWTService
	provider *fakeProvider
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMockMemberRepo()
	jwtSvc := service.NewJWTService("secret", "marketplace", 15*time.Minute, time.Hour)
	members := service.NewMemberService(zap.NewNop(), repo, service.NewBcryptEncoder(bcrypt.MinCost), jwtSvc, nil, nil)
	provider := &fakeProvider{profile: domain.OAuthProfile{Subject: "n-1", Email: "social@x.com", Name: "Social"}}
	oauthSvc := service.NewOAuthLoginService(zap.NewNop(), members, jwtSvc, time.Second, provider)

	r := NewRouter(
		zap.NewNop(),
		NewMemberHandler(zap.NewNop(), members),
		NewAuthHandler(zap.NewNop(), members, oauthSvc, jwtSvc),
		jwtSvc,
		prometheus.NewRegistry(),
		func(context.Context) error { return nil },
	)
	return &testEnv{router: r, jwt: jwtSvc, provider: provider}
}

func performRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type loginResponse struct {
	Member domain.MemberView `json:"member"`
	Tokens service.TokenPair `json:"tokens"`
}

// signupAndLogin registra un miembro y devuelve su id y access token.
func signupAndLogin(t *testing.T, env *testEnv, email, phone string) (string, loginResponse) {
	t.Helper()
	rec := performRequest(env.router, http.MethodPost, "/members", map[string]string{
		"email":        email,
		"password":     "p1",
		"name":         "Tester",
		"phone_number": phone,
		"role":         "BUSINESS",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": "p1",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Member.ID, resp
}

var errProviderDown = errors.New("provider down")
