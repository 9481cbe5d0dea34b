package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"marketplace/internal/config"
	"marketplace/internal/domain"
)

const maxUserInfoBytes = 1 << 20

var (
	ErrUnknownProvider  = errors.New("unknown oauth provider")
	ErrMalformedProfile = errors.New("malformed oauth profile")
)

// HTTPProvider intercambia codigos de autorizacion y lee el perfil del usuario
// contra los endpoints HTTP de un proveedor.
type HTTPProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	client      *http.Client
	decode      profileDecoder
}

// NewHTTPProvider completa los endpoints que falten con los del proveedor conocido.
func NewHTTPProvider(name string, cfg config.OAuthProviderConfig, client *http.Client) (*HTTPProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	defaults, ok := knownProviders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("%s client id is required", name)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaults.scopes
	}
	return &HTTPProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, defaults.authURL),
				TokenURL:  orDefault(cfg.TokenURL, defaults.tokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: orDefault(cfg.UserInfoURL, defaults.userInfoURL),
		client:      client,
		decode:      defaults.decode,
	}, nil
}

// EnabledProviders construye los proveedores que tienen client id configurado.
func EnabledProviders(cfg *config.Config, client *http.Client) ([]*HTTPProvider, error) {
	configured := []struct {
		name string
		cfg  config.OAuthProviderConfig
	}{
		{ProviderNaver, cfg.Naver},
		{ProviderKakao, cfg.Kakao},
		{ProviderGoogle, cfg.Google},
	}
	var providers []*HTTPProvider
	for _, c := range configured {
		if !c.cfg.Enabled() {
			continue
		}
		p, err := NewHTTPProvider(c.name, c.cfg, client)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *HTTPProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%s token exchange: %w", p.name, err)
	}
	return token.AccessToken, nil
}

func (p *HTTPProvider) FetchUserInfo(ctx context.Context, accessToken string) (domain.OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return domain.OAuthProfile{}, fmt.Errorf("%s user info http error: status=%d", p.name, resp.StatusCode)
	}

	profile, err := p.decode(body)
	if err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("%s: %w", p.name, err)
	}
	profile.Provider = p.name
	profile.Subject = strings.TrimSpace(profile.Subject)
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.Subject == "" || profile.Email == "" {
		return domain.OAuthProfile{}, fmt.Errorf("%w: %s profile without id or email", ErrMalformedProfile, p.name)
	}
	if addr, err := mail.ParseAddress(profile.Email); err != nil || addr.Address != profile.Email {
		return domain.OAuthProfile{}, fmt.Errorf("%w: %s profile email %q is not an address", ErrMalformedProfile, p.name, profile.Email)
	}
	return profile, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
