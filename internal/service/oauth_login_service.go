package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/internal/domain"
)

// OAuthProvider es lo que el login social necesita de un proveedor externo.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchUserInfo(ctx context.Context, accessToken string) (domain.OAuthProfile, error)
}

// MemberRegistrar resuelve o crea el miembro local de una identidad externa.
type MemberRegistrar interface {
	RegisterIfAbsent(ctx context.Context, profile domain.OAuthProfile) (domain.Member, error)
}

// Pasos de un intento de login OAuth, en orden.
const (
	StepCodeReceived    = "code_received"
	StepTokenExchanged  = "token_exchanged"
	StepUserInfoFetched = "user_info_fetched"
	StepMemberResolved  = "member_resolved"
	StepTokenIssued     = "token_issued"
)

// OAuthLoginService traduce un login de terceros en un miembro local con tokens.
type OAuthLoginService struct {
	logger    *zap.Logger
	members   MemberRegistrar
	tokens    TokenIssuer
	timeout   time.Duration
	providers map[string]OAuthProvider
}

func NewOAuthLoginService(logger *zap.Logger, members MemberRegistrar, tokens TokenIssuer, timeout time.Duration, providers ...OAuthProvider) *OAuthLoginService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	byName := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		byName[strings.ToLower(p.Name())] = p
	}
	return &OAuthLoginService{
		logger:    logger,
		members:   members,
		tokens:    tokens,
		timeout:   timeout,
		providers: byName,
	}
}

// Providers lista los proveedores habilitados.
func (s *OAuthLoginService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoginURL devuelve la URL de autorizacion y el state generado para el intento.
func (s *OAuthLoginService) LoginURL(providerName string) (string, string, error) {
	provider, err := s.provider(providerName)
	if err != nil {
		return "", "", err
	}
	state := uuid.NewString()
	return provider.AuthCodeURL(state), state, nil
}

// Login recorre code -> token del proveedor -> perfil -> miembro -> tokens propios.
// Las fallas del proveedor (incluido el timeout) se reportan como ErrOAuthExchangeFailed.
func (s *OAuthLoginService) Login(ctx context.Context, providerName, code string) (result LoginResult, err error) {
	defer func() { recordOutcome("oauth_login", err) }()

	provider, err := s.provider(providerName)
	if err != nil {
		return LoginResult{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return LoginResult{}, fmt.Errorf("%w: authorization code is required", ErrInvalidArgument)
	}
	log := s.logger.With(zap.String("provider", provider.Name()))
	step := StepCodeReceived

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	accessToken, err := provider.ExchangeCode(callCtx, code)
	if err != nil {
		return LoginResult{}, s.providerFailure(log, step, err)
	}
	step = StepTokenExchanged

	profile, err := provider.FetchUserInfo(callCtx, accessToken)
	if err != nil {
		return LoginResult{}, s.providerFailure(log, step, err)
	}
	profile.Provider = provider.Name()
	if strings.TrimSpace(profile.Subject) == "" || !validEmail(normalizeEmail(profile.Email)) {
		return LoginResult{}, s.providerFailure(log, step, errMalformedProfile)
	}
	step = StepUserInfoFetched

	member, err := s.members.RegisterIfAbsent(ctx, profile)
	if err != nil {
		log.Warn("oauth member resolution failed", zap.String("step", step), zap.Error(err))
		return LoginResult{}, err
	}
	step = StepMemberResolved

	tokens, err := s.tokens.GeneratePair(member)
	if err != nil {
		log.Error("oauth token issue failed", zap.String("step", step), zap.Error(err))
		return LoginResult{}, err
	}
	log.Debug("oauth login completed", zap.String("step", StepTokenIssued), zap.String("member_id", member.ID))
	return LoginResult{Member: member.View(), Tokens: tokens}, nil
}

func (s *OAuthLoginService) provider(name string) (OAuthProvider, error) {
	provider, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown oauth provider %q", ErrInvalidArgument, name)
	}
	return provider, nil
}

func (s *OAuthLoginService) providerFailure(log *zap.Logger, step string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("oauth provider timed out", zap.String("step", step))
	} else {
		log.Warn("oauth provider call failed", zap.String("step", step), zap.Error(err))
	}
	return fmt.Errorf("%w: after %s: %v", ErrOAuthExchangeFailed, step, err)
}
