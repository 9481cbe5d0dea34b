package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"marketplace/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTService emite y valida tokens JWT firmados con HS256.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	store      RefreshTokenStore
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Claims struct {
	MemberID  string `json:"mid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = fmt.Errorf("%w: jwt invalid", ErrUnauthorized)
	ErrJWTExpired = fmt.Errorf("%w: jwt expired", ErrUnauthorized)
)

// NewJWTService recibe la clave una sola vez; no se modifica despues.
func NewJWTService(secret, issuer string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 14 * 24 * time.Hour
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "marketplace"
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		store:      NewMemoryRefreshTokenStore(),
	}
}

func NewJWTServiceWithStore(secret, issuer string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore) *JWTService {
	svc := NewJWTService(secret, issuer, accessTTL, refreshTTL)
	if store != nil {
		svc.store = store
	}
	return svc
}

// GenerateAccessToken firma un token de acceso para subject/email.
func (s *JWTService) GenerateAccessToken(memberID, email string) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(memberID) == "" {
		return "", ErrJWTInvalid
	}
	return s.signToken(memberID, email, time.Now().UTC(), s.accessTTL, tokenTypeAccess, "")
}

func (s *JWTService) GeneratePair(member domain.Member) (TokenPair, error) {
	access, err := s.GenerateAccessToken(member.ID, member.Email)
	if err != nil {
		return TokenPair{}, err
	}
	jti := uuid.NewString()
	refresh, err := s.signToken(member.ID, member.Email, time.Now().UTC(), s.refreshTTL, tokenTypeRefresh, jti)
	if err != nil {
		return TokenPair{}, err
	}
	if s.store != nil {
		if err := s.store.Save(jti, member.ID, s.refreshTTL); err != nil {
			return TokenPair{}, err
		}
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// RefreshPair consume el refresh token y emite un par nuevo.
// Un token ya consumido, aunque sea por una llamada concurrente, es invalido.
func (s *JWTService) RefreshPair(refreshToken string) (TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	memberID, ok, err := s.store.Consume(claims.ID)
	if err != nil || !ok || memberID != claims.MemberID {
		return TokenPair{}, ErrJWTInvalid
	}
	return s.GeneratePair(domain.Member{ID: claims.MemberID, Email: claims.Email})
}

func (s *JWTService) RevokeRefresh(refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	_, _, err = s.store.Consume(claims.ID)
	return err
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(accessToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeAccess || !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

// Validate devuelve el id del miembro de un access token valido.
func (s *JWTService) Validate(accessToken string) (string, error) {
	claims, err := s.ParseAccessToken(accessToken)
	if err != nil {
		return "", err
	}
	return claims.MemberID, nil
}

func (s *JWTService) parseRefresh(refreshToken string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(refreshToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeRefresh || !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	if claims.ID == "" || s.store == nil {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) signToken(memberID, email string, now time.Time, ttl time.Duration, tokenType, jti string) (string, error) {
	claims := Claims{
		MemberID:  memberID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.MemberID) == "" {
		return false
	}
	if claims.Subject != claims.MemberID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
