package service

import (
	"errors"

	"marketplace/internal/domain"
)

// Tipos de falla de la identidad de miembros. La capa HTTP los traduce a status.
var (
	ErrNotFound            = errors.New("member not found")
	ErrAlreadyExists       = errors.New("member already exists")
	ErrReusedCredential    = domain.ErrPasswordReused
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrOAuthExchangeFailed = errors.New("oauth exchange failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
)

var errMalformedProfile = errors.New("provider profile without subject or valid email")
