package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados de las operaciones de autenticacion.
const (
	OutcomeSuccess            = "success"
	OutcomeNotFound           = "not_found"
	OutcomeAlreadyExists      = "already_exists"
	OutcomeReusedCredential   = "reused_credential"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidArgument    = "invalid_argument"
	OutcomeOAuthFailed        = "oauth_failed"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeRateLimited        = "rate_limited"
	OutcomeError              = "error"
)

// AuthOperations cuenta operaciones de identidad por operacion y resultado.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marketplace_auth_operations_total",
		Help: "Total number of member identity operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// RegisterMetrics registra las metricas del paquete en reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
}

func recordOutcome(operation string, err error) {
	AuthOperations.WithLabelValues(operation, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return OutcomeAlreadyExists
	case errors.Is(err, ErrReusedCredential):
		return OutcomeReusedCredential
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrInvalidArgument):
		return OutcomeInvalidArgument
	case errors.Is(err, ErrOAuthExchangeFailed):
		return OutcomeOAuthFailed
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}
