package email

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDisabled = errors.New("email sender disabled")

// Sender envia avisos de seguridad a los miembros.
type Sender interface {
	SendPasswordChanged(ctx context.Context, toEmail, name string, changedAt time.Time) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender devuelve un Sender que siempre falla con ErrDisabled.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendPasswordChanged(_ context.Context, _, _ string, _ time.Time) error {
	if s.reason == "" {
		return ErrDisabled
	}
	return fmt.Errorf("%w: %s", ErrDisabled, s.reason)
}
