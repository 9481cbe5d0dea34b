package service

import "golang.org/x/crypto/bcrypt"

// PasswordEncoder hashea credenciales en un solo sentido.
type PasswordEncoder interface {
	Hash(raw string) (string, error)
	Matches(hash, raw string) bool
}

type BcryptEncoder struct {
	cost int
}

// NewBcryptEncoder usa bcrypt.DefaultCost cuando cost esta fuera de rango.
func NewBcryptEncoder(cost int) *BcryptEncoder {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptEncoder{cost: cost}
}

func (e *BcryptEncoder) Hash(raw string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(raw), e.cost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

func (e *BcryptEncoder) Matches(hash, raw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
