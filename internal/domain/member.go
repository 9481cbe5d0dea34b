package domain

import (
	"errors"
	"strings"
	"time"
)

// Role clasifica a un miembro del marketplace. Se fija en el alta.
type Role string

const (
	RoleBusiness Role = "BUSINESS"
	RoleCustomer Role = "CUSTOMER"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole convierte el texto recibido en un Role conocido o falla.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleBusiness:
		return RoleBusiness, nil
	case RoleCustomer:
		return RoleCustomer, nil
	default:
		return "", ErrInvalidRole
	}
}

type Member struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	PwHistory    []string  `json:"-"`
	Role         Role      `json:"role"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	AuthSubject  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetPassword registra un hash nuevo en el historial y lo deja como password vigente.
func (m *Member) SetPassword(hash string) {
	m.PwHistory = InsertPasswordHistory(m.PwHistory, hash)
	m.PasswordHash = m.PwHistory[len(m.PwHistory)-1]
}

// MemberView es la representacion publica de un miembro.
type MemberView struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (m Member) View() MemberView {
	return MemberView{
		ID:           m.ID,
		Email:        m.Email,
		PhoneNumber:  m.PhoneNumber,
		Name:         m.Name,
		Role:         m.Role,
		AuthProvider: m.AuthProvider,
		CreatedAt:    m.CreatedAt,
	}
}

// OAuthProfile es la identidad externa devuelta por un proveedor OAuth.
type OAuthProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}
