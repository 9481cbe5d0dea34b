package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/email"
	"marketplace/internal/repository"
)

// bcrypt ignora lo que pasa de 72 bytes.
const maxPasswordBytes = 72

// TokenIssuer emite el par de tokens de sesion para un miembro.
type TokenIssuer interface {
	GeneratePair(member domain.Member) (TokenPair, error)
}

// MemberService coordina alta, login y cambios de credenciales de miembros.
type MemberService struct {
	logger      *zap.Logger
	members     repository.MemberRepository
	encoder     PasswordEncoder
	tokens      TokenIssuer
	loginLimit  LoginRateLimiter
	emailSender email.Sender

	dummyOnce sync.Once
	dummyHash string
}

func NewMemberService(
	logger *zap.Logger,
	members repository.MemberRepository,
	encoder PasswordEncoder,
	tokens TokenIssuer,
	loginLimit LoginRateLimiter,
	emailSender email.Sender,
) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if encoder == nil {
		encoder = NewBcryptEncoder(0)
	}
	if loginLimit == nil {
		loginLimit = NewMemoryLoginRateLimiter(5*time.Minute, 10)
	}
	return &MemberService{
		logger:      logger,
		members:     members,
		encoder:     encoder,
		tokens:      tokens,
		loginLimit:  loginLimit,
		emailSender: emailSender,
	}
}

type SignupInput struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber string
	Role        string
}

// UpdateMemberInput usa punteros: nil deja el campo como esta.
type UpdateMemberInput struct {
	Name        *string
	PhoneNumber *string
	Password    *string
}

type LoginResult struct {
	Member domain.MemberView `json:"member"`
	Tokens TokenPair         `json:"tokens"`
}

func (s *MemberService) Signup(ctx context.Context, input SignupInput) (view domain.MemberView, err error) {
	defer func() { recordOutcome("signup", err) }()

	emailAddr := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.PhoneNumber)
	if !validEmail(emailAddr) {
		return domain.MemberView{}, fmt.Errorf("%w: email", ErrInvalidArgument)
	}
	if name == "" {
		return domain.MemberView{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if phone == "" {
		return domain.MemberView{}, fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}
	if err := validatePassword(input.Password); err != nil {
		return domain.MemberView{}, err
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return domain.MemberView{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	taken, err := s.members.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return domain.MemberView{}, err
	}
	if taken {
		return domain.MemberView{}, fmt.Errorf("%w: email", ErrAlreadyExists)
	}
	taken, err = s.members.ExistsByPhoneNumber(ctx, phone)
	if err != nil {
		return domain.MemberView{}, err
	}
	if taken {
		return domain.MemberView{}, fmt.Errorf("%w: phone number", ErrAlreadyExists)
	}

	hash, err := s.encoder.Hash(input.Password)
	if err != nil {
		return domain.MemberView{}, err
	}

	now := time.Now().UTC()
	member := domain.Member{
		ID:          uuid.NewString(),
		Email:       emailAddr,
		PhoneNumber: phone,
		Name:        name,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	member.SetPassword(hash)

	if err := s.members.Create(ctx, member); err != nil {
		return domain.MemberView{}, mapRepoError(err)
	}
	s.logger.Info("member signed up", zap.String("member_id", member.ID), zap.String("role", string(role)))
	return member.View(), nil
}

// Login no distingue entre email desconocido y password incorrecto.
func (s *MemberService) Login(ctx context.Context, emailAddr, password string) (result LoginResult, err error) {
	defer func() { recordOutcome("login", err) }()

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !s.loginLimit.Allow(emailAddr) {
		return LoginResult{}, ErrRateLimited
	}

	member, err := s.members.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// mismo costo que un password incorrecto
			s.encoder.Matches(s.placeholderHash(), password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !s.encoder.Matches(member.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	s.loginLimit.Reset(emailAddr)

	tokens, err := s.tokens.GeneratePair(member)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Member: member.View(), Tokens: tokens}, nil
}

func (s *MemberService) GetMember(ctx context.Context, memberID string) (domain.MemberView, error) {
	member, err := s.members.GetByID(ctx, strings.TrimSpace(memberID))
	if err != nil {
		return domain.MemberView{}, mapRepoError(err)
	}
	return member.View(), nil
}

// GetCurrentMember resuelve el miembro autenticado de ctx.
func (s *MemberService) GetCurrentMember(ctx context.Context) (domain.MemberView, error) {
	memberID, ok := s.GetMemberIDFromToken(ctx)
	if !ok {
		return domain.MemberView{}, ErrUnauthorized
	}
	return s.GetMember(ctx, memberID)
}

func (s *MemberService) GetMemberIDFromToken(ctx context.Context) (string, bool) {
	return CallerFromContext(ctx)
}

// MatchMemberID indica si el llamador autenticado es ownerID.
// Devuelve false sin caller; la decision de negar queda del lado de quien llama.
func (s *MemberService) MatchMemberID(ctx context.Context, ownerID string) bool {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return false
	}
	return caller == strings.TrimSpace(ownerID)
}

// UpdateMember aplica los campos presentes en una sola transaccion.
// Si el password ya esta en el historial no se guarda ningun cambio.
func (s *MemberService) UpdateMember(ctx context.Context, memberID string, input UpdateMemberInput) (view domain.MemberView, err error) {
	defer func() { recordOutcome("update_member", err) }()

	var name, phone, newHash string
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		if name == "" {
			return domain.MemberView{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidArgument)
		}
	}
	var phoneTaken bool
	if input.PhoneNumber != nil {
		phone = strings.TrimSpace(*input.PhoneNumber)
		if phone == "" {
			return domain.MemberView{}, fmt.Errorf("%w: phone number cannot be empty", ErrInvalidArgument)
		}
		// fuera de la transaccion: dentro solo se usa la conexion que tiene el lock.
		// Una carrera posterior la frena la constraint unica (ErrDuplicate).
		phoneTaken, err = s.members.ExistsByPhoneNumber(ctx, phone)
		if err != nil {
			return domain.MemberView{}, err
		}
	}
	if input.Password != nil {
		if err := validatePassword(*input.Password); err != nil {
			return domain.MemberView{}, err
		}
		// se hashea fuera de la transaccion para no retener el lock
		newHash, err = s.encoder.Hash(*input.Password)
		if err != nil {
			return domain.MemberView{}, err
		}
	}

	updated, err := s.members.Update(ctx, strings.TrimSpace(memberID), func(m *domain.Member) error {
		if input.Name != nil {
			m.Name = name
		}
		if input.PhoneNumber != nil && phone != m.PhoneNumber {
			if phoneTaken {
				return fmt.Errorf("%w: phone number", ErrAlreadyExists)
			}
			m.PhoneNumber = phone
		}
		if input.Password != nil {
			if err := domain.CheckPasswordReuse(m.PwHistory, *input.Password, s.encoder.Matches); err != nil {
				return err
			}
			m.SetPassword(newHash)
		}
		return nil
	})
	if err != nil {
		return domain.MemberView{}, mapRepoError(err)
	}

	if input.Password != nil {
		s.notifyPasswordChanged(ctx, updated)
	}
	return updated.View(), nil
}

// PasswordCheck confirma la credencial actual sin emitir tokens.
func (s *MemberService) PasswordCheck(ctx context.Context, memberID, password string) (err error) {
	defer func() { recordOutcome("password_check", err) }()

	member, err := s.members.GetByID(ctx, strings.TrimSpace(memberID))
	if err != nil {
		return mapRepoError(err)
	}
	if !s.encoder.Matches(member.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// RegisterIfAbsent resuelve la identidad OAuth por (provider, subject).
// No se fusiona por email: si el email ya pertenece a otro miembro falla con ErrAlreadyExists.
func (s *MemberService) RegisterIfAbsent(ctx context.Context, profile domain.OAuthProfile) (domain.Member, error) {
	provider := strings.ToLower(strings.TrimSpace(profile.Provider))
	subject := strings.TrimSpace(profile.Subject)
	emailAddr := normalizeEmail(profile.Email)
	if provider == "" || subject == "" {
		return domain.Member{}, fmt.Errorf("%w: oauth identity is incomplete", ErrInvalidArgument)
	}

	member, err := s.members.GetByAuth(ctx, provider, subject)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Member{}, err
	}

	if !validEmail(emailAddr) {
		return domain.Member{}, fmt.Errorf("%w: oauth profile has no usable email", ErrInvalidArgument)
	}
	taken, err := s.members.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return domain.Member{}, err
	}
	if taken {
		return domain.Member{}, fmt.Errorf("%w: email belongs to another member", ErrAlreadyExists)
	}

	// sin password local: se guarda el hash de un valor aleatorio que nadie conoce
	placeholder, err := randomSecret()
	if err != nil {
		return domain.Member{}, err
	}
	hash, err := s.encoder.Hash(placeholder)
	if err != nil {
		return domain.Member{}, err
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(emailAddr, "@")
	}
	now := time.Now().UTC()
	member = domain.Member{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		Role:         domain.RoleCustomer,
		AuthProvider: provider,
		AuthSubject:  subject,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	member.SetPassword(hash)

	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// otra request registro la misma identidad en paralelo
			if existing, getErr := s.members.GetByAuth(ctx, provider, subject); getErr == nil {
				return existing, nil
			}
		}
		return domain.Member{}, mapRepoError(err)
	}
	s.logger.Info("member registered via oauth", zap.String("member_id", member.ID), zap.String("provider", provider))
	return member, nil
}

func (s *MemberService) notifyPasswordChanged(ctx context.Context, member domain.Member) {
	if s.emailSender == nil {
		return
	}
	if err := s.emailSender.SendPasswordChanged(ctx, member.Email, member.Name, member.UpdatedAt); err != nil {
		s.logger.Warn("send password changed notice failed", zap.Error(err), zap.String("member_id", member.ID))
	}
}

func (s *MemberService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		secret, err := randomSecret()
		if err != nil {
			secret = "placeholder"
		}
		s.dummyHash, _ = s.encoder.Hash(secret)
	})
	return s.dummyHash
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	default:
		return err
	}
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password is too long", ErrInvalidArgument)
	}
	return nil
}

func validEmail(email string) bool {
	local, domainPart, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domainPart, ".") && !strings.ContainsAny(email, " \t")
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
