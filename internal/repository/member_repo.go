package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"marketplace/internal/domain"
)

var (
	ErrNotFound  = errors.New("member not found")
	ErrDuplicate = errors.New("member already exists")
)

// MemberRepository define el contrato de persistencia para miembros.
type MemberRepository interface {
	Create(ctx context.Context, member domain.Member) error
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByEmail(ctx context.Context, email string) (domain.Member, error)
	GetByAuth(ctx context.Context, provider, subject string) (domain.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)
	// Update bloquea la fila, aplica fn y persiste el resultado en una sola transaccion.
	// Si fn falla no se escribe nada.
	Update(ctx context.Context, id string, fn func(m *domain.Member) error) (domain.Member, error)
	Delete(ctx context.Context, id string) error
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgMemberRepository implementa MemberRepository usando pgxpool.
type PgMemberRepository struct {
	pool pgxPool
}

func NewPgMemberRepository(pool pgxPool) *PgMemberRepository {
	return &PgMemberRepository{pool: pool}
}

const selectMember = `
		SELECT id, email, phone_number, name, password_hash, pw_history, role,
		       auth_provider, auth_subject, created_at, updated_at
		FROM members
	`

func (r *PgMemberRepository) Create(ctx context.Context, m domain.Member) error {
	const query = `
		INSERT INTO members (
			id, email, phone_number, name, password_hash, pw_history, role,
			auth_provider, auth_subject, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Email,
		nullable(m.PhoneNumber),
		m.Name,
		m.PasswordHash,
		m.PwHistory,
		string(m.Role),
		nullable(m.AuthProvider),
		nullable(m.AuthSubject),
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return writeError("MEMBER_CREATE_FAILED", m.ID, err)
	}
	return nil
}

func (r *PgMemberRepository) GetByID(ctx context.Context, id string) (domain.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, selectMember+`WHERE id = $1`, id))
	return m, readError(err, "id", id)
}

func (r *PgMemberRepository) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, selectMember+`WHERE email = $1`, email))
	return m, readError(err, "email", email)
}

func (r *PgMemberRepository) GetByAuth(ctx context.Context, provider, subject string) (domain.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, selectMember+`WHERE auth_provider = $1 AND auth_subject = $2`, provider, subject))
	return m, readError(err, "auth_provider", provider)
}

func (r *PgMemberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE email = $1)`, email)
}

func (r *PgMemberRepository) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE phone_number = $1)`, phone)
}

func (r *PgMemberRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, oops.Code("MEMBER_EXISTS_FAILED").With("query", query).Wrap(err)
	}
	return ok, nil
}

func (r *PgMemberRepository) Update(ctx context.Context, id string, fn func(m *domain.Member) error) (domain.Member, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Member{}, oops.Code("MEMBER_UPDATE_FAILED").With("id", id).Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback tras commit no hace nada

	m, err := scanMember(tx.QueryRow(ctx, selectMember+`WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.Member{}, readError(err, "id", id)
	}

	if err := fn(&m); err != nil {
		return domain.Member{}, err
	}
	m.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE members SET
			phone_number = $2,
			name = $3,
			password_hash = $4,
			pw_history = $5,
			auth_provider = $6,
			auth_subject = $7,
			updated_at = $8
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query,
		m.ID,
		nullable(m.PhoneNumber),
		m.Name,
		m.PasswordHash,
		m.PwHistory,
		nullable(m.AuthProvider),
		nullable(m.AuthSubject),
		m.UpdatedAt,
	); err != nil {
		return domain.Member{}, writeError("MEMBER_UPDATE_FAILED", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Member{}, oops.Code("MEMBER_UPDATE_FAILED").With("id", id).With("operation", "commit").Wrap(err)
	}
	return m, nil
}

func (r *PgMemberRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return oops.Code("MEMBER_DELETE_FAILED").With("id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("MEMBER_NOT_FOUND").With("id", id).Wrap(ErrNotFound)
	}
	return nil
}

func scanMember(row pgx.Row) (domain.Member, error) {
	var (
		m                                domain.Member
		role                             string
		phone, authProvider, authSubject *string
	)
	err := row.Scan(
		&m.ID,
		&m.Email,
		&phone,
		&m.Name,
		&m.PasswordHash,
		&m.PwHistory,
		&role,
		&authProvider,
		&authSubject,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return domain.Member{}, err
	}
	m.Role = domain.Role(role)
	m.PhoneNumber = deref(phone)
	m.AuthProvider = deref(authProvider)
	m.AuthSubject = deref(authSubject)
	return m, nil
}

func readError(err error, key, value string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("MEMBER_NOT_FOUND").With(key, value).Wrap(ErrNotFound)
	}
	return oops.Code("MEMBER_GET_FAILED").With(key, value).Wrap(err)
}

// writeError traduce violaciones de unicidad (email, telefono, identidad OAuth) a ErrDuplicate.
func writeError(code, id string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.Code("MEMBER_DUPLICATE").
			With("id", id).
			With("constraint", pgErr.ConstraintName).
			Wrap(fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName))
	}
	return oops.Code(code).With("id", id).Wrap(err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
