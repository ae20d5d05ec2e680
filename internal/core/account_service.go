package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown username, an inactive
// account or a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Account roles.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
)

// Account is a staff member who sells and orders. UID is what sale rows record.
type Account struct {
	ID        int       `json:"id"`
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountService provides account creation and password login.
type AccountService interface {
	CreateAccount(ctx context.Context, username, password, role string) (*Account, error)
	// Authenticate returns the active account matching username and password.
	Authenticate(ctx context.Context, username, password string) (*Account, error)
	GetByUID(ctx context.Context, uid string) (*Account, error)
}

type accountService struct {
	pool  *pgxpool.Pool
	guard WriteGuard
	cost  int
}

// NewAccountService constructs an AccountService backed by PostgreSQL.
func NewAccountService(pool *pgxpool.Pool, guard WriteGuard) AccountService {
	if guard == nil {
		guard = AllowWrites{}
	}
	return &accountService{pool: pool, guard: guard, cost: bcrypt.DefaultCost}
}

const accountColumns = "id, uid, username, role, is_active, created_at"

func (s *accountService) CreateAccount(ctx context.Context, username, password, role string) (*Account, error) {
	if err := s.guard.CheckWritable(ctx); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("username", "username is required")
	}
	if len(password) < 8 {
		return nil, validationf("password", "password must be at least 8 characters")
	}
	if role != RoleCashier && role != RoleManager {
		return nil, validationf("role", "role must be %s or %s", RoleCashier, RoleManager)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var a Account
	err = s.pool.QueryRow(ctx, `
		INSERT INTO accounts (uid, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		uuid.NewString(), username, string(hash), role,
	).Scan(&a.ID, &a.UID, &a.Username, &a.Role, &a.IsActive, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, validationf("username", "username %q is taken", username)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &a, nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	var a Account
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`, password_hash
		FROM accounts
		WHERE username = $1 AND is_active = true`,
		strings.TrimSpace(username),
	).Scan(&a.ID, &a.UID, &a.Username, &a.Role, &a.IsActive, &a.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &a, nil
}

func (s *accountService) GetByUID(ctx context.Context, uid string) (*Account, error) {
	if _, err := uuid.Parse(uid); err != nil {
		return nil, notFoundf("account %q", uid)
	}
	var a Account
	err := s.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE uid = $1", uid).
		Scan(&a.ID, &a.UID, &a.Username, &a.Role, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("account %q", uid)
		}
		return nil, fmt.Errorf("failed to fetch account %q: %w", uid, err)
	}
	return &a, nil
}
