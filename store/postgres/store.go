package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MrEthical07/authgate"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"
)

const table = "authgate_accounts"

var accountColumns = []string{
	"id",
	"tenant_id",
	"identifier",
	"email",
	"password_hash",
	"method",
	"sealed_totp_secret",
	"sealed_recovery_codes",
	"two_factor_confirmed_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is the part of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements authgate.AccountStore.
type Store struct {
	db querier
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Open connects a pool to dsn and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func foldIdentifier(identifier string) string {
	return cases.Fold().String(identifier)
}

func selectByIdentifier(tenantID, identifier string) sq.SelectBuilder {
	return psql.Select(accountColumns...).
		From(table).
		Where(sq.Eq{"tenant_id": tenantID, "identifier_folded": foldIdentifier(identifier)})
}

func selectByID(tenantID, accountID string) sq.SelectBuilder {
	return psql.Select(accountColumns...).
		From(table).
		Where(sq.Eq{"tenant_id": tenantID, "id": accountID})
}

func swapRecoveryCodes(tenantID, accountID, expected, next string, now time.Time) sq.UpdateBuilder {
	return psql.Update(table).
		Set("sealed_recovery_codes", next).
		Set("updated_at", now).
		Where(sq.Eq{"tenant_id": tenantID, "id": accountID, "sealed_recovery_codes": expected})
}

// GetAccountByIdentifier implements authgate.AccountStore.
func (s *Store) GetAccountByIdentifier(ctx context.Context, tenantID, identifier string) (authgate.Account, error) {
	return s.queryOne(ctx, selectByIdentifier(tenantID, identifier))
}

// GetAccountByID implements authgate.AccountStore.
func (s *Store) GetAccountByID(ctx context.Context, tenantID, accountID string) (authgate.Account, error) {
	return s.queryOne(ctx, selectByID(tenantID, accountID))
}

// SwapRecoveryCodes implements authgate.AccountStore with a conditional
// UPDATE. Zero affected rows means either the account is gone or another
// writer changed the column; the former is reported as not found.
func (s *Store) SwapRecoveryCodes(ctx context.Context, tenantID, accountID, expected, next string) (bool, error) {
	sqlStr, args, err := swapRecoveryCodes(tenantID, accountID, expected, next, time.Now().UTC()).ToSql()
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("postgres: swap recovery codes: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := s.GetAccountByID(ctx, tenantID, accountID); err != nil {
		return false, err
	}
	return false, nil
}

// Put inserts or updates an account keyed by ID and returns the ID,
// generating one when empty. Used for seeding and administration.
func (s *Store) Put(ctx context.Context, a authgate.Account) (string, error) {
	if a.Identifier == "" {
		return "", errors.New("postgres: identifier required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TenantID == "" {
		a.TenantID = "0"
	}

	now := time.Now().UTC()
	sqlStr, args, err := psql.Insert(table).
		Columns(slices.Concat(accountColumns, []string{"identifier_folded", "updated_at"})...).
		Values(
			a.ID,
			a.TenantID,
			a.Identifier,
			a.Email,
			a.PasswordHash,
			a.Method.String(),
			a.SealedTOTPSecret,
			a.SealedRecoveryCodes,
			a.TwoFactorConfirmedAt,
			foldIdentifier(a.Identifier),
			now,
		).
		Suffix("ON CONFLICT (id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, identifier = EXCLUDED.identifier, identifier_folded = EXCLUDED.identifier_folded, email = EXCLUDED.email, password_hash = EXCLUDED.password_hash, method = EXCLUDED.method, sealed_totp_secret = EXCLUDED.sealed_totp_secret, sealed_recovery_codes = EXCLUDED.sealed_recovery_codes, two_factor_confirmed_at = EXCLUDED.two_factor_confirmed_at, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return "", fmt.Errorf("postgres: put account: %w", err)
	}
	return a.ID, nil
}

func (s *Store) queryOne(ctx context.Context, query sq.SelectBuilder) (authgate.Account, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return authgate.Account{}, err
	}

	var (
		a         authgate.Account
		method    string
		confirmed *time.Time
	)
	err = s.db.QueryRow(ctx, sqlStr, args...).Scan(
		&a.ID,
		&a.TenantID,
		&a.Identifier,
		&a.Email,
		&a.PasswordHash,
		&method,
		&a.SealedTOTPSecret,
		&a.SealedRecoveryCodes,
		&confirmed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authgate.Account{}, authgate.ErrAccountNotFound
		}
		return authgate.Account{}, fmt.Errorf("postgres: query account: %w", err)
	}

	a.Method, err = authgate.ParseMethod(method)
	if err != nil {
		return authgate.Account{}, err
	}
	a.TwoFactorConfirmedAt = confirmed
	return a, nil
}
