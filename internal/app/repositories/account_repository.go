package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/dberrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

const (
	accountEmailKey  = "user_accounts_email_key"
	accountPersonKey = "user_accounts_person_key"
)

// AccountSpec maps user_accounts. The password hash is only written by
// dedicated methods, never through the generic Values.
func AccountSpec() TableSpec[models.UserAccount] {
	return TableSpec[models.UserAccount]{
		Resource: "user account",
		Table:    "user_accounts",
		Columns: []string{"id", "email", "password_hash", "role", "is_active", "person_id", "last_login_at",
			"created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"email"},
			Filters: map[string]listing.FilterField{
				"role":     {Column: "role"},
				"isActive": {Column: "is_active", Kind: listing.KindBool},
			},
			Sorts:       sorts(map[string]string{"email": "email", "role": "role", "lastLoginAt": "last_login_at"}),
			DefaultSort: "email",
		},
		Scan: scanAccount,
		Values: func(a *models.UserAccount) map[string]interface{} {
			return map[string]interface{}{
				"email":     normalizeEmail(a.Email),
				"role":      string(a.Role),
				"is_active": a.IsActive,
				"person_id": a.PersonID,
			}
		},
		ID: func(a *models.UserAccount) int64 { return a.ID },
		Constraints: map[string]string{
			accountEmailKey:  "an account with this email already exists",
			accountPersonKey: "this person already has an account",
		},
	}
}

func scanAccount(row pgx.Row) (*models.UserAccount, error) {
	var a models.UserAccount
	var role string
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.IsActive, &a.PersonID, &a.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountRepository handles user account database operations
type AccountRepository struct {
	*Table[models.UserAccount]
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		Table: NewTable(pool, AccountSpec()),
		pool:  pool,
	}
}

// WithTx runs fn in a transaction, one per bulk item.
func (r *AccountRepository) WithTx(ctx context.Context, fn db.TransactionFn) error {
	return db.WithTx(ctx, r.pool, fn)
}

// CreateWithHash inserts an account with its password hash on q, which may be
// a transaction.
func (r *AccountRepository) CreateWithHash(ctx context.Context, q db.Querier, account *models.UserAccount) (int64, error) {
	values := r.spec.Values(account)
	values["password_hash"] = account.PasswordHash

	query, args, err := r.sb.Insert("user_accounts").SetMap(values).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create account query: %w", err)
	}

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, accountEmailKey):
			return 0, apperrors.ErrEmailAlreadyExists
		case dberrors.IsDuplicateConstraintError(err, accountPersonKey):
			return 0, apperrors.ErrAccountExists
		}
		return 0, r.translate(err, "creating")
	}
	return id, nil
}

// FindByEmail looks an account up case-insensitively.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	return r.getWhere(ctx, r.pool, squirrel.Expr("LOWER(email) = ?", normalizeEmail(email)), "")
}

// ExistsForPerson reports whether role/personID already has an account.
func (r *AccountRepository) ExistsForPerson(ctx context.Context, q db.Querier, role models.Role, personID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_accounts WHERE role = $1 AND person_id = $2)`,
		string(role), personID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking account existence: %w", err)
	}
	return exists, nil
}

// UpdatePassword replaces the stored hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, r.sb.Update("user_accounts").
		Set("password_hash", hash).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// SetActive enables or disables an account.
func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.exec(ctx, r.sb.Update("user_accounts").
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// UpdateLastLogin stamps a successful login.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	return r.exec(ctx, r.sb.Update("user_accounts").
		Set("last_login_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

func (r *AccountRepository) exec(ctx context.Context, b squirrel.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build account update: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error updating user account")
		return fmt.Errorf("error updating user account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("user account not found")
	}
	return nil
}

// Update writes email, role, person and active flag.
func (r *AccountRepository) Update(ctx context.Context, account *models.UserAccount) error {
	query, args, err := r.sb.Update("user_accounts").
		SetMap(r.spec.Values(account)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update account query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, accountEmailKey):
			return apperrors.ErrEmailAlreadyExists
		case dberrors.IsDuplicateConstraintError(err, accountPersonKey):
			return apperrors.ErrAccountExists
		}
		return r.translate(err, "updating")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("user account not found")
	}
	return nil
}

// PersonContact returns the name and email of the person record behind role/personID.
func (r *AccountRepository) PersonContact(ctx context.Context, q db.Querier, role models.Role, personID int64) (name, email string, err error) {
	table := role.PersonTable()
	if table == "" {
		return "", "", fmt.Errorf("%w: role %s has no person records", apperrors.ErrValidationFailed, role)
	}

	query, args, err := r.sb.Select("first_name", "last_name", "email").
		From(table).
		Where(squirrel.Eq{"id": personID}).
		ToSql()
	if err != nil {
		return "", "", fmt.Errorf("failed to build person query: %w", err)
	}

	var first, last string
	if err := q.QueryRow(ctx, query, args...).Scan(&first, &last, &email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", apperrors.NewResourceNotFoundError(fmt.Sprintf("%s %d not found", role, personID))
		}
		return "", "", fmt.Errorf("error retrieving person: %w", err)
	}
	return strings.TrimSpace(first + " " + last), strings.TrimSpace(email), nil
}
