package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/dberrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

// TableSpec describes how one entity maps onto its table.
type TableSpec[T any] struct {
	// Resource is the singular name used in error messages, e.g. "room".
	Resource string
	Table    string
	// Columns are selected in this order and handed to Scan. They may contain
	// expressions such as counting subqueries.
	Columns []string
	Schema  listing.Schema
	Scan    func(row pgx.Row) (*T, error)
	// Values are the writable columns of an item, used for INSERT and UPDATE.
	Values func(item *T) map[string]interface{}
	ID     func(item *T) int64
	// Constraints maps unique constraint names to the message returned on conflict.
	Constraints map[string]string
}

// Table implements list, get, create, update and delete for one entity.
type Table[T any] struct {
	db   *pgxpool.Pool
	sb   squirrel.StatementBuilderType
	spec TableSpec[T]
}

// NewTable creates a Table for spec.
func NewTable[T any](db *pgxpool.Pool, spec TableSpec[T]) *Table[T] {
	return &Table[T]{
		db:   db,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		spec: spec,
	}
}

// Spec returns the table description.
func (t *Table[T]) Spec() TableSpec[T] {
	return t.spec
}

// List returns the page of rows matching q and the total number of matches.
func (t *Table[T]) List(ctx context.Context, q listing.Query) ([]*T, int64, error) {
	countSQL, countArgs, err := t.spec.Schema.Apply(t.sb.Select("COUNT(*)").From(t.spec.Table), q).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count %s query: %w", t.spec.Resource, err)
	}

	var total int64
	if err := t.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Str("table", t.spec.Table).Msg("Error counting rows")
		return nil, 0, fmt.Errorf("error counting %s records: %w", t.spec.Resource, err)
	}
	if total == 0 {
		return []*T{}, 0, nil
	}

	sb := t.spec.Schema.Apply(t.sb.Select(t.spec.Columns...).From(t.spec.Table), q)
	query, args, err := t.spec.Schema.Page(sb, q).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list %s query: %w", t.spec.Resource, err)
	}

	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("table", t.spec.Table).Msg("Error listing rows")
		return nil, 0, fmt.Errorf("error listing %s records: %w", t.spec.Resource, err)
	}
	defer rows.Close()

	items := make([]*T, 0, q.Size)
	for rows.Next() {
		item, err := t.spec.Scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning %s row: %w", t.spec.Resource, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating %s rows: %w", t.spec.Resource, err)
	}

	return items, total, nil
}

// GetByID returns one row or apperrors.ErrResourceNotFound.
func (t *Table[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return t.getWhere(ctx, t.db, squirrel.Eq{t.spec.Table + ".id": id}, "")
}

// GetForUpdate locks the row inside tx.
func (t *Table[T]) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*T, error) {
	return t.getWhere(ctx, tx, squirrel.Eq{t.spec.Table + ".id": id}, "FOR UPDATE")
}

func (t *Table[T]) getWhere(ctx context.Context, q db.Querier, where squirrel.Sqlizer, suffix string) (*T, error) {
	sb := t.sb.Select(t.spec.Columns...).From(t.spec.Table).Where(where).Limit(1)
	if suffix != "" {
		sb = sb.Suffix(suffix)
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get %s query: %w", t.spec.Resource, err)
	}

	item, err := t.spec.Scan(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError(t.spec.Resource + " not found")
		}
		return nil, fmt.Errorf("error retrieving %s: %w", t.spec.Resource, err)
	}
	return item, nil
}

// Create inserts item and returns the new id. Exactly one statement is executed.
func (t *Table[T]) Create(ctx context.Context, item *T) (int64, error) {
	query, args, err := t.sb.Insert(t.spec.Table).
		SetMap(t.spec.Values(item)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create %s query: %w", t.spec.Resource, err)
	}

	var id int64
	if err := t.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, t.translate(err, "creating")
	}
	return id, nil
}

// Update writes every writable column of item.
func (t *Table[T]) Update(ctx context.Context, item *T) error {
	return t.update(ctx, t.db, item)
}

func (t *Table[T]) update(ctx context.Context, q db.Querier, item *T) error {
	id := t.spec.ID(item)
	query, args, err := t.sb.Update(t.spec.Table).
		SetMap(t.spec.Values(item)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update %s query: %w", t.spec.Resource, err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return t.translate(err, "updating")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(t.spec.Resource + " not found")
	}
	return nil
}

// Delete removes the row with id.
func (t *Table[T]) Delete(ctx context.Context, id int64) error {
	query, args, err := t.sb.Delete(t.spec.Table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete %s query: %w", t.spec.Resource, err)
	}

	tag, err := t.db.Exec(ctx, query, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError(t.spec.Resource + " is still referenced by other records")
		}
		return fmt.Errorf("error deleting %s: %w", t.spec.Resource, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(t.spec.Resource + " not found")
	}
	return nil
}

// translate maps constraint violations of a write to application errors.
func (t *Table[T]) translate(err error, action string) error {
	switch {
	case dberrors.IsUniqueViolation(err):
		msg, ok := t.spec.Constraints[dberrors.ConstraintName(err)]
		if !ok {
			msg = t.spec.Resource + " already exists"
		}
		return fmt.Errorf("%w: %s", apperrors.ErrResourceAlreadyExists, msg)
	case dberrors.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: referenced record does not exist", apperrors.ErrValidationFailed)
	case dberrors.IsCheckViolation(err):
		return fmt.Errorf("%w: %s violates %s", apperrors.ErrValidationFailed, t.spec.Resource, dberrors.ConstraintName(err))
	}
	logger.Error().Err(err).Str("table", t.spec.Table).Msgf("Error %s row", action)
	return fmt.Errorf("error %s %s: %w", action, t.spec.Resource, err)
}
