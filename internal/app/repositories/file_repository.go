package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

var fileColumns = []string{"id", "file_name", "file_path", "file_url", "file_size", "mime_type", "uploaded_by", "created_at"}

// FileRepository handles database operations for files
type FileRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanFile(row pgx.Row) (*models.File, error) {
	var f models.File
	if err := row.Scan(&f.ID, &f.FileName, &f.FilePath, &f.FileURL, &f.FileSize, &f.MimeType, &f.UploadedBy, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID retrieves a file by ID
func (r *FileRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query, args, err := r.sb.Select(fileColumns...).From("files").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get file query: %w", err)
	}

	file, err := scanFile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("file not found")
		}
		return nil, fmt.Errorf("error getting file: %w", err)
	}
	return file, nil
}

// Create stores file metadata on q, which may be a transaction.
func (r *FileRepository) Create(ctx context.Context, q db.Querier, file *models.File) (int64, error) {
	query, args, err := r.sb.Insert("files").
		Columns("file_name", "file_path", "file_url", "file_size", "mime_type", "uploaded_by").
		Values(file.FileName, file.FilePath, file.FileURL, file.FileSize, file.MimeType, file.UploadedBy).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create file query: %w", err)
	}

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("error creating file: %w", err)
	}
	return id, nil
}

// Delete deletes a file
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}

// ListOrphans returns files created before cutoff that no message references.
func (r *FileRepository) ListOrphans(ctx context.Context, cutoff time.Time, limit uint64) ([]*models.File, error) {
	query, args, err := r.sb.Select(fileColumns...).
		From("files f").
		Where(squirrel.Lt{"f.created_at": cutoff}).
		Where("NOT EXISTS (SELECT 1 FROM messages m WHERE m.attachment_file_id = f.id)").
		OrderBy("f.id").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orphan files query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing orphan files: %w", err)
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning file row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
