package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/formation/pkg/models"
)

// DocumentRepository handles document record database operations.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

func (r *DocumentRepository) Save(ctx context.Context, document *models.DocumentRecord) error {
	if document.UploadedAt.IsZero() {
		document.UploadedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO documents (id, instance_id, step_number, document_type, file_name,
			mime_type, format, size_mb, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			document_type = EXCLUDED.document_type,
			file_name = EXCLUDED.file_name,
			mime_type = EXCLUDED.mime_type,
			format = EXCLUDED.format,
			size_mb = EXCLUDED.size_mb
	`

	_, err := r.db.ExecContext(ctx, query,
		document.ID,
		document.InstanceID,
		document.StepNumber,
		document.DocumentType,
		document.FileName,
		document.MimeType,
		document.Format,
		document.SizeMB,
		document.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", document.ID, err)
	}

	return nil
}

func (r *DocumentRepository) ListByStep(ctx context.Context, instanceID string, step int) ([]*models.DocumentRecord, error) {
	query := `
		SELECT
			id
		  , instance_id
		  , step_number
		  , document_type
		  , COALESCE(file_name, '')
		  , COALESCE(mime_type, '')
		  , COALESCE(format, '')
		  , size_mb
		  , uploaded_at
		FROM documents
		WHERE instance_id = $1 AND step_number = $2
		ORDER BY uploaded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, instanceID, step)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer func(ctx context.Context, r *DocumentRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	documents := make([]*models.DocumentRecord, 0)

	for rows.Next() {
		var document models.DocumentRecord

		err := rows.Scan(
			&document.ID,
			&document.InstanceID,
			&document.StepNumber,
			&document.DocumentType,
			&document.FileName,
			&document.MimeType,
			&document.Format,
			&document.SizeMB,
			&document.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		documents = append(documents, &document)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}
