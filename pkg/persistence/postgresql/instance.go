package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/persistence"
)

// InstanceRepository handles workflow instance database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

const selectInstance = `
	SELECT
		id
	  , workflow_type
	  , freezone_code
	  , status
	  , current_step
	  , form_data
	  , completed_steps
	  , created_at
	  , updated_at
	FROM workflow_instances
`

// Save upserts an instance.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	if err := persistence.Prepare(instance, time.Now().UTC()); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	return r.write(ctx, r.db, instance)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *InstanceRepository) write(ctx context.Context, db execer, instance *models.WorkflowInstance) error {
	formDataJSON, err := json.Marshal(instance.FormData)
	if err != nil {
		return fmt.Errorf("failed to marshal form data: %w", err)
	}

	completedJSON, err := json.Marshal(instance.CompletedSteps)
	if err != nil {
		return fmt.Errorf("failed to marshal completed steps: %w", err)
	}

	query := `
		INSERT INTO workflow_instances (id, workflow_type, freezone_code, status, current_step,
			form_data, completed_steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			workflow_type = EXCLUDED.workflow_type,
			freezone_code = EXCLUDED.freezone_code,
			status = EXCLUDED.status,
			current_step = EXCLUDED.current_step,
			form_data = EXCLUDED.form_data,
			completed_steps = EXCLUDED.completed_steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		instance.ID,
		instance.WorkflowType,
		sql.NullString{String: instance.FreezoneCode, Valid: instance.FreezoneCode != ""},
		instance.Status,
		instance.CurrentStep,
		formDataJSON,
		completedJSON,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	instance, err := scanInstance(r.db.QueryRowContext(ctx, selectInstance+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	return instance, nil
}

func (r *InstanceRepository) MergeStepData(ctx context.Context, id string, step int, data map[string]any) (*models.WorkflowInstance, error) {
	return r.update(ctx, "MergeStepData", id, func(instance *models.WorkflowInstance) {
		instance.MergeStepData(step, data)
	})
}

func (r *InstanceRepository) CompleteStep(ctx context.Context, id string, step int) (*models.WorkflowInstance, error) {
	return r.update(ctx, "CompleteStep", id, func(instance *models.WorkflowInstance) {
		instance.MarkStepCompleted(step)
	})
}

// update locks the instance row for the duration of the read-modify-write.
func (r *InstanceRepository) update(ctx context.Context, op, id string, apply func(*models.WorkflowInstance)) (*models.WorkflowInstance, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	instance, err := scanInstance(tx.QueryRowContext(ctx, selectInstance+" WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.NewInstanceError(op, id, persistence.ErrInstanceNotFound)

			return nil, err
		}

		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	apply(instance)

	if err = persistence.Prepare(instance, time.Now().UTC()); err != nil {
		return nil, persistence.NewInstanceError(op, id, err)
	}

	if err = r.write(ctx, tx, instance); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return instance, nil
}

func (r *InstanceRepository) ListActive(ctx context.Context) ([]*models.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, selectInstance+" WHERE status = $1 ORDER BY created_at ASC", models.InstanceStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func(ctx context.Context, r *InstanceRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

func scanInstance(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowInstance, error) {
	var (
		instance                    models.WorkflowInstance
		freezoneCode                sql.NullString
		formDataJSON, completedJSON []byte
	)

	err := scanner.Scan(
		&instance.ID,
		&instance.WorkflowType,
		&freezoneCode,
		&instance.Status,
		&instance.CurrentStep,
		&formDataJSON,
		&completedJSON,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	instance.FreezoneCode = freezoneCode.String

	if formDataJSON != nil {
		if err := json.Unmarshal(formDataJSON, &instance.FormData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal form data: %w", err)
		}
	}

	if completedJSON != nil {
		if err := json.Unmarshal(completedJSON, &instance.CompletedSteps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal completed steps: %w", err)
		}
	}

	return &instance, nil
}
