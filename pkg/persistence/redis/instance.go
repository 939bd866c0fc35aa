package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 10

// InstanceRepository stores instances with optimistic locking through WATCH.
type InstanceRepository struct {
	client redis.UniversalClient
	keys   keyspace
	logger *slog.Logger
}

func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	if err := persistence.Prepare(instance, time.Now().UTC()); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return r.write(ctx, pipe, instance)
	})
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) write(ctx context.Context, pipe redis.Pipeliner, instance *models.WorkflowInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to marshal instance %s: %w", instance.ID, err)
	}

	pipe.Set(ctx, r.keys.instance(instance.ID), data, 0)

	if instance.Status == models.InstanceStatusInProgress {
		pipe.ZAdd(ctx, r.keys.active(), redis.Z{
			Score:  float64(instance.CreatedAt.UnixNano()),
			Member: instance.ID,
		})
	} else {
		pipe.ZRem(ctx, r.keys.active(), instance.ID)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	return r.read(ctx, r.client, "GetByID", id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *InstanceRepository) read(ctx context.Context, cmd getter, op, id string) (*models.WorkflowInstance, error) {
	data, err := cmd.Get(ctx, r.keys.instance(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewInstanceError(op, id, persistence.ErrInstanceNotFound)
		}

		return nil, fmt.Errorf("failed to read instance %s: %w", id, err)
	}

	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance %s: %w", id, err)
	}

	return &instance, nil
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

// update retries the read-modify-write while concurrent writers invalidate the watch.
func (r *InstanceRepository) update(ctx context.Context, op, id string, apply func(*models.WorkflowInstance)) (*models.WorkflowInstance, error) {
	var updated *models.WorkflowInstance

	txf := func(tx *redis.Tx) error {
		instance, err := r.read(ctx, tx, op, id)
		if err != nil {
			return err
		}

		apply(instance)

		if err := persistence.Prepare(instance, time.Now().UTC()); err != nil {
			return persistence.NewInstanceError(op, id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return r.write(ctx, pipe, instance)
		})
		if err != nil {
			return err
		}

		updated = instance

		return nil
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, r.keys.instance(id))
		if err == nil {
			return updated, nil
		}

		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}

		r.logger.DebugContext(ctx, "instance changed during update, retrying", "instance_id", id, "attempt", attempt)
	}

	return nil, fmt.Errorf("failed to update instance %s: too many concurrent writers", id)
}

func (r *InstanceRepository) ListActive(ctx context.Context) ([]*models.WorkflowInstance, error) {
	ids, err := r.client.ZRange(ctx, r.keys.active(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active instances: %w", err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(ids))

	for _, id := range ids {
		instance, err := r.read(ctx, r.client, "ListActive", id)
		if err != nil {
			if persistence.IsInstanceNotFound(err) {
				r.logger.WarnContext(ctx, "active instance has no document", "instance_id", id)

				continue
			}

			return nil, err
		}

		instances = append(instances, instance)
	}

	return instances, nil
}
