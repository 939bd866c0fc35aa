package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/persistence"
)

// InstanceRepository handles workflow instance file operations.
type InstanceRepository struct {
	root  string
	locks *sync.Map // instance id -> *sync.Mutex
}

func (r *InstanceRepository) dir() string {
	return path.Join(r.root, "instances")
}

func (r *InstanceRepository) lock(id string) func() {
	mu, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()

	return mu.(*sync.Mutex).Unlock
}

// Save writes an instance to the file system.
func (r *InstanceRepository) Save(_ context.Context, instance *models.WorkflowInstance) error {
	if err := persistence.Prepare(instance, time.Now().UTC()); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	unlock := r.lock(instance.ID)
	defer unlock()

	return r.write(instance)
}

func (r *InstanceRepository) write(instance *models.WorkflowInstance) error {
	err := os.MkdirAll(r.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create instances directory: %w", err)
	}

	data, err := json.MarshalIndent(instance, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance %s: %w", instance.ID, err)
	}

	filePath, err := r.path(instance.ID)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	// Write then rename so readers never see a partial document.
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write instance %s: %w", instance.ID, err)
	}

	return os.Rename(tmp, filePath)
}

// GetByID retrieves an instance by its ID from the file system.
func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	return r.read(id)
}

func (r *InstanceRepository) read(id string) (*models.WorkflowInstance, error) {
	filePath, err := r.path(id)
	if err != nil {
		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, fmt.Errorf("failed to fetch instance %s: %w", id, err)
	}

	var instance models.WorkflowInstance

	err = json.Unmarshal(body, &instance)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance %s: %w", id, err)
	}

	return &instance, nil
}

// MergeStepData merges data into the stored data of a step.
func (r *InstanceRepository) MergeStepData(_ context.Context, id string, step int, data map[string]any) (*models.WorkflowInstance, error) {
	return r.update(id, func(instance *models.WorkflowInstance) {
		instance.MergeStepData(step, data)
	})
}

// CompleteStep marks a step completed.
func (r *InstanceRepository) CompleteStep(_ context.Context, id string, step int) (*models.WorkflowInstance, error) {
	return r.update(id, func(instance *models.WorkflowInstance) {
		instance.MarkStepCompleted(step)
	})
}

func (r *InstanceRepository) update(id string, apply func(*models.WorkflowInstance)) (*models.WorkflowInstance, error) {
	unlock := r.lock(id)
	defer unlock()

	instance, err := r.read(id)
	if err != nil {
		return nil, err
	}

	apply(instance)

	if err := persistence.Prepare(instance, time.Now().UTC()); err != nil {
		return nil, persistence.NewInstanceError("Update", id, err)
	}

	if err := r.write(instance); err != nil {
		return nil, err
	}

	return instance, nil
}

// ListActive returns every in-progress instance, oldest first.
func (r *InstanceRepository) ListActive(_ context.Context) ([]*models.WorkflowInstance, error) {
	jsonFiles, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list instance files: %w", err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		instance, err := r.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsInstanceNotFound(err) {
				continue
			}

			return nil, err
		}

		if instance.Status == models.InstanceStatusInProgress {
			instances = append(instances, instance)
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})

	return instances, nil
}

var errInvalidID = errors.New("invalid identifier")

// path resolves the file of an id, rejecting ids that would escape the directory.
func (r *InstanceRepository) path(id string) (string, error) {
	return safeJoin(r.dir(), id+".json")
}

func safeJoin(dir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", errInvalidID
	}

	return filepath.Clean(path.Join(dir, name)), nil
}
