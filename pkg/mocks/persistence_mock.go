package mocks

import (
	"context"

	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockInstanceRepository is a mock implementation of persistence.InstanceRepository interface.
type MockInstanceRepository struct {
	mock.Mock
}

func (m *MockInstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	args := m.Called(ctx, instance)

	return args.Error(0)
}

func (m *MockInstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}

func (m *MockInstanceRepository) MergeStepData(ctx context.Context, id string, step int, data map[string]any) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, id, step, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}

func (m *MockInstanceRepository) CompleteStep(ctx context.Context, id string, step int) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, id, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}

func (m *MockInstanceRepository) ListActive(ctx context.Context) ([]*models.WorkflowInstance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowInstance), args.Error(1)
}

// MockDocumentRepository is a mock implementation of persistence.DocumentRepository interface.
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Save(ctx context.Context, document *models.DocumentRecord) error {
	args := m.Called(ctx, document)

	return args.Error(0)
}

func (m *MockDocumentRepository) ListByStep(ctx context.Context, instanceID string, step int) ([]*models.DocumentRecord, error) {
	args := m.Called(ctx, instanceID, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.DocumentRecord), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	InstanceRepo *MockInstanceRepository
	DocumentRepo *MockDocumentRepository
}

// NewMockPersistence creates a new MockPersistence with initialized repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		InstanceRepo: &MockInstanceRepository{},
		DocumentRepo: &MockDocumentRepository{},
	}
}

func (m *MockPersistence) Instances() persistence.InstanceRepository {
	return m.InstanceRepo
}

func (m *MockPersistence) Documents() persistence.DocumentRepository {
	return m.DocumentRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
