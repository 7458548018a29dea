package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// MockChangesService is a mock for the ChangesService interface
type MockChangesService struct {
	mock.Mock
}

// UpsertSourceRow mocks the UpsertSourceRow method
func (m *MockChangesService) UpsertSourceRow(ctx context.Context, table string, payload model.UpsertSourcePayload, metadata *model.LastMetadata) error {
	args := m.Called(ctx, table, payload, metadata)
	return args.Error(0)
}

// DeleteSourceRow mocks the DeleteSourceRow method
func (m *MockChangesService) DeleteSourceRow(ctx context.Context, table string, payload model.DeleteSourcePayload, metadata *model.LastMetadata) error {
	args := m.Called(ctx, table, payload, metadata)
	return args.Error(0)
}

// UpsertContact mocks the UpsertContact method
func (m *MockChangesService) UpsertContact(ctx context.Context, payload model.UpsertContactPayload, metadata *model.LastMetadata) error {
	args := m.Called(ctx, payload, metadata)
	return args.Error(0)
}

// DeleteContact mocks the DeleteContact method
func (m *MockChangesService) DeleteContact(ctx context.Context, payload model.DeleteContactPayload, metadata *model.LastMetadata) error {
	args := m.Called(ctx, payload, metadata)
	return args.Error(0)
}

// ProcessSyncAll mocks the ProcessSyncAll method
func (m *MockChangesService) ProcessSyncAll(ctx context.Context, payload model.SyncAllPayload, metadata *model.LastMetadata) error {
	args := m.Called(ctx, payload, metadata)
	return args.Error(0)
}

// ProcessDedup mocks the ProcessDedup method
func (m *MockChangesService) ProcessDedup(ctx context.Context, payload model.DedupPayload, metadata *model.LastMetadata) error {
	args := m.Called(ctx, payload, metadata)
	return args.Error(0)
}
