package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// --- ContactRepo Mock ---

// ContactRepoMock mocks the ContactRepo interface
type ContactRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ContactRepoMock) Save(ctx context.Context, contact model.EnhancedContact) (*model.EnhancedContact, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnhancedContact), args.Error(1)
}

// Update mocks the Update method
func (m *ContactRepoMock) Update(ctx context.Context, contact model.EnhancedContact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *ContactRepoMock) FindByID(ctx context.Context, id string) (*model.EnhancedContact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnhancedContact), args.Error(1)
}

// FindByPhone mocks the FindByPhone method
func (m *ContactRepoMock) FindByPhone(ctx context.Context, phone string) (*model.EnhancedContact, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnhancedContact), args.Error(1)
}

// ListPaginated mocks the ListPaginated method
func (m *ContactRepoMock) ListPaginated(ctx context.Context, limit, offset int) ([]model.EnhancedContact, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EnhancedContact), args.Error(1)
}

// FindChannels mocks the FindChannels method
func (m *ContactRepoMock) FindChannels(ctx context.Context, contactID string) ([]model.ContactChannel, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ContactChannel), args.Error(1)
}

// Delete mocks the Delete method
func (m *ContactRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Close mocks the Close method
func (m *ContactRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- SourceRepo Mock ---

// SourceRepoMock mocks the SourceRepo interface
type SourceRepoMock struct {
	mock.Mock
}

// FindByContactID mocks the FindByContactID method
func (m *SourceRepoMock) FindByContactID(ctx context.Context, table, contactID string) (*model.SourceRow, error) {
	args := m.Called(ctx, table, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SourceRow), args.Error(1)
}

// FindByID mocks the FindByID method
func (m *SourceRepoMock) FindByID(ctx context.Context, table, id string) (*model.SourceRow, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SourceRow), args.Error(1)
}

// ListPaginated mocks the ListPaginated method
func (m *SourceRepoMock) ListPaginated(ctx context.Context, table string, limit, offset int) ([]model.SourceRow, error) {
	args := m.Called(ctx, table, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SourceRow), args.Error(1)
}

// Upsert mocks the Upsert method
func (m *SourceRepoMock) Upsert(ctx context.Context, table string, row model.SourceRow) error {
	args := m.Called(ctx, table, row)
	return args.Error(0)
}

// SetContactID mocks the SetContactID method
func (m *SourceRepoMock) SetContactID(ctx context.Context, table, id, contactID string) error {
	args := m.Called(ctx, table, id, contactID)
	return args.Error(0)
}

// ReassignContactID mocks the ReassignContactID method
func (m *SourceRepoMock) ReassignContactID(ctx context.Context, table, fromContactID, toContactID string) (int64, error) {
	args := m.Called(ctx, table, fromContactID, toContactID)
	return args.Get(0).(int64), args.Error(1)
}

// DeleteByContactID mocks the DeleteByContactID method
func (m *SourceRepoMock) DeleteByContactID(ctx context.Context, table, contactID string) (int64, error) {
	args := m.Called(ctx, table, contactID)
	return args.Get(0).(int64), args.Error(1)
}

// DeleteByID mocks the DeleteByID method
func (m *SourceRepoMock) DeleteByID(ctx context.Context, table, id string) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

// Close mocks the Close method
func (m *SourceRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ExhaustedEventRepo Mock ---

// ExhaustedEventRepoMock mocks the ExhaustedEventRepo interface
type ExhaustedEventRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ExhaustedEventRepoMock) Save(ctx context.Context, event model.ExhaustedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Close mocks the Close method
func (m *ExhaustedEventRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
