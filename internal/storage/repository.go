package storage

import (
	"context"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// ContactRepo defines canonical contact storage operations
type ContactRepo interface {
	Save(ctx context.Context, contact model.EnhancedContact) (*model.EnhancedContact, error)
	Update(ctx context.Context, contact model.EnhancedContact) error
	FindByID(ctx context.Context, id string) (*model.EnhancedContact, error)
	FindByPhone(ctx context.Context, phone string) (*model.EnhancedContact, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]model.EnhancedContact, error)
	FindChannels(ctx context.Context, contactID string) ([]model.ContactChannel, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// SourceRepo defines storage operations shared by the five source tables.
// Every method takes the table name; unknown tables fail with ErrBadRequest.
type SourceRepo interface {
	FindByContactID(ctx context.Context, table, contactID string) (*model.SourceRow, error)
	FindByID(ctx context.Context, table, id string) (*model.SourceRow, error)
	ListPaginated(ctx context.Context, table string, limit, offset int) ([]model.SourceRow, error)
	Upsert(ctx context.Context, table string, row model.SourceRow) error
	SetContactID(ctx context.Context, table, id, contactID string) error
	ReassignContactID(ctx context.Context, table, fromContactID, toContactID string) (int64, error)
	DeleteByContactID(ctx context.Context, table, contactID string) (int64, error)
	DeleteByID(ctx context.Context, table, id string) error
	Close(ctx context.Context) error
}

// ExhaustedEventRepo defines exhausted event storage operations
type ExhaustedEventRepo interface {
	Save(ctx context.Context, event model.ExhaustedEvent) error
	Close(ctx context.Context) error
}
