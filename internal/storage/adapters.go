package storage

import (
	"context"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// ContactRepoAdapter adapts the PostgresRepo to the ContactRepo interface
type ContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewContactRepoAdapter creates a new contact repository adapter
func NewContactRepoAdapter(postgres *PostgresRepo) ContactRepo {
	return &ContactRepoAdapter{postgres: postgres}
}

// Save creates or updates a contact and its channel batch
func (a *ContactRepoAdapter) Save(ctx context.Context, contact model.EnhancedContact) (*model.EnhancedContact, error) {
	return a.postgres.SaveContact(ctx, contact)
}

// Update updates a contact by ID
func (a *ContactRepoAdapter) Update(ctx context.Context, contact model.EnhancedContact) error {
	return a.postgres.UpdateContact(ctx, contact)
}

// FindByID finds a contact by ID
func (a *ContactRepoAdapter) FindByID(ctx context.Context, id string) (*model.EnhancedContact, error) {
	return a.postgres.FindContactByID(ctx, id)
}

// FindByPhone finds a contact by normalized phone number
func (a *ContactRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.EnhancedContact, error) {
	return a.postgres.FindContactByPhone(ctx, phone)
}

// ListPaginated lists contacts ordered by creation time
func (a *ContactRepoAdapter) ListPaginated(ctx context.Context, limit, offset int) ([]model.EnhancedContact, error) {
	return a.postgres.ListContactsPaginated(ctx, limit, offset)
}

// FindChannels returns a contact's channel batch
func (a *ContactRepoAdapter) FindChannels(ctx context.Context, contactID string) ([]model.ContactChannel, error) {
	return a.postgres.FindChannelsByContactID(ctx, contactID)
}

// Delete removes a contact and its channels
func (a *ContactRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteContact(ctx, id)
}

func (a *ContactRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// SourceRepoAdapter adapts the PostgresRepo to the SourceRepo interface
type SourceRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSourceRepoAdapter creates a new source table repository adapter
func NewSourceRepoAdapter(postgres *PostgresRepo) SourceRepo {
	return &SourceRepoAdapter{postgres: postgres}
}

// FindByContactID finds the table's row back-referencing the contact
func (a *SourceRepoAdapter) FindByContactID(ctx context.Context, table, contactID string) (*model.SourceRow, error) {
	return a.postgres.FindSourceByContactID(ctx, table, contactID)
}

// FindByID finds a table row by primary key
func (a *SourceRepoAdapter) FindByID(ctx context.Context, table, id string) (*model.SourceRow, error) {
	return a.postgres.FindSourceByID(ctx, table, id)
}

// ListPaginated lists the table's rows ordered by creation time
func (a *SourceRepoAdapter) ListPaginated(ctx context.Context, table string, limit, offset int) ([]model.SourceRow, error) {
	return a.postgres.ListSourcesPaginated(ctx, table, limit, offset)
}

// Upsert inserts or updates the table's row keyed on ID
func (a *SourceRepoAdapter) Upsert(ctx context.Context, table string, row model.SourceRow) error {
	return a.postgres.UpsertSource(ctx, table, row)
}

// SetContactID writes the canonical back-reference onto a row
func (a *SourceRepoAdapter) SetContactID(ctx context.Context, table, id, contactID string) error {
	return a.postgres.UpdateSourceContactID(ctx, table, id, contactID)
}

// ReassignContactID repoints one contact's rows at another
func (a *SourceRepoAdapter) ReassignContactID(ctx context.Context, table, fromContactID, toContactID string) (int64, error) {
	return a.postgres.ReassignSourceContactID(ctx, table, fromContactID, toContactID)
}

// DeleteByContactID removes the table's rows back-referencing the contact
func (a *SourceRepoAdapter) DeleteByContactID(ctx context.Context, table, contactID string) (int64, error) {
	return a.postgres.DeleteSourceByContactID(ctx, table, contactID)
}

// DeleteByID removes one table row
func (a *SourceRepoAdapter) DeleteByID(ctx context.Context, table, id string) error {
	return a.postgres.DeleteSourceByID(ctx, table, id)
}

func (a *SourceRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// --- ExhaustedEventRepo Adapter ---

// ExhaustedEventRepoAdapter adapts the PostgresRepo to the ExhaustedEventRepo interface
type ExhaustedEventRepoAdapter struct {
	postgres *PostgresRepo
}

// NewExhaustedEventRepoAdapter creates a new exhausted event repository adapter
func NewExhaustedEventRepoAdapter(postgres *PostgresRepo) ExhaustedEventRepo {
	return &ExhaustedEventRepoAdapter{postgres: postgres}
}

// Save saves an exhausted event
func (a *ExhaustedEventRepoAdapter) Save(ctx context.Context, event model.ExhaustedEvent) error {
	return a.postgres.SaveExhaustedEvent(ctx, event)
}

// Close closes the repository
func (a *ExhaustedEventRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// Ensure adapters implement the interfaces
var _ ContactRepo = (*ContactRepoAdapter)(nil)
var _ SourceRepo = (*SourceRepoAdapter)(nil)
var _ ExhaustedEventRepo = (*ExhaustedEventRepoAdapter)(nil)
