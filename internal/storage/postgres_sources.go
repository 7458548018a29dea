package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/observer"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/logger"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/utils"
)

// --- Source Table Repository Methods ---
//
// All five source tables share one method set keyed by table name. The
// concrete GORM models differ per table, so each helper switches once and the
// public methods stay table-agnostic, working on model.SourceRow.

// sourceModelPtr returns a fresh concrete model pointer for the table, used
// as the GORM statement model for updates and deletes.
func sourceModelPtr(table string) (interface{}, error) {
	switch table {
	case model.TableClients:
		return &model.Client{}, nil
	case model.TableLandBrokers:
		return &model.LandBroker{}, nil
	case model.TablePropertyOwners:
		return &model.PropertyOwner{}, nil
	case model.TableRentalTenants:
		return &model.RentalTenant{}, nil
	case model.TableSuppliers:
		return &model.Supplier{}, nil
	}
	return nil, fmt.Errorf("%w: unknown source table %q", apperrors.ErrBadRequest, table)
}

// findSourceRow runs a First query against the table and flattens the result.
func findSourceRow(db *gorm.DB, table string, query string, args ...interface{}) (*model.SourceRow, error) {
	switch table {
	case model.TableClients:
		var m model.Client
		if err := db.Where(query, args...).First(&m).Error; err != nil {
			return nil, err
		}
		row := m.ToRow()
		return &row, nil
	case model.TableLandBrokers:
		var m model.LandBroker
		if err := db.Where(query, args...).First(&m).Error; err != nil {
			return nil, err
		}
		row := m.ToRow()
		return &row, nil
	case model.TablePropertyOwners:
		var m model.PropertyOwner
		if err := db.Where(query, args...).First(&m).Error; err != nil {
			return nil, err
		}
		row := m.ToRow()
		return &row, nil
	case model.TableRentalTenants:
		var m model.RentalTenant
		if err := db.Where(query, args...).First(&m).Error; err != nil {
			return nil, err
		}
		row := m.ToRow()
		return &row, nil
	case model.TableSuppliers:
		var m model.Supplier
		if err := db.Where(query, args...).First(&m).Error; err != nil {
			return nil, err
		}
		row := m.ToRow()
		return &row, nil
	}
	return nil, fmt.Errorf("%w: unknown source table %q", apperrors.ErrBadRequest, table)
}

// listSourceRows runs a paginated Find against the table and flattens the results.
func listSourceRows(db *gorm.DB, table string, limit, offset int) ([]model.SourceRow, error) {
	assemble := func(n int, flatten func(i int) model.SourceRow) []model.SourceRow {
		rows := make([]model.SourceRow, 0, n)
		for i := 0; i < n; i++ {
			rows = append(rows, flatten(i))
		}
		return rows
	}
	page := db.Order("created_at ASC").Limit(limit).Offset(offset)

	switch table {
	case model.TableClients:
		var ms []model.Client
		if err := page.Find(&ms).Error; err != nil {
			return nil, err
		}
		return assemble(len(ms), func(i int) model.SourceRow { return ms[i].ToRow() }), nil
	case model.TableLandBrokers:
		var ms []model.LandBroker
		if err := page.Find(&ms).Error; err != nil {
			return nil, err
		}
		return assemble(len(ms), func(i int) model.SourceRow { return ms[i].ToRow() }), nil
	case model.TablePropertyOwners:
		var ms []model.PropertyOwner
		if err := page.Find(&ms).Error; err != nil {
			return nil, err
		}
		return assemble(len(ms), func(i int) model.SourceRow { return ms[i].ToRow() }), nil
	case model.TableRentalTenants:
		var ms []model.RentalTenant
		if err := page.Find(&ms).Error; err != nil {
			return nil, err
		}
		return assemble(len(ms), func(i int) model.SourceRow { return ms[i].ToRow() }), nil
	case model.TableSuppliers:
		var ms []model.Supplier
		if err := page.Find(&ms).Error; err != nil {
			return nil, err
		}
		return assemble(len(ms), func(i int) model.SourceRow { return ms[i].ToRow() }), nil
	}
	return nil, fmt.Errorf("%w: unknown source table %q", apperrors.ErrBadRequest, table)
}

// upsertSourceModel builds the concrete model and upserts it keyed on id.
func upsertSourceModel(db *gorm.DB, table string, row model.SourceRow) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}
	switch table {
	case model.TableClients:
		return db.Clauses(onConflict).Create(model.ClientFromRow(row)).Error
	case model.TableLandBrokers:
		return db.Clauses(onConflict).Create(model.LandBrokerFromRow(row)).Error
	case model.TablePropertyOwners:
		return db.Clauses(onConflict).Create(model.PropertyOwnerFromRow(row)).Error
	case model.TableRentalTenants:
		return db.Clauses(onConflict).Create(model.RentalTenantFromRow(row)).Error
	case model.TableSuppliers:
		return db.Clauses(onConflict).Create(model.SupplierFromRow(row)).Error
	}
	return fmt.Errorf("%w: unknown source table %q", apperrors.ErrBadRequest, table)
}

// FindSourceByContactID finds the table's row back-referencing the contact.
func (r *PostgresRepo) FindSourceByContactID(ctx context.Context, table, contactID string) (*model.SourceRow, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var row *model.SourceRow
	operation := func() error {
		var findErr error
		row, findErr = findSourceRow(r.db.WithContext(ctx), table, "contact_id = ? AND company_id = ?", contactID, companyID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s row for contact %s: %w", apperrors.ErrNotFound, table, contactID, findErr)
			}
			if errors.Is(findErr, apperrors.ErrBadRequest) {
				return backoff.Permanent(findErr)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, findErr)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSourceByContactID", operation)
	observer.ObserveDbOperationDuration("find_by_contact_id", table, companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find source row by contact ID after retries",
			zap.String("table", table),
			zap.String("contact_id", contactID),
			zap.Error(findErr))
		return nil, findErr
	}
	return row, nil
}

// FindSourceByID finds a table row by primary key.
func (r *PostgresRepo) FindSourceByID(ctx context.Context, table, id string) (*model.SourceRow, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var row *model.SourceRow
	operation := func() error {
		var findErr error
		row, findErr = findSourceRow(r.db.WithContext(ctx), table, "id = ? AND company_id = ?", id, companyID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s row %s: %w", apperrors.ErrNotFound, table, id, findErr)
			}
			if errors.Is(findErr, apperrors.ErrBadRequest) {
				return backoff.Permanent(findErr)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, findErr)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSourceByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", table, companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find source row by ID after retries",
			zap.String("table", table),
			zap.String("row_id", id),
			zap.Error(findErr))
		return nil, findErr
	}
	return row, nil
}

// ListSourcesPaginated lists the table's rows for the tenant ordered by
// creation time. The full-sync pass walks this in pages.
func (r *PostgresRepo) ListSourcesPaginated(ctx context.Context, table string, limit, offset int) ([]model.SourceRow, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var rows []model.SourceRow
	operation := func() error {
		var listErr error
		rows, listErr = listSourceRows(r.db.WithContext(ctx).Where("company_id = ?", companyID), table, limit, offset)
		if listErr != nil {
			if errors.Is(listErr, apperrors.ErrBadRequest) {
				return backoff.Permanent(listErr)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, listErr)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	listErr := retryableOperation(ctx, readPolicy, "ListSourcesPaginated", operation)
	observer.ObserveDbOperationDuration("list", table, companyID, time.Since(startTime), listErr)

	if listErr != nil {
		logger.FromContext(ctx).Error("Failed to list source rows after retries",
			zap.String("table", table),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
			zap.Error(listErr))
		return nil, listErr
	}
	if rows == nil {
		return []model.SourceRow{}, nil
	}
	return rows, nil
}

// UpsertSource inserts or updates the table's row keyed on its ID.
func (r *PostgresRepo) UpsertSource(ctx context.Context, table string, row model.SourceRow) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != row.CompanyID {
		return fmt.Errorf("%w: row CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, row.CompanyID, companyID)
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	row.UpdatedAt = utils.Now()

	operation := func() error {
		if upsertErr := upsertSourceModel(r.db.WithContext(ctx), table, row); upsertErr != nil {
			if errors.Is(upsertErr, apperrors.ErrBadRequest) {
				return backoff.Permanent(upsertErr)
			}
			return checkConstraintViolation(upsertErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertSource Commit", operation)
	observer.ObserveDbOperationDuration("upsert", table, companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert source row after retries",
			zap.String("table", table),
			zap.String("row_id", row.ID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// UpdateSourceContactID writes the canonical contact back-reference onto a
// source row after a reverse-sync create.
func (r *PostgresRepo) UpdateSourceContactID(ctx context.Context, table, id, contactID string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	modelPtr, err := sourceModelPtr(table)
	if err != nil {
		return err
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(modelPtr).
			Where("id = ? AND company_id = ?", id, companyID).
			Updates(map[string]interface{}{"contact_id": contactID, "updated_at": utils.Now()})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return backoff.Permanent(fmt.Errorf("%w: %s row %s", apperrors.ErrNotFound, table, id))
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateSourceContactID Commit", operation)
	observer.ObserveDbOperationDuration("set_contact_id", table, companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to set contact ID on source row after retries",
			zap.String("table", table),
			zap.String("row_id", id),
			zap.String("contact_id", contactID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// ReassignSourceContactID repoints rows of one contact at another. Merge uses
// this to relink a duplicate's source rows to the surviving base contact.
// Returns the number of rows moved.
func (r *PostgresRepo) ReassignSourceContactID(ctx context.Context, table, fromContactID, toContactID string) (int64, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	modelPtr, err := sourceModelPtr(table)
	if err != nil {
		return 0, err
	}

	var moved int64
	operation := func() error {
		result := r.db.WithContext(ctx).Model(modelPtr).
			Where("contact_id = ? AND company_id = ?", fromContactID, companyID).
			Updates(map[string]interface{}{"contact_id": toContactID, "updated_at": utils.Now()})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		moved = result.RowsAffected
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "ReassignSourceContactID Commit", operation)
	observer.ObserveDbOperationDuration("reassign_contact_id", table, companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to reassign source rows after retries",
			zap.String("table", table),
			zap.String("from_contact_id", fromContactID),
			zap.String("to_contact_id", toContactID),
			zap.Error(commitErr))
		return 0, commitErr
	}
	return moved, nil
}

// DeleteSourceByContactID removes the table's rows back-referencing the
// contact. Missing rows are a no-op; returns the number of rows removed.
func (r *PostgresRepo) DeleteSourceByContactID(ctx context.Context, table, contactID string) (int64, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	modelPtr, err := sourceModelPtr(table)
	if err != nil {
		return 0, err
	}

	var removed int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("contact_id = ? AND company_id = ?", contactID, companyID).
			Delete(modelPtr)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		removed = result.RowsAffected
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteSourceByContactID Commit", operation)
	observer.ObserveDbOperationDuration("delete_by_contact_id", table, companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete source rows after retries",
			zap.String("table", table),
			zap.String("contact_id", contactID),
			zap.Error(commitErr))
		return 0, commitErr
	}
	return removed, nil
}

// DeleteSourceByID removes one table row by primary key. Missing rows are a
// no-op.
func (r *PostgresRepo) DeleteSourceByID(ctx context.Context, table, id string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	modelPtr, err := sourceModelPtr(table)
	if err != nil {
		return err
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", id, companyID).
			Delete(modelPtr)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteSourceByID Commit", operation)
	observer.ObserveDbOperationDuration("delete", table, companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete source row after retries",
			zap.String("table", table),
			zap.String("row_id", id),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
