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

// --- Enhanced Contact Repository Methods ---

// replaceChannelsTx swaps the channel batch of a contact inside an open
// transaction. Channel rows carry no identity across saves; delete and
// reinsert is the contract.
func replaceChannelsTx(tx *gorm.DB, contactID string, channels []model.ContactChannel) error {
	if err := tx.Where("contact_id = ?", contactID).Delete(&model.ContactChannel{}).Error; err != nil {
		return fmt.Errorf("failed to clear channels: %w", err)
	}
	if len(channels) == 0 {
		return nil
	}
	for i := range channels {
		channels[i].ContactID = contactID
		if channels[i].ID == "" {
			channels[i].ID = uuid.New().String()
		}
	}
	if err := tx.Create(&channels).Error; err != nil {
		return fmt.Errorf("failed to insert channels: %w", err)
	}
	return nil
}

// SaveContact creates or updates a canonical contact, replacing its channel
// batch in the same transaction. A contact carrying an ID targets that exact
// row; duplicate phones can coexist, so phone matching alone could land the
// write on the wrong one. Without an ID, matching uses the normalized phone,
// falling back to the (original_table, original_id) provenance key for
// phoneless contacts. Returns the stored contact, whose ID may differ from
// the input when an existing row was matched.
func (r *PostgresRepo) SaveContact(ctx context.Context, contact model.EnhancedContact) (*model.EnhancedContact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != contact.CompanyID {
		return nil, fmt.Errorf("%w: contact CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, contact.CompanyID, companyID)
	}

	saved := contact
	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.EnhancedContact
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		switch {
		case contact.ID != "":
			query = query.Where("id = ?", contact.ID)
		case contact.PhoneNumber != "":
			query = query.Where("phone_number = ?", contact.PhoneNumber)
		default:
			query = query.Where("original_table = ? AND original_id = ?", contact.OriginalTable, contact.OriginalID)
		}
		findErr := query.First(&existing).Error

		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: failed to lock contact row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
			// No match, create
			if saved.ID == "" {
				saved.ID = uuid.New().String()
			}
			created := saved
			created.Channels = nil
			if createErr := tx.Create(&created).Error; createErr != nil {
				txErr = checkConstraintViolation(createErr)
				return txErr
			}
		} else {
			// Match found, keep its identity and provenance
			saved.ID = existing.ID
			saved.OriginalTable = existing.OriginalTable
			saved.OriginalID = existing.OriginalID
			saved.CreatedAt = existing.CreatedAt
			saved.UpdatedAt = utils.Now()
			updates := saved
			updates.Channels = nil
			if updateErr := tx.Model(&existing).Updates(updates).Error; updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
		}

		if chErr := replaceChannelsTx(tx, saved.ID, saved.Channels); chErr != nil {
			txErr = checkConstraintViolation(chErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit save transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveContact Commit", operation)
	observer.ObserveDbOperationDuration("save", "enhanced_contact", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save contact after retries", zap.Error(commitErr))
		return nil, commitErr
	}
	return &saved, nil
}

// UpdateContact updates an existing contact row by ID, leaving its channels
// untouched.
func (r *PostgresRepo) UpdateContact(ctx context.Context, contact model.EnhancedContact) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != contact.CompanyID {
		return fmt.Errorf("%w: contact CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, contact.CompanyID, companyID)
	}
	contact.UpdatedAt = utils.Now()

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.EnhancedContact
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND company_id = ?", contact.ID, companyID).
			First(&existing).Error
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: contact not found for update (ID: %s, CompanyID: %s): %w", apperrors.ErrNotFound, contact.ID, companyID, findErr)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock contact row for update: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		updates := contact
		updates.Channels = nil
		updateResult := tx.Model(&existing).Updates(updates)
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}
		if updateResult.RowsAffected == 0 {
			logger.FromContext(ctx).Warn("UpdateContact resulted in 0 rows affected, potentially no change", zap.String("contact_id", contact.ID))
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateContact Commit", operation)
	observer.ObserveDbOperationDuration("update", "enhanced_contact", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update contact after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindContactByID finds a contact by its ID.
func (r *PostgresRepo) FindContactByID(ctx context.Context, id string) (*model.EnhancedContact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var contact model.EnhancedContact
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&contact)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contact_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindContactByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "enhanced_contact", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find contact by ID after retries",
			zap.String("contact_id", id),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &contact, nil
}

// FindContactByPhone finds a contact by its normalized phone number.
func (r *PostgresRepo) FindContactByPhone(ctx context.Context, phone string) (*model.EnhancedContact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var contact model.EnhancedContact
	operation := func() error {
		result := r.db.WithContext(ctx).Where("phone_number = ? AND company_id = ?", phone, companyID).First(&contact)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: phone %s: %w", apperrors.ErrNotFound, phone, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindContactByPhone", operation)
	observer.ObserveDbOperationDuration("find_by_phone", "enhanced_contact", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find contact by phone after retries",
			zap.String("phone", phone),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &contact, nil
}

// ListContactsPaginated lists canonical contacts for the tenant ordered by
// creation time, oldest first. The dedup scan walks this in pages.
func (r *PostgresRepo) ListContactsPaginated(ctx context.Context, limit, offset int) ([]model.EnhancedContact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var contacts []model.EnhancedContact
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ?", companyID).
			Order("created_at ASC").
			Limit(limit).
			Offset(offset).
			Find(&contacts)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil // Success, even if no records found
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "ListContactsPaginated", operation)
	observer.ObserveDbOperationDuration("list", "enhanced_contact", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		loggerCtx.Error("Failed to list contacts after retries",
			zap.String("company_id", companyID),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
			zap.Error(findErr))
		return nil, findErr
	}
	if contacts == nil { // Ensure empty slice is returned, not nil
		return []model.EnhancedContact{}, nil
	}
	return contacts, nil
}

// FindChannelsByContactID returns the current channel batch of a contact.
func (r *PostgresRepo) FindChannelsByContactID(ctx context.Context, contactID string) ([]model.ContactChannel, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	var channels []model.ContactChannel
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("contact_id = ?", contactID).
			Order("channel_type ASC").
			Find(&channels)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindChannelsByContactID", operation)
	observer.ObserveDbOperationDuration("find_channels", "contact_channel", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find channels after retries",
			zap.String("contact_id", contactID),
			zap.Error(findErr))
		return nil, findErr
	}
	if channels == nil {
		return []model.ContactChannel{}, nil
	}
	return channels, nil
}

// DeleteContact removes a canonical contact and its channel batch.
func (r *PostgresRepo) DeleteContact(ctx context.Context, id string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		if delErr := tx.Where("contact_id = ?", id).Delete(&model.ContactChannel{}).Error; delErr != nil {
			txErr = checkConstraintViolation(delErr)
			return txErr
		}
		result := tx.Where("id = ? AND company_id = ?", id, companyID).Delete(&model.EnhancedContact{})
		if result.Error != nil {
			txErr = checkConstraintViolation(result.Error)
			return txErr
		}
		if result.RowsAffected == 0 {
			txErr = fmt.Errorf("%w: contact_id %s", apperrors.ErrNotFound, id)
			return backoff.Permanent(txErr)
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit delete transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteContact Commit", operation)
	observer.ObserveDbOperationDuration("delete", "enhanced_contact", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete contact after retries", zap.String("contact_id", id), zap.Error(commitErr))
		return commitErr
	}
	return nil
}
