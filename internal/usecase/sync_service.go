package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gorm.io/datatypes"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/adapter"
	apperrors "gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/observer"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/validator"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/logger"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/utils"
	"go.uber.org/zap"
)

// syncPageSize bounds how many source rows a full sync loads per query.
const syncPageSize = 200

// SyncOutcome is the per-table result of a sync pass.
type SyncOutcome struct {
	Table   string `json:"table"`
	Synced  int    `json:"synced"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SyncReport aggregates per-table outcomes. Success means every table
// succeeded; a partial run keeps Success false but still reports what synced.
type SyncReport struct {
	Results     []SyncOutcome `json:"results"`
	TotalSynced int           `json:"total_synced"`
	Success     bool          `json:"success"`
}

// metadataJSON converts NATS message metadata into the jsonb provenance blob
// stored on canonical contacts.
func metadataJSON(metadata *model.LastMetadata) datatypes.JSON {
	if metadata == nil {
		return nil
	}
	return utils.MustMarshalJSON(map[string]interface{}{
		"consumer_sequence": metadata.ConsumerSequence,
		"stream_sequence":   metadata.StreamSequence,
		"stream":            metadata.Stream,
		"consumer":          metadata.Consumer,
		"domain":            metadata.Domain,
		"message_id":        metadata.MessageID,
		"message_subject":   metadata.MessageSubject,
		"processed_at":      utils.Now(),
	})
}

// classifyRepoError wraps a repository error for the consumer's ack decision:
// transient store failures get retried, everything else terminates delivery.
func classifyRepoError(err error, message string, args ...interface{}) error {
	if errors.Is(err, apperrors.ErrDatabase) || errors.Is(err, apperrors.ErrTimeout) || errors.Is(err, apperrors.ErrConflict) {
		return apperrors.NewRetryable(err, message, args...)
	}
	return apperrors.NewFatal(err, message, args...)
}

// UpsertSourceRow processes an inserted or updated row arriving from one of
// the source tables: it mirrors the row locally, then resolves it onto a
// canonical contact.
func (s *EventService) UpsertSourceRow(ctx context.Context, table string, payload model.UpsertSourcePayload, metadata *model.LastMetadata) error {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		log.Error("Source row validation failed",
			zap.String("table", table),
			zap.String("row_id", payload.ID),
			zap.Error(err),
		)
		return apperrors.NewFatal(err, "source row validation failed for table %s", table)
	}

	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		log.Error("CompanyID validation failed for source row",
			zap.String("table", table),
			zap.String("row_id", payload.ID),
			zap.String("company_id", payload.CompanyID),
			zap.Error(err),
		)
		return apperrors.NewFatal(err, "source row CompanyID mismatch")
	}

	row := payload.ToSourceRow()
	if row.CompanyID == "" && metadata != nil {
		row.CompanyID = metadata.CompanyID
	}

	if err := s.sourceRepo.Upsert(ctx, table, row); err != nil {
		log.Error("Failed to mirror source row",
			zap.String("table", table),
			zap.String("row_id", row.ID),
			zap.Error(err),
		)
		return classifyRepoError(err, "failed to mirror %s row", table)
	}

	contact, err := s.SyncFromPageToContact(ctx, table, row, metadataJSON(metadata))
	if err != nil {
		return classifyRepoError(err, "failed to resolve %s row onto canonical contact", table)
	}

	log.Info("Source row resolved onto canonical contact",
		zap.String("table", table),
		zap.String("row_id", row.ID),
		zap.String("contact_id", contact.ID),
	)
	return nil
}

// DeleteSourceRow removes the row's local mirror. The canonical contact the
// row once resolved to is left untouched; deletion only ever propagates from
// the canonical side outward.
func (s *EventService) DeleteSourceRow(ctx context.Context, table string, payload model.DeleteSourcePayload, metadata *model.LastMetadata) error {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		log.Error("Source delete validation failed", zap.String("table", table), zap.Error(err))
		return apperrors.NewFatal(err, "source delete validation failed for table %s", table)
	}
	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		log.Error("CompanyID validation failed for source delete", zap.String("table", table), zap.Error(err))
		return apperrors.NewFatal(err, "source delete CompanyID mismatch")
	}

	if err := s.sourceRepo.DeleteByID(ctx, table, payload.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn("Source row already absent, nothing to delete",
				zap.String("table", table),
				zap.String("row_id", payload.ID),
			)
			return nil
		}
		return classifyRepoError(err, "failed to delete %s row %s", table, payload.ID)
	}

	log.Info("Deleted mirrored source row", zap.String("table", table), zap.String("row_id", payload.ID))
	return nil
}

// SyncFromPageToContact resolves one source row onto the canonical contact
// sharing its normalized phone. A matching contact is updated in place
// (accumulating the row's role tag); no match creates a new contact. The
// resulting contact id is written back onto the source row.
func (s *EventService) SyncFromPageToContact(ctx context.Context, table string, row model.SourceRow, lastMetadata datatypes.JSON) (*model.EnhancedContact, error) {
	log := logger.FromContext(ctx)

	sourceAdapter, err := s.adapters.ByTable(table)
	if err != nil {
		return nil, err
	}

	contact, err := sourceAdapter.ToCanonical(row)
	if err != nil {
		return nil, err
	}
	contact.LastMetadata = lastMetadata

	// Fold in fields the canonical record owns: role accumulation and
	// manually curated attributes survive a re-sync.
	if contact.PhoneNumber != "" {
		existing, findErr := s.contactRepo.FindByPhone(ctx, contact.PhoneNumber)
		if findErr != nil && !errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, findErr
		}
		if findErr == nil {
			merged := contact
			merged.Roles = existing.Roles
			merged.AddRole(sourceAdapter.Role())
			merged.Rating = existing.Rating
			merged.Status = existing.Status
			merged.ShortName = existing.ShortName
			merged.PreferredContactMethod = existing.PreferredContactMethod
			if merged.Notes == "" {
				merged.Notes = existing.Notes
			}
			if merged.Language == "" {
				merged.Language = existing.Language
			}
			contact = merged
		}
	}

	saved, err := s.contactRepo.Save(ctx, contact)
	if err != nil {
		return nil, err
	}

	if row.ContactID != saved.ID {
		if err := s.sourceRepo.SetContactID(ctx, table, row.ID, saved.ID); err != nil {
			log.Error("Failed to write contact id back onto source row",
				zap.String("table", table),
				zap.String("row_id", row.ID),
				zap.String("contact_id", saved.ID),
				zap.Error(err),
			)
			return nil, err
		}
	}
	return saved, nil
}

// SyncContactToPages pushes a canonical contact's fields onto the source row
// of every role it carries, creating rows that do not exist yet. Per-role
// failures are isolated; the report lists each table's outcome.
func (s *EventService) SyncContactToPages(ctx context.Context, contact model.EnhancedContact) (*SyncReport, error) {
	log := logger.FromContext(ctx)

	companyID, err := tenant.FromContext(ctx)
	if err != nil || companyID == "" {
		return nil, apperrors.NewFatal(err, "failed to get tenant ID from context")
	}
	if err := validateCompanyTenant(ctx, contact.CompanyID); err != nil {
		return nil, apperrors.NewFatal(err, "contact CompanyID mismatch")
	}

	report := &SyncReport{Success: true}
	for _, role := range contact.RoleList() {
		sourceAdapter, lookupErr := s.adapters.ByRole(role)
		if lookupErr != nil {
			report.Success = false
			report.Results = append(report.Results, SyncOutcome{
				Table: role,
				Error: lookupErr.Error(),
			})
			observer.IncSyncOperation(companyID, role, "error")
			continue
		}
		table := sourceAdapter.Table()

		outcome := SyncOutcome{Table: table, Success: true}
		if syncErr := s.syncContactToTable(ctx, sourceAdapter, contact); syncErr != nil {
			log.Warn("Per-role sync failed, continuing with remaining roles",
				zap.String("table", table),
				zap.String("contact_id", contact.ID),
				zap.Error(syncErr),
			)
			outcome.Success = false
			outcome.Error = syncErr.Error()
			report.Success = false
			observer.IncSyncOperation(companyID, table, "error")
		} else {
			outcome.Synced = 1
			report.TotalSynced++
			observer.IncSyncOperation(companyID, table, "success")
		}
		report.Results = append(report.Results, outcome)
	}

	log.Info("Contact pushed to source tables",
		zap.String("contact_id", contact.ID),
		zap.Int("synced", report.TotalSynced),
		zap.Bool("success", report.Success),
	)
	return report, nil
}

// syncContactToTable writes the contact's projection into one source table,
// updating the row already linked to it or inserting a fresh one.
func (s *EventService) syncContactToTable(ctx context.Context, sourceAdapter adapter.SourceAdapter, contact model.EnhancedContact) error {
	table := sourceAdapter.Table()
	row := sourceAdapter.FromCanonical(contact)
	row.ContactID = contact.ID

	existing, err := s.sourceRepo.FindByContactID(ctx, table, contact.ID)
	switch {
	case err == nil:
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	case errors.Is(err, apperrors.ErrNotFound):
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
	default:
		return err
	}

	return s.sourceRepo.Upsert(ctx, table, row)
}

// SyncAllContacts walks every source table and resolves each row onto its
// canonical contact. The five tables are disjoint, so each runs as its own
// task on the worker pool; one table failing never blocks the others.
func (s *EventService) SyncAllContacts(ctx context.Context) (*SyncReport, error) {
	log := logger.FromContext(ctx)
	start := utils.Now()

	companyID, err := tenant.FromContext(ctx)
	if err != nil || companyID == "" {
		return nil, apperrors.NewFatal(err, "failed to get tenant ID from context")
	}

	poolSize := s.syncPool.PoolSize
	if poolSize <= 0 {
		poolSize = len(model.SourceTables())
	}
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, apperrors.NewFatal(err, "failed to create sync worker pool")
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		report  = &SyncReport{Success: true}
		results = make([]SyncOutcome, len(model.SourceTables()))
	)

	for i, table := range model.SourceTables() {
		i, table := i, table
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer utils.RecoverWithLog(ctx, fmt.Sprintf("sync table %s", table))
			results[i] = s.syncTable(ctx, companyID, table)
		})
		if submitErr != nil {
			wg.Done()
			results[i] = SyncOutcome{Table: table, Error: submitErr.Error()}
		}
		observer.SetSyncPoolQueueLength(pool.Waiting())
	}
	wg.Wait()
	observer.SetSyncPoolQueueLength(0)

	for _, outcome := range results {
		report.Results = append(report.Results, outcome)
		report.TotalSynced += outcome.Synced
		if !outcome.Success {
			report.Success = false
		}
	}

	observer.ObserveSyncFullRunDuration(companyID, time.Since(start))
	log.Info("Full sync pass finished",
		zap.Int("total_synced", report.TotalSynced),
		zap.Bool("success", report.Success),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// syncTable resolves every row of one source table, counting failures instead
// of stopping on them.
func (s *EventService) syncTable(ctx context.Context, companyID, table string) SyncOutcome {
	log := logger.FromContext(ctx)
	outcome := SyncOutcome{Table: table, Success: true}

	var failures int
	for offset := 0; ; offset += syncPageSize {
		rows, err := s.sourceRepo.ListPaginated(ctx, table, syncPageSize, offset)
		if err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
			observer.IncSyncOperation(companyID, table, "error")
			return outcome
		}
		for _, row := range rows {
			if _, err := s.SyncFromPageToContact(ctx, table, row, nil); err != nil {
				failures++
				log.Warn("Row failed to sync, continuing",
					zap.String("table", table),
					zap.String("row_id", row.ID),
					zap.Error(err),
				)
				continue
			}
			outcome.Synced++
		}
		if len(rows) < syncPageSize {
			break
		}
	}

	if failures > 0 {
		outcome.Success = false
		outcome.Error = fmt.Sprintf("%d rows failed to sync", failures)
		observer.IncSyncOperation(companyID, table, "partial")
	} else {
		observer.IncSyncOperation(companyID, table, "success")
	}
	return outcome
}

// DeleteSyncedRecords removes the contact's rows from every source table
// except its original table. The record a contact was created from is never
// deleted by propagation. Missing rows are no-ops; the count of removed rows
// is returned.
func (s *EventService) DeleteSyncedRecords(ctx context.Context, contactID, originalTable string) (int64, error) {
	log := logger.FromContext(ctx)

	var (
		total int64
		errs  []string
	)
	for _, table := range model.SourceTables() {
		if table == originalTable {
			continue
		}
		removed, err := s.sourceRepo.DeleteByContactID(ctx, table, contactID)
		if err != nil {
			log.Error("Failed to delete synced rows",
				zap.String("table", table),
				zap.String("contact_id", contactID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", table, err))
			continue
		}
		total += removed
	}

	if len(errs) > 0 {
		return total, fmt.Errorf("%w: deletion propagation incomplete: %v", apperrors.ErrDatabase, errs)
	}
	return total, nil
}

// UpsertContact stores a canonical contact edited in the CRM frontend and
// pushes the result onto the source row of every role it carries. A partial
// forward sync is not retried; the per-table outcomes are logged instead.
func (s *EventService) UpsertContact(ctx context.Context, payload model.UpsertContactPayload, metadata *model.LastMetadata) error {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		log.Error("Contact upsert validation failed",
			zap.String("contact_id", payload.ContactID),
			zap.Error(err),
		)
		return apperrors.NewFatal(err, "contact upsert validation failed")
	}
	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		log.Error("CompanyID validation failed for contact upsert",
			zap.String("contact_id", payload.ContactID),
			zap.String("company_id", payload.CompanyID),
			zap.Error(err),
		)
		return apperrors.NewFatal(err, "contact upsert CompanyID mismatch")
	}

	countryCode := s.adapters.CountryCode()
	phone := utils.NormalizePhone(payload.Phone, countryCode)
	contact := model.EnhancedContact{
		ID:                     payload.ContactID,
		CompanyID:              payload.CompanyID,
		FullName:               payload.FullName,
		ShortName:              payload.ShortName,
		Language:               payload.Language,
		Notes:                  payload.Notes,
		Rating:                 payload.Rating,
		Roles:                  payload.Roles,
		Status:                 payload.Status,
		PreferredContactMethod: payload.PreferredContactMethod,
		PhoneNumber:            phone,
		OfficeName:             payload.OfficeName,
		CrNumber:               payload.CrNumber,
		Nationality:            payload.Nationality,
		Iban:                   payload.Iban,
		IDNumber:               payload.IDNumber,
		Address:                payload.Address,
		CompanyName:            payload.CompanyName,
		LastMetadata:           metadataJSON(metadata),
	}
	if contact.Status == "" {
		contact.Status = model.ContactStatusNew
	}
	contact.Channels = model.BuildChannels(contact.ID, phone, utils.NormalizePhone(payload.Whatsapp, countryCode), payload.Email)

	saved, err := s.contactRepo.Save(ctx, contact)
	if err != nil {
		return classifyRepoError(err, "failed to save contact %s", payload.ContactID)
	}

	report, err := s.SyncContactToPages(ctx, *saved)
	if err != nil {
		return classifyRepoError(err, "failed to forward-sync contact %s", saved.ID)
	}
	if !report.Success {
		log.Warn("Contact upsert forward-synced partially", zap.Any("results", report.Results))
	}

	log.Info("Contact upserted and forward-synced",
		zap.String("contact_id", saved.ID),
		zap.Int("synced", report.TotalSynced),
	)
	return nil
}

// DeleteContact removes a canonical contact, propagates the deletion to its
// synced source rows, and unlinks the row it originated from.
func (s *EventService) DeleteContact(ctx context.Context, payload model.DeleteContactPayload, metadata *model.LastMetadata) error {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		log.Error("Contact delete validation failed", zap.Error(err))
		return apperrors.NewFatal(err, "contact delete validation failed")
	}
	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		log.Error("CompanyID validation failed for contact delete", zap.Error(err))
		return apperrors.NewFatal(err, "contact delete CompanyID mismatch")
	}

	originalTable := payload.OriginalTable
	if originalTable == "" {
		contact, err := s.contactRepo.FindByID(ctx, payload.ContactID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				log.Warn("Contact already absent, nothing to delete", zap.String("contact_id", payload.ContactID))
				return nil
			}
			return classifyRepoError(err, "failed to load contact %s for deletion", payload.ContactID)
		}
		originalTable = contact.OriginalTable
	}

	removed, err := s.DeleteSyncedRecords(ctx, payload.ContactID, originalTable)
	if err != nil {
		return classifyRepoError(err, "failed to propagate deletion for contact %s", payload.ContactID)
	}

	// The original row survives but its back-reference must not dangle.
	if originalTable != "" {
		if row, findErr := s.sourceRepo.FindByContactID(ctx, originalTable, payload.ContactID); findErr == nil {
			if unlinkErr := s.sourceRepo.SetContactID(ctx, originalTable, row.ID, ""); unlinkErr != nil {
				log.Warn("Failed to unlink original source row",
					zap.String("table", originalTable),
					zap.String("row_id", row.ID),
					zap.Error(unlinkErr),
				)
			}
		} else if !errors.Is(findErr, apperrors.ErrNotFound) {
			return classifyRepoError(findErr, "failed to find original row for contact %s", payload.ContactID)
		}
	}

	if err := s.contactRepo.Delete(ctx, payload.ContactID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn("Contact row already gone", zap.String("contact_id", payload.ContactID))
			return nil
		}
		return classifyRepoError(err, "failed to delete contact %s", payload.ContactID)
	}

	log.Info("Contact deleted and propagated",
		zap.String("contact_id", payload.ContactID),
		zap.String("original_table", originalTable),
		zap.Int64("source_rows_removed", removed),
	)
	return nil
}

// ProcessSyncAll handles the full-sync trigger event.
func (s *EventService) ProcessSyncAll(ctx context.Context, payload model.SyncAllPayload, metadata *model.LastMetadata) error {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		return apperrors.NewFatal(err, "syncall payload validation failed")
	}
	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		return apperrors.NewFatal(err, "syncall CompanyID mismatch")
	}

	report, err := s.SyncAllContacts(ctx)
	if err != nil {
		return err
	}
	if !report.Success {
		// Partial runs are not retried: replaying the trigger would redo
		// the successful tables too. The report carries the failures.
		log.Warn("Full sync finished with failures", zap.Any("results", report.Results))
	}
	return nil
}

// ProcessDedup handles the deduplication trigger event.
func (s *EventService) ProcessDedup(ctx context.Context, payload model.DedupPayload, metadata *model.LastMetadata) error {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		return apperrors.NewFatal(err, "dedup payload validation failed")
	}
	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		return apperrors.NewFatal(err, "dedup CompanyID mismatch")
	}

	report, err := s.dedup.RunFullDeduplication(ctx, payload.Options())
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Another run is in flight; replaying this trigger later would
			// rerun a scan the user no longer expects. Drop it.
			log.Warn("Deduplication already running, trigger dropped")
			return apperrors.NewFatal(err, "deduplication already in flight")
		}
		return classifyRepoError(err, "deduplication run failed")
	}

	log.Info("Deduplication run finished",
		zap.String("state", string(report.State)),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("groups_found", report.GroupsFound),
		zap.Int("merged_contacts", report.MergedContacts),
	)
	return nil
}
