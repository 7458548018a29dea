package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/apperrors"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/logger"
	"go.uber.org/zap"
)

// ChangesHandler processes change-feed events from the source tables and the
// canonical-contact command events relayed from the CRM frontend.
type ChangesHandler struct {
	service ChangesService
}

// ChangesService defines the operations the change-feed events invoke
type ChangesService interface {
	UpsertSourceRow(ctx context.Context, table string, payload model.UpsertSourcePayload, metadata *model.LastMetadata) error
	DeleteSourceRow(ctx context.Context, table string, payload model.DeleteSourcePayload, metadata *model.LastMetadata) error
	UpsertContact(ctx context.Context, payload model.UpsertContactPayload, metadata *model.LastMetadata) error
	DeleteContact(ctx context.Context, payload model.DeleteContactPayload, metadata *model.LastMetadata) error
	ProcessSyncAll(ctx context.Context, payload model.SyncAllPayload, metadata *model.LastMetadata) error
	ProcessDedup(ctx context.Context, payload model.DedupPayload, metadata *model.LastMetadata) error
}

// NewChangesHandler creates a new change-feed event handler
func NewChangesHandler(service ChangesService) *ChangesHandler {
	return &ChangesHandler{
		service: service,
	}
}

// HandleEvent processes one change-feed event
func (h *ChangesHandler) HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
	// Generate request ID
	requestID := uuid.NewString()
	ctx = tenant.WithRequestID(ctx, requestID)

	log := logger.FromContext(ctx)
	log.Info("Processing change event", zap.String("type", string(eventType)))

	lastMetadata := metadata.ToLastMetadata()

	if table := model.TableForEventType(eventType); table != "" {
		switch eventType {
		case model.V1ClientsUpsert, model.V1BrokersUpsert, model.V1OwnersUpsert, model.V1TenantsUpsert, model.V1SuppliersUpsert:
			return h.handleSourceUpsert(ctx, table, lastMetadata, rawEvent)
		default:
			return h.handleSourceDelete(ctx, table, lastMetadata, rawEvent)
		}
	}

	switch eventType {
	case model.V1ContactsUpsert:
		return h.handleContactUpsert(ctx, lastMetadata, rawEvent)
	case model.V1ContactsDelete:
		return h.handleContactDelete(ctx, lastMetadata, rawEvent)
	case model.V1ContactsSyncAll:
		return h.handleSyncAll(ctx, lastMetadata, rawEvent)
	case model.V1ContactsDedup:
		return h.handleDedup(ctx, lastMetadata, rawEvent)
	default:
		unsupportedErr := fmt.Errorf("unsupported change event type: %s", eventType)
		log.Error("Unsupported change event type", zap.String("eventType", string(eventType)))
		return apperrors.NewFatal(unsupportedErr, "unsupported change event type")
	}
}

// handleSourceUpsert processes an inserted or updated source-table row
func (h *ChangesHandler) handleSourceUpsert(ctx context.Context, table string, metadata *model.LastMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)

	var payload model.UpsertSourcePayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal source upsert payload", zap.String("table", table), zap.Error(err))
		// Wrap unmarshal error as Fatal
		return apperrors.NewFatal(err, "failed to unmarshal %s upsert payload", table)
	}

	// Enrich payload with CompanyID from metadata
	if payload.CompanyID == "" {
		payload.CompanyID = metadata.CompanyID
	}

	log.Info("Processing source upsert", zap.String("table", table), zap.String("row_id", payload.ID))
	return h.service.UpsertSourceRow(ctx, table, payload, metadata)
}

// handleSourceDelete processes a removed source-table row
func (h *ChangesHandler) handleSourceDelete(ctx context.Context, table string, metadata *model.LastMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)

	var payload model.DeleteSourcePayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal source delete payload", zap.String("table", table), zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal %s delete payload", table)
	}

	// Basic validation
	if payload.ID == "" {
		validationErr := fmt.Errorf("row ID is required for delete")
		log.Error("Source delete validation failed", zap.String("table", table), zap.Error(validationErr))
		return apperrors.NewFatal(validationErr, "row ID is required for delete")
	}

	// Enrich payload with CompanyID from metadata
	if payload.CompanyID == "" {
		payload.CompanyID = metadata.CompanyID
	}

	log.Info("Processing source delete", zap.String("table", table), zap.String("row_id", payload.ID))
	return h.service.DeleteSourceRow(ctx, table, payload, metadata)
}

// handleContactUpsert processes a canonical contact created or edited in the
// frontend
func (h *ChangesHandler) handleContactUpsert(ctx context.Context, metadata *model.LastMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)

	var payload model.UpsertContactPayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal contact upsert payload", zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal contact upsert payload")
	}

	// Enrich payload with CompanyID from metadata
	if payload.CompanyID == "" {
		payload.CompanyID = metadata.CompanyID
	}

	log.Info("Processing contact upsert", zap.String("contact_id", payload.ContactID))
	return h.service.UpsertContact(ctx, payload, metadata)
}

// handleContactDelete processes a canonical-contact deletion command
func (h *ChangesHandler) handleContactDelete(ctx context.Context, metadata *model.LastMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)

	var payload model.DeleteContactPayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal contact delete payload", zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal contact delete payload")
	}

	if payload.ContactID == "" {
		validationErr := fmt.Errorf("contact ID is required for delete")
		log.Error("Contact delete validation failed", zap.Error(validationErr))
		return apperrors.NewFatal(validationErr, "contact ID is required for delete")
	}

	// Enrich payload with CompanyID from metadata
	if payload.CompanyID == "" {
		payload.CompanyID = metadata.CompanyID
	}

	log.Info("Processing contact delete", zap.String("contact_id", payload.ContactID))
	return h.service.DeleteContact(ctx, payload, metadata)
}

// handleSyncAll processes a full-sync trigger
func (h *ChangesHandler) handleSyncAll(ctx context.Context, metadata *model.LastMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)

	var payload model.SyncAllPayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal syncall payload", zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal syncall payload")
	}

	// Enrich payload with CompanyID from metadata
	if payload.CompanyID == "" {
		payload.CompanyID = metadata.CompanyID
	}

	log.Info("Processing full sync trigger", zap.String("request_id", payload.RequestID))
	return h.service.ProcessSyncAll(ctx, payload, metadata)
}

// handleDedup processes a deduplication trigger
func (h *ChangesHandler) handleDedup(ctx context.Context, metadata *model.LastMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)

	var payload model.DedupPayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Error("Failed to unmarshal dedup payload", zap.Error(err))
		return apperrors.NewFatal(err, "failed to unmarshal dedup payload")
	}

	// Enrich payload with CompanyID from metadata
	if payload.CompanyID == "" {
		payload.CompanyID = metadata.CompanyID
	}

	log.Info("Processing dedup trigger",
		zap.Bool("dry_run", payload.DryRun),
		zap.Int("similarity_threshold", payload.SimilarityThreshold),
	)
	return h.service.ProcessDedup(ctx, payload, metadata)
}
