package usecase

import (
	"context"
	"fmt"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/adapter"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/config"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/storage"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/tenant"
)

// EventService implements sync and dedup event processing for one tenant
type EventService struct {
	contactRepo storage.ContactRepo
	sourceRepo  storage.SourceRepo
	adapters    *adapter.Registry
	dedup       *DedupEngine
	syncPool    config.SyncWorkerPoolConfig
}

// NewEventService creates a new event service
func NewEventService(
	contactRepo storage.ContactRepo,
	sourceRepo storage.SourceRepo,
	adapters *adapter.Registry,
	dedup *DedupEngine,
	syncPool config.SyncWorkerPoolConfig,
) *EventService {
	return &EventService{
		contactRepo: contactRepo,
		sourceRepo:  sourceRepo,
		adapters:    adapters,
		dedup:       dedup,
		syncPool:    syncPool,
	}
}

// Dedup exposes the deduplication engine wired into the service.
func (s *EventService) Dedup() *DedupEngine {
	return s.dedup
}

// validateCompanyTenant validates that a payload's company id matches the
// tenant ID from context
func validateCompanyTenant(ctx context.Context, companyID string) error {
	if companyID == "" {
		return nil // Skip validation if the payload carries no company id
	}

	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get tenant ID: %w", err)
	}

	if companyID != tenantID {
		return fmt.Errorf("company id (%s) does not match tenant ID (%s)", companyID, tenantID)
	}

	return nil
}
