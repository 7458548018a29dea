package usecase

import (
	"context"
	"fmt"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/config"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/ingestion"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/ingestion/handler"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/jetstream"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
	"gitlab.com/aqarsync/api/contact-identity-service/pkg/logger"
	"go.uber.org/zap"
)

// Processor orchestrates event processing
type Processor struct {
	service         *EventService
	jsClient        jetstream.ClientInterface
	changesConsumer *ingestion.ChangesConsumer
	eventRouter     ingestion.RouterInterface
	changesHandler  handler.ChangesHandlerInterface
}

// NewProcessor creates a new processor with all components wired up
// Accepts the main config object to access NATS settings
func NewProcessor(service *EventService, jsClient jetstream.ClientInterface, cfg *config.Config, companyID string) *Processor {
	// Create the event router
	router := ingestion.NewRouter()

	// Create the handler (used by the router)
	changesHandler := handler.NewChangesHandler(service)

	// Create the consumer using dedicated config from the main cfg object
	// Append companyID to consumer names for uniqueness
	changesCfg := cfg.NATS.Changes // Access nested config
	changesCfg.Consumer = changesCfg.Consumer + companyID
	changesCfg.QueueGroup = changesCfg.QueueGroup + companyID
	// Pass DLQ subject from main config
	changesConsumer := ingestion.NewChangesConsumer(jsClient, router, changesCfg, companyID, cfg.NATS.DLQSubject)

	return &Processor{
		service:         service,
		jsClient:        jsClient,
		changesConsumer: changesConsumer,
		eventRouter:     router,
		changesHandler:  changesHandler,
	}
}

// GetRouter returns the processor's event router.
func (p *Processor) GetRouter() ingestion.RouterInterface {
	return p.eventRouter
}

// Setup sets up the processor by registering handlers and setting up the consumer
func (p *Processor) Setup() error {
	// Register source-table change handlers
	p.eventRouter.Register(model.V1ClientsUpsert, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1ClientsDelete, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1BrokersUpsert, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1BrokersDelete, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1OwnersUpsert, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1OwnersDelete, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1TenantsUpsert, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1TenantsDelete, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1SuppliersUpsert, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1SuppliersDelete, p.changesHandler.HandleEvent)

	// Register canonical-contact command handlers
	p.eventRouter.Register(model.V1ContactsUpsert, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1ContactsDelete, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1ContactsSyncAll, p.changesHandler.HandleEvent)
	p.eventRouter.Register(model.V1ContactsDedup, p.changesHandler.HandleEvent)

	// Default handler for unknown event types, we can use this as dlq or for logging
	p.eventRouter.RegisterDefault(func(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
		logger.FromContext(ctx).Warn("Unhandled event type",
			zap.String("type", string(eventType)),
			zap.String("version", eventType.GetVersion()),
			zap.String("base_type", string(eventType.GetBaseType())),
		)
		return nil
	})

	// Setup the consumer
	if err := p.changesConsumer.Setup(); err != nil {
		return fmt.Errorf("failed to setup changes consumer: %w", err)
	}

	logger.Log.Info("Processor setup complete")
	return nil
}

// Start starts the processor by starting the changes consumer
func (p *Processor) Start() error {
	logger.Log.Info("Starting event processor...")

	// Add panic recovery for the entire processor start sequence
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("[panic] Recovered from panic in processor",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	if err := p.changesConsumer.Start(); err != nil {
		return fmt.Errorf("failed to start changes consumer: %w", err)
	}

	logger.Log.Info("Changes consumer started successfully")
	return nil
}

// Stop stops the processor by stopping the changes consumer
func (p *Processor) Stop() {
	logger.Log.Info("Stopping event processor...")
	p.changesConsumer.Stop()
	logger.Log.Info("Changes consumer stopped")
}
