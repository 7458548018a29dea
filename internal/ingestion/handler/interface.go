package handler

import (
	"context"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// EventHandlerInterface defines the common interface for event handlers
type EventHandlerInterface interface {
	// HandleEvent processes an event
	HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error
}

// ChangesHandlerInterface defines the interface for change-feed event handlers
type ChangesHandlerInterface interface {
	EventHandlerInterface
}

// Ensure the handler implements the interface
var _ ChangesHandlerInterface = (*ChangesHandler)(nil)
