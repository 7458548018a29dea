package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// MockChangesHandler is a mock for the ChangesHandlerInterface
type MockChangesHandler struct {
	mock.Mock
}

// HandleEvent mocks the HandleEvent method
func (m *MockChangesHandler) HandleEvent(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
	args := m.Called(ctx, eventType, metadata, rawEvent)
	return args.Error(0)
}
