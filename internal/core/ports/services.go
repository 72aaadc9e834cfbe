package ports

import (
	"context"

	"github.com/geowerks/specklegeo/internal/core/domain"
)

// EventPublisher publishes conversion lifecycle events to a message broker.
type EventPublisher interface {
	PublishConversion(ctx context.Context, ev *domain.ConversionEvent) error
}
