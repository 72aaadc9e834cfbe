package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/geowerks/specklegeo/internal/adapters/valkey"
	"github.com/geowerks/specklegeo/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Conversions *usecases.ConversionService
	NATS        *nats.Conn      // nil when events are disabled
	Limiter     *valkey.Storage // nil falls back to in-memory rate limiting

	// RequestTimeout bounds a single conversion request. Zero disables
	// the timeout middleware.
	RequestTimeout time.Duration
}
