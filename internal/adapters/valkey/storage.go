package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Storage adapts a Valkey (Redis-compatible) client to fiber.Storage so the
// rate limiter can share counters across replicas.
type Storage struct {
	client valkey.Client
}

// New connects to Valkey at the given address.
func New(addr string) (*Storage, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Storage{client: client}, nil
}

// Get retrieves a value by key. A missing key returns nil, nil.
func (s *Storage) Get(key string) ([]byte, error) {
	cmd := s.client.Do(context.Background(), s.client.B().Get().Key(key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return cmd.AsBytes()
}

// Set stores a value. A zero expiry means no TTL.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	ctx := context.Background()
	if exp > 0 {
		return s.client.Do(ctx,
			s.client.B().Set().Key(key).Value(valkey.BinaryString(val)).Ex(exp).Build(),
		).Error()
	}
	return s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(valkey.BinaryString(val)).Build(),
	).Error()
}

// Delete removes a key.
func (s *Storage) Delete(key string) error {
	return s.client.Do(context.Background(), s.client.B().Del().Key(key).Build()).Error()
}

// Reset flushes the database.
func (s *Storage) Reset() error {
	return s.client.Do(context.Background(), s.client.B().Flushdb().Build()).Error()
}

// Healthy pings the server.
func (s *Storage) Healthy(ctx context.Context) bool {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error() == nil
}

// Close releases the client.
func (s *Storage) Close() error {
	s.client.Close()
	return nil
}
