// Package session persists per-browser-session state in redis. The store
// holds the serialized cart and the resolved customer identity and nothing
// else; it never caches payment gateway state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avidal-labs/brewshop-backend/pkg/config"
	redisclient "github.com/avidal-labs/brewshop-backend/pkg/redis"
)

const (
	FieldCart     = "cart"
	FieldCustomer = "customer"
)

type keyValueStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID, field string) string
}

// Store reads and writes session-scoped JSON blobs.
type Store struct {
	store keyValueStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewStore builds a session store backed by redis.
func NewStore(client *redisclient.Client, cfg config.SessionConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{store: client, keyer: client, ttl: cfg.TTL}, nil
}

// NewStoreWith wires an arbitrary key-value backend; tests use an in-memory map.
func NewStoreWith(kv keyValueStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("key-value backend is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{store: kv, keyer: plainKeyer{}, ttl: ttl}, nil
}

type plainKeyer struct{}

func (plainKeyer) SessionKey(sessionID, field string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, field)
}

// Save stores value under the session field, refreshing the session TTL.
func (s *Store) Save(ctx context.Context, sessionID, field string, value any) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", field, err)
	}
	return s.store.Set(ctx, s.keyer.SessionKey(sessionID, field), string(encoded), s.ttl)
}

// Load reads the session field into dest. It reports false when the field has
// never been written, which callers treat as lazy-create.
func (s *Store) Load(ctx context.Context, sessionID, field string, dest any) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("session id is required")
	}
	raw, err := s.store.Get(ctx, s.keyer.SessionKey(sessionID, field))
	if errors.Is(err, redisclient.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decoding session %s: %w", field, err)
	}
	return true, nil
}

// Delete removes a single session field.
func (s *Store) Delete(ctx context.Context, sessionID, field string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return s.store.Del(ctx, s.keyer.SessionKey(sessionID, field))
}

// Destroy removes every field owned by the session.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return s.store.Del(ctx,
		s.keyer.SessionKey(sessionID, FieldCart),
		s.keyer.SessionKey(sessionID, FieldCustomer),
	)
}
