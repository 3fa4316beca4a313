// Package session stores search result sets for conversational follow-ups.
//
// A completed search is written under result_set:<id> with a TTL; the
// conversation:<id> key tracks the latest result set per conversation.
// Follow-up requests load the stored set, filter and re-sort it, and store
// the outcome under a fresh id. A store miss means the follow-up path falls
// back to a fresh search.
//
// The Store interface has two implementations: an in-process map for tests
// and single-node deployments, and a Redis-backed store for anything shared.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aroundmehq/aroundme/internal/rank"
)

// ErrNotFound is returned when a key is absent or its TTL has expired.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL is how long a stored result set stays referencable.
const DefaultTTL = 900 * time.Second

// Store is a byte-oriented key-value store with per-key TTL.
//
// Set is an idempotent replacement. A successful Get within the TTL returns
// the exact bytes written. Implementations must be safe for concurrent use.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ResultSet is the stored output of one completed search.
type ResultSet struct {
	ID             string             `json:"result_set_id"`
	Places         []rank.ScoredPlace `json:"places"`
	Query          string             `json:"query,omitempty"`
	RadiusM        int                `json:"radius_m,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// NewResultSetID returns a fresh opaque result set identifier.
func NewResultSetID() string {
	return uuid.NewString()
}

// ResultSetKey returns the store key for a result set id.
func ResultSetKey(id string) string {
	return "result_set:" + id
}

// ConversationKey returns the store key holding a conversation's latest
// result set id.
func ConversationKey(id string) string {
	return "conversation:" + id
}

// Sessions layers the result-set model over a Store.
type Sessions struct {
	store Store
	ttl   time.Duration
}

// NewSessions wraps a store. A non-positive ttl falls back to [DefaultTTL].
func NewSessions(store Store, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sessions{store: store, ttl: ttl}
}

// Save stores the result set and, when it belongs to a conversation, points
// the conversation key at it. Both writes carry the session TTL.
func (s *Sessions) Save(ctx context.Context, rs *ResultSet) error {
	body, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("session: marshal result set %s: %w", rs.ID, err)
	}
	if err := s.store.Set(ctx, ResultSetKey(rs.ID), body, s.ttl); err != nil {
		return fmt.Errorf("session: store result set %s: %w", rs.ID, err)
	}
	if rs.ConversationID != "" {
		if err := s.store.Set(ctx, ConversationKey(rs.ConversationID), []byte(rs.ID), s.ttl); err != nil {
			return fmt.Errorf("session: store conversation pointer %s: %w", rs.ConversationID, err)
		}
	}
	return nil
}

// ResultSet loads a stored result set by id.
func (s *Sessions) ResultSet(ctx context.Context, id string) (*ResultSet, error) {
	body, err := s.store.Get(ctx, ResultSetKey(id))
	if err != nil {
		return nil, err
	}
	var rs ResultSet
	if err := json.Unmarshal(body, &rs); err != nil {
		return nil, fmt.Errorf("session: decode result set %s: %w", id, err)
	}
	return &rs, nil
}

// Latest loads the newest result set stored for a conversation.
func (s *Sessions) Latest(ctx context.Context, conversationID string) (*ResultSet, error) {
	id, err := s.store.Get(ctx, ConversationKey(conversationID))
	if err != nil {
		return nil, err
	}
	return s.ResultSet(ctx, string(id))
}

// Delete removes a stored result set. Deleting an absent id is not an error.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, ResultSetKey(id))
}
