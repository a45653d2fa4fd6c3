package selection

import (
	"encoding/json"
	"fmt"
	"time"
)

// KV is the key/value storage picks are persisted in. The fiber storage
// drivers (github.com/gofiber/storage/redis/v3, .../memory/v2) satisfy it;
// Get returns nil, nil for a missing key.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// VisitorKey is the session key holding the random ID that scopes a
// visitor's picks.
const VisitorKey = "visitor_id"

// PickKey is the storage key for a visitor's picks in one gallery.
func PickKey(scope, shortID string) string {
	return scope + ":picked_" + shortID
}

// PickStore persists picked sets keyed by visitor scope and short ID.
// Picks are not tied to a link's internal ID, so a deleted short ID that is
// later reused sees the old picks.
type PickStore struct {
	kv  KV
	ttl time.Duration
}

// NewPickStore creates a store. Every write refreshes the key with ttl; zero
// keeps picks until removed.
func NewPickStore(kv KV, ttl time.Duration) *PickStore {
	return &PickStore{kv: kv, ttl: ttl}
}

// Load returns the visitor's picks, empty if none were stored.
func (p *PickStore) Load(scope, shortID string) (*Set, error) {
	raw, err := p.kv.Get(PickKey(scope, shortID))
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}
	set := NewSet()
	if len(raw) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(raw, set); err != nil {
		return nil, fmt.Errorf("failed to decode picks: %w", err)
	}
	return set, nil
}

// Toggle flips one file's pick and writes the whole set back. When the set
// becomes empty the key is deleted.
func (p *PickStore) Toggle(scope, shortID, fileID string) (*Set, bool, error) {
	set, err := p.Load(scope, shortID)
	if err != nil {
		return nil, false, err
	}
	picked := set.Toggle(fileID)
	if err := p.save(scope, shortID, set); err != nil {
		return nil, false, err
	}
	return set, picked, nil
}

func (p *PickStore) save(scope, shortID string, set *Set) error {
	key := PickKey(scope, shortID)
	if set.Len() == 0 {
		if err := p.kv.Delete(key); err != nil {
			return fmt.Errorf("failed to clear picks: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	if err := p.kv.Set(key, raw, p.ttl); err != nil {
		return fmt.Errorf("failed to save picks: %w", err)
	}
	return nil
}
