package redis

import (
	"context"
	"encoding/json"
	"time"

	"livequiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore keeps the latest broadcast snapshot in Redis so operators
// and sibling processes can observe a run. Writes are best-effort: the
// in-memory controller stays authoritative and a failed save never blocks
// or fails a state transition.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

const snapshotKey = "quiz:snapshot:latest"

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// Save stores snap as JSON under a TTL key.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, snapshotKey, raw, s.ttl).Err()
}

// Load returns the last stored snapshot, reporting false when none exists.
func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}
