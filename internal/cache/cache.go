package cache

import (
	"context"
	"sync"
	"time"

	"latiafanny/backend/internal/report"
)

// SnapshotCache holds the report snapshot between writes. Every Invalidate
// starts a new generation. Get reports the generation current at the time of
// the read, and Set keeps a snapshot only while that generation is still
// current, so a load that overlapped a write is never served.
type SnapshotCache interface {
	Get(ctx context.Context) (snap *report.Snapshot, generation int64, ok bool, err error)
	Set(ctx context.Context, generation int64, value *report.Snapshot, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// TokenDenylist remembers revoked access tokens until they would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context) (*report.Snapshot, int64, bool, error) {
	return nil, 0, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ int64, _ *report.Snapshot, _ time.Duration) error {
	return nil
}

func (NoopSnapshotCache) Invalidate(_ context.Context) error {
	return nil
}

// MemorySnapshotCache is the single-process snapshot cache used when no
// redis is configured.
type MemorySnapshotCache struct {
	mu         sync.Mutex
	generation int64
	snap       *report.Snapshot
	storedAt   int64
	expiresAt  time.Time
	now        func() time.Time
}

func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{now: time.Now}
}

func (c *MemorySnapshotCache) Get(_ context.Context) (*report.Snapshot, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil || c.storedAt != c.generation || !c.now().Before(c.expiresAt) {
		return nil, c.generation, false, nil
	}
	out := *c.snap
	return &out, c.generation, true, nil
}

func (c *MemorySnapshotCache) Set(_ context.Context, generation int64, value *report.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil || ttl <= 0 || generation != c.generation {
		return nil
	}
	stored := *value
	c.snap = &stored
	c.storedAt = generation
	c.expiresAt = c.now().Add(ttl)
	return nil
}

func (c *MemorySnapshotCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.snap = nil
	return nil
}

type MemoryTokenDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryTokenDenylist() *MemoryTokenDenylist {
	return &MemoryTokenDenylist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (d *MemoryTokenDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	if until.After(now) {
		d.revoked[tokenID] = until
	}
	return nil
}

func (d *MemoryTokenDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(d.now()) {
		delete(d.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
