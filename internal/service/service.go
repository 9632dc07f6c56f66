package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"latiafanny/backend/internal/cache"
	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	snapshots   cache.SnapshotCache
	snapshotTTL time.Duration
	clock       report.Clock
}

// New wires the service. A nil cache disables snapshot caching and a nil
// clock reads the host clock in UTC.
func New(repo store.Repository, snapshots cache.SnapshotCache, clock report.Clock, snapshotTTL time.Duration) *Service {
	if snapshots == nil {
		snapshots = cache.NoopSnapshotCache{}
	}
	if clock == nil {
		clock = report.SystemClock{Location: time.UTC}
	}
	return &Service{
		repo:        repo,
		snapshots:   snapshots,
		snapshotTTL: snapshotTTL,
		clock:       clock,
	}
}

func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) Location() *time.Location {
	return s.clock.Now().Location()
}

func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !slices.Contains(roles, actor.Role) {
		return fmt.Errorf("%w: requires role %v", store.ErrForbidden, roles)
	}
	return nil
}
