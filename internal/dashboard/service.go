package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Stats aggregates the entity counts shown on the home page.
type Stats struct {
	Users       int64 `json:"users"`
	Roles       int64 `json:"roles"`
	Permissions int64 `json:"permissions"`
	Customers   int64 `json:"customers"`
	Projects    int64 `json:"projects"`
	OpenTasks   int64 `json:"open_tasks"`
}

const (
	statsCacheKey = "dashboard:stats"
	statsCacheTTL = 30 * time.Second
)

// Service computes dashboard statistics. Counts are gathered concurrently and
// cached in Redis for a short window so the home page stays cheap.
type Service struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
	cache  *redis.Client
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, pool *pgxpool.Pool, cache *redis.Client) *Service {
	return &Service{logger: logger, pool: pool, cache: cache}
}

// Stats returns current entity counts, serving from cache when fresh.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.countInto(gctx, `SELECT COUNT(*) FROM users`, &stats.Users))
	g.Go(s.countInto(gctx, `SELECT COUNT(*) FROM roles`, &stats.Roles))
	g.Go(s.countInto(gctx, `SELECT COUNT(*) FROM permissions`, &stats.Permissions))
	g.Go(s.countInto(gctx, `SELECT COUNT(*) FROM customers`, &stats.Customers))
	g.Go(s.countInto(gctx, `SELECT COUNT(*) FROM projects`, &stats.Projects))
	g.Go(s.countInto(gctx, `SELECT COUNT(*) FROM tasks WHERE status <> 'done'`, &stats.OpenTasks))
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	s.toCache(ctx, stats)
	return stats, nil
}

func (s *Service) countInto(ctx context.Context, query string, dst *int64) func() error {
	return func() error {
		return s.pool.QueryRow(ctx, query).Scan(dst)
	}
}

func (s *Service) fromCache(ctx context.Context) (Stats, bool) {
	if s.cache == nil {
		return Stats{}, false
	}
	payload, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return Stats{}, false
	}
	var stats Stats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return Stats{}, false
	}
	return stats, true
}

func (s *Service) toCache(ctx context.Context, stats Stats) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, payload, statsCacheTTL).Err(); err != nil {
		s.logger.Warn("cache dashboard stats", slog.Any("error", err))
	}
}
