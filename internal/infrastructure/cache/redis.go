package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

const (
	// leaderboardPrefix namespaces every ranking key.
	leaderboardPrefix = "yujo:leaderboard"

	// rankings outlive their month long enough for the first days of the next one
	leaderboardTTL = 40 * 24 * time.Hour

	// sizeField marks a stored ranking, including an empty one.
	sizeField = "\x00size"

	defaultConnectTimeout = 10 * time.Second
)

var (
	ErrRedisNotConnected = errors.New("redis not connected")
	ErrRedisEmpty        = errors.New("redis leaderboard is empty")
)

// RedisConfig holds configuration for Redis connection.
type RedisConfig struct {
	URL string
}

// RedisClient wraps the go-redis client and stores monthly rankings.
//
// each ranking is two keys: a sorted set whose score is the 1-based position,
// and a hash with the value and report count of every member. the position is
// the score because ties are already broken by name before storing, and redis
// would otherwise reorder equal scores lexicographically.
type RedisClient struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisClient creates a new Redis client from the config.
// returns nil if the URL is empty (redis disabled).
func NewRedisClient(cfg RedisConfig, logger *logging.Logger) (*RedisClient, error) {
	if cfg.URL == "" {
		logger.Info("redis disabled: no REDIS_URL configured")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opts.DialTimeout = defaultConnectTimeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 20
	opts.MinIdleConns = 2

	return &RedisClient{
		client: redis.NewClient(opts),
		logger: logger.WithComponent("redis"),
	}, nil
}

// Connect tests the connection to Redis.
func (r *RedisClient) Connect(ctx context.Context) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	r.logger.Info("redis connected")
	return nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// StoreRanking replaces the stored ranking for one congregation, month and metric.
func (r *RedisClient) StoreRanking(ctx context.Context, congregationID string, month domain.YearMonth, metric domain.Metric, entries []domain.RankEntry) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	rankKey, statsKey := rankingKeys(congregationID, month, metric)

	stats := make(map[string]any, len(entries)+1)
	stats[sizeField] = len(entries)
	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{Score: float64(e.Position), Member: e.MemberName})
		stats[e.MemberName] = encodeStats(e)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rankKey, statsKey)
		if len(members) > 0 {
			pipe.ZAdd(ctx, rankKey, members...)
			pipe.Expire(ctx, rankKey, leaderboardTTL)
		}
		pipe.HSet(ctx, statsKey, stats)
		pipe.Expire(ctx, statsKey, leaderboardTTL)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to store ranking",
			"congregation_id", congregationID,
			"month", month.String(),
			"metric", metric.String(),
			"error", err.Error(),
		)
		return fmt.Errorf("storing ranking: %w", err)
	}

	r.logger.Debug("ranking stored",
		"congregation_id", congregationID,
		"month", month.String(),
		"metric", metric.String(),
		"entries", len(entries),
	)
	return nil
}

// Ranking returns the first limit entries of a stored ranking.
// returns ErrRedisEmpty when nothing was stored for that key.
func (r *RedisClient) Ranking(ctx context.Context, congregationID string, month domain.YearMonth, metric domain.Metric, limit int) ([]domain.RankEntry, error) {
	if r.client == nil {
		return nil, ErrRedisNotConnected
	}

	rankKey, statsKey := rankingKeys(congregationID, month, metric)

	size, err := r.client.HGet(ctx, statsKey, sizeField).Int()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRedisEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("hget failed: %w", err)
	}
	if size == 0 {
		return []domain.RankEntry{}, nil
	}

	names, err := r.client.ZRange(ctx, rankKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(names) == 0 {
		// stats survived but the set did not
		return nil, ErrRedisEmpty
	}

	values, err := r.client.HMGet(ctx, statsKey, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget failed: %w", err)
	}

	entries := make([]domain.RankEntry, 0, len(names))
	for i, name := range names {
		raw, _ := values[i].(string)
		entry, err := decodeStats(raw)
		if err != nil {
			return nil, fmt.Errorf("ranking entry %q: %w", name, err)
		}
		entry.Position = i + 1
		entry.MemberName = name
		entries = append(entries, entry)
	}
	return entries, nil
}

// HealthCheck verifies Redis is responding.
// InvalidateMonth drops every metric's ranking of one congregation and month.
func (r *RedisClient) InvalidateMonth(ctx context.Context, congregationID string, month domain.YearMonth) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	if err := r.client.Del(ctx, monthKeys(congregationID, month)...).Err(); err != nil {
		return fmt.Errorf("invalidating rankings: %w", err)
	}

	r.logger.Debug("rankings invalidated",
		"congregation_id", congregationID,
		"month", month.String(),
	)
	return nil
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	return r.client.Ping(ctx).Err()
}

func rankingKeys(congregationID string, month domain.YearMonth, metric domain.Metric) (rank, stats string) {
	base := fmt.Sprintf("%s:%s:%s:%s", leaderboardPrefix, congregationID, month.String(), metric.String())
	return base, base + ":stats"
}

func monthKeys(congregationID string, month domain.YearMonth) []string {
	metrics := domain.AllMetrics()
	keys := make([]string, 0, 2*len(metrics))
	for _, m := range metrics {
		rank, stats := rankingKeys(congregationID, month, m)
		keys = append(keys, rank, stats)
	}
	return keys
}

// encodeStats packs value and report count as "value/reports".
func encodeStats(e domain.RankEntry) string {
	return strconv.Itoa(e.Value) + "/" + strconv.Itoa(e.Reports)
}

func decodeStats(raw string) (domain.RankEntry, error) {
	v, n, ok := strings.Cut(raw, "/")
	if !ok {
		return domain.RankEntry{}, fmt.Errorf("malformed stats %q", raw)
	}
	value, err := strconv.Atoi(v)
	if err != nil {
		return domain.RankEntry{}, fmt.Errorf("value: %w", err)
	}
	reports, err := strconv.Atoi(n)
	if err != nil {
		return domain.RankEntry{}, fmt.Errorf("reports: %w", err)
	}
	return domain.RankEntry{Value: value, Reports: reports}, nil
}
