package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

const (
	// StreamKey is the single stream shared by every source namespace.
	StreamKey = "stream:news"

	streamMaxLen = 1000
	scanCount    = 500
)

// RedisStore implements the day-partitioned state contract on Redis.
// Each instance is bound to a key prefix so the social and repository
// pipelines keep disjoint seen/published namespaces while sharing one
// stream and one connection.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger

	// now is swappable in tests to pin the day partition.
	now func() time.Time
}

var _ ports.Store = (*RedisStore)(nil)

// NewRedisStore binds a client to a namespace prefix ("" for social,
// "gh_" for repository items).
func NewRedisStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

func (s *RedisStore) today() string {
	return domain.DayPartition(s.now())
}

func (s *RedisStore) knownKey(day string) string {
	return s.prefix + "known:" + day
}

func (s *RedisStore) publishedKey(day string) string {
	return s.prefix + "published:" + day
}

func (s *RedisStore) itemKey(day, id string) string {
	return s.prefix + "post:" + day + ":" + id
}

// IsKnown tests membership against today's seen-set.
func (s *RedisStore) IsKnown(ctx context.Context, id string) (bool, error) {
	known, err := s.client.SIsMember(ctx, s.knownKey(s.today()), id).Result()
	if err != nil {
		return false, fmt.Errorf("sismember known: %w", err)
	}
	return known, nil
}

// MarkKnown bulk-inserts ids into today's seen-set. No-op on empty input.
func (s *RedisStore) MarkKnown(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := s.client.SAdd(ctx, s.knownKey(s.today()), members...).Err(); err != nil {
		return fmt.Errorf("sadd known: %w", err)
	}
	return nil
}

// SaveItem upserts the item record, marks it known, and reports whether it
// is still safe to publish (not yet in today's published-set). Callers must
// invoke this before any side-effecting publish action.
func (s *RedisStore) SaveItem(ctx context.Context, item domain.ScoredItem) (bool, error) {
	day := s.today()
	key := s.itemKey(day, item.ID)

	if err := s.client.HSet(ctx, key, map[string]interface{}{
		"link":        item.URL,
		"short_title": item.ShortTitle,
	}).Err(); err != nil {
		return false, fmt.Errorf("hset item: %w", err)
	}
	// Do not clobber published=1 left by an earlier attempt.
	if err := s.client.HSetNX(ctx, key, "published", "0").Err(); err != nil {
		return false, fmt.Errorf("hsetnx published: %w", err)
	}

	if err := s.MarkKnown(ctx, []string{item.ID}); err != nil {
		return false, err
	}

	published, err := s.client.SIsMember(ctx, s.publishedKey(day), item.ID).Result()
	if err != nil {
		return false, fmt.Errorf("sismember published: %w", err)
	}
	return !published, nil
}

// SaveThreadHandle attaches a publisher-issued handle, last-write-wins.
func (s *RedisStore) SaveThreadHandle(ctx context.Context, id, handle string) error {
	key := s.itemKey(s.today(), id)
	if err := s.client.HSet(ctx, key, "thread_handle", handle).Err(); err != nil {
		return fmt.Errorf("hset thread handle: %w", err)
	}
	return nil
}

// PublishToStream appends the item to the shared stream exactly once per id
// per day. The published-set SADD doubles as the idempotency claim: it is a
// single atomic test-and-set, so overlapping cycles cannot both append.
func (s *RedisStore) PublishToStream(ctx context.Context, item domain.ScoredItem) error {
	day := s.today()

	added, err := s.client.SAdd(ctx, s.publishedKey(day), item.ID).Result()
	if err != nil {
		return fmt.Errorf("sadd published: %w", err)
	}
	if added == 0 {
		return nil
	}

	entry := domain.StreamEntry{
		ItemID:      item.ID,
		URL:         item.URL,
		ShortTitle:  item.ShortTitle,
		Source:      string(item.Kind),
		PublishedAt: s.now().UTC(),
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"item_id":      entry.ItemID,
			"link":         entry.URL,
			"short_title":  entry.ShortTitle,
			"source":       entry.Source,
			"published_at": entry.PublishedAt.Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd stream: %w", err)
	}

	if err := s.client.HSet(ctx, s.itemKey(day, item.ID), "published", "1").Err(); err != nil {
		return fmt.Errorf("hset published flag: %w", err)
	}

	s.logger.Info("published to stream", "id", item.ID, "title", item.ShortTitle)
	return nil
}

// ThreadHandles enumerates non-empty thread handles recorded for a day.
// Scanning is cursor-based so large partitions never block the server.
func (s *RedisStore) ThreadHandles(ctx context.Context, day string) ([]string, error) {
	var handles []string
	var cursor uint64
	pattern := s.itemKey(day, "*")

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan items: %w", err)
		}
		for _, key := range keys {
			handle, err := s.client.HGet(ctx, key, "thread_handle").Result()
			if err != nil && err != redis.Nil {
				return nil, fmt.Errorf("hget thread handle: %w", err)
			}
			if handle != "" {
				handles = append(handles, handle)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return handles, nil
}

// DeleteDay removes every key associated with the day partition: item
// records, the seen-set, and the published-set. Returns the deleted count.
func (s *RedisStore) DeleteDay(ctx context.Context, day string) (int, error) {
	deleted := 0
	var cursor uint64
	pattern := s.itemKey(day, "*")

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan items: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("del items: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	n, err := s.client.Del(ctx, s.knownKey(day), s.publishedKey(day)).Result()
	if err != nil {
		return deleted, fmt.Errorf("del sets: %w", err)
	}
	deleted += int(n)

	return deleted, nil
}
