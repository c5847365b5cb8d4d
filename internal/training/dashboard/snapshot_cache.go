package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/tricoach/internal/training"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

const (
	SnapshotKey = "tricoach::workouts::snapshot"

	megabyte = 1024 * 1024
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the last workout log read that succeeded. It is served, marked
// stale, while the store is unreachable.
type Snapshot struct {
	Rows    []training.Row `json:"rows"`
	Version string         `json:"version"`
	ReadAt  time.Time      `json:"readAt"`
}

type RedisSnapshotCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisSnapshotCache(rdb redis.UniversalClient, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func (c *RedisSnapshotCache) Get(ctx context.Context) (*Snapshot, error) {
	payload, err := c.rdb.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}
	return unmarshalSnapshot(payload)
}

func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, SnapshotKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// MemorySnapshotCache keeps the snapshot in process, for single instance setups without redis.
// freecache refuses entries over 1/1024 of its size, so the payload is split into
// chunks below that limit and a header entry holds the chunk count.
type MemorySnapshotCache struct {
	mutex         sync.Mutex
	cache         *freecache.Cache
	chunkSize     int
	expireSeconds int
}

func NewMemorySnapshotCache(sizeMB int, ttl time.Duration) *MemorySnapshotCache {
	if sizeMB <= 0 {
		sizeMB = 8
	}
	return &MemorySnapshotCache{
		cache:         freecache.NewCache(sizeMB * megabyte),
		chunkSize:     sizeMB * megabyte / 1024 / 2,
		expireSeconds: int(ttl.Seconds()),
	}
}

func snapshotChunkKey(i int) []byte {
	return []byte(fmt.Sprintf("%s::%d", SnapshotKey, i))
}

func (c *MemorySnapshotCache) chunkCount() (int, error) {
	header, err := c.cache.Get([]byte(SnapshotKey))
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(string(header))
	if err != nil {
		return 0, fmt.Errorf("snapshot header [%s]: %w", header, err)
	}
	return count, nil
}

func (c *MemorySnapshotCache) Get(_ context.Context) (*Snapshot, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count, err := c.chunkCount()
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("memory get snapshot: %w", err)
	}

	payload := make([]byte, 0, count*c.chunkSize)
	for i := 0; i < count; i++ {
		chunk, err := c.cache.Get(snapshotChunkKey(i))
		// an evicted chunk makes the whole snapshot unusable
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("memory get snapshot chunk %d: %w", i, err)
		}
		payload = append(payload, chunk...)
	}
	return unmarshalSnapshot(payload)
}

func (c *MemorySnapshotCache) Set(_ context.Context, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	previousCount, err := c.chunkCount()
	if err != nil {
		previousCount = 0
	}

	count := 0
	for offset := 0; offset < len(payload); offset += c.chunkSize {
		end := min(offset+c.chunkSize, len(payload))
		if err := c.cache.Set(snapshotChunkKey(count), payload[offset:end], c.expireSeconds); err != nil {
			c.cache.Del([]byte(SnapshotKey))
			return fmt.Errorf("memory set snapshot chunk %d [%d bytes]: %w", count, end-offset, err)
		}
		count++
	}
	if err := c.cache.Set([]byte(SnapshotKey), []byte(strconv.Itoa(count)), c.expireSeconds); err != nil {
		return fmt.Errorf("memory set snapshot header: %w", err)
	}

	for i := count; i < previousCount; i++ {
		c.cache.Del(snapshotChunkKey(i))
	}
	return nil
}

func unmarshalSnapshot(payload []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
