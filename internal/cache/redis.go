package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/redis/go-redis/v9"

	"cgt-timeline-backend/internal/timeline"
)

// Share ids are short enough to read out over the phone.
const shareIDLength = 10

const shareKeyPrefix = "timeline:"

// ErrShareNotFound the share id has no snapshot (or it expired).
var ErrShareNotFound = errors.New("shared timeline not found")

// RedisClient wraps the Redis client for shared timeline snapshots.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client}, nil
}

// NewShareID generates a fresh share id.
func NewShareID() string {
	id := shortuuid.New()
	if len(id) > shareIDLength {
		id = id[:shareIDLength]
	}
	return id
}

// SaveTimeline stores a snapshot and returns its share id.
func (r *RedisClient) SaveTimeline(ctx context.Context, snapshot *timeline.Snapshot, ttl time.Duration) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}

	shareID := NewShareID()
	if err := r.client.Set(ctx, shareKeyPrefix+shareID, data, ttl).Err(); err != nil {
		log.Printf("[Redis] Failed to save timeline: %v", err)
		return "", err
	}

	log.Printf("[Redis] Timeline saved (shareId: %s, %d bytes)", shareID, len(data))
	return shareID, nil
}

// UpdateTimeline overwrites an existing share's snapshot, keeping its id.
func (r *RedisClient) UpdateTimeline(ctx context.Context, shareID string, snapshot *timeline.Snapshot, ttl time.Duration) error {
	exists, err := r.client.Exists(ctx, shareKeyPrefix+shareID).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrShareNotFound
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, shareKeyPrefix+shareID, data, ttl).Err()
}

// GetTimeline loads a snapshot by share id.
func (r *RedisClient) GetTimeline(ctx context.Context, shareID string) (*timeline.Snapshot, error) {
	data, err := r.client.Get(ctx, shareKeyPrefix+shareID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	var snapshot timeline.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteTimeline removes a shared snapshot.
func (r *RedisClient) DeleteTimeline(ctx context.Context, shareID string) error {
	return r.client.Del(ctx, shareKeyPrefix+shareID).Err()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Health checks if Redis is healthy.
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
