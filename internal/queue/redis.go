package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sceneQueueKey = "queue:scenes"

	// BLPop poll interval — short enough that Close/cancel is responsive.
	dequeueBlock = 5 * time.Second
)

// RedisQueue is the durable queue backend: scene ids survive process
// restarts because they live in a Redis list until dequeued.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{client: client}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, sceneID string) error {
	if err := q.client.RPush(ctx, sceneQueueKey, sceneID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue scene %s: %w", sceneID, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		result, err := q.client.BLPop(ctx, dequeueBlock, sceneQueueKey).Result()
		if err == redis.Nil {
			// Nothing available within the block window; poll again unless
			// the caller is shutting down.
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
				continue
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("failed to dequeue: %w", err)
		}
		if len(result) != 2 {
			return "", fmt.Errorf("unexpected redis response")
		}
		return result[1], nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
