// Package queue carries classification jobs from the create path to the
// worker over a Redis list. Jobs are JSON; the worker blocks on BRPOP so a
// restart picks up where it left off.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job is one classification unit of work. Attempt counts deliveries so the
// worker can stop retrying after the configured bound.
type Job struct {
	RequestID   string `json:"request_id"`
	Description string `json:"description"`
	Attempt     int    `json:"attempt"`
}

// ErrEmpty is returned by Dequeue when no job arrived within the wait window.
var ErrEmpty = errors.New("queue empty")

// Queue is a Redis-list backed FIFO of classification jobs.
type Queue struct {
	client *redis.Client
	key    string
}

// New builds a queue on the given Redis key.
func New(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Enqueue pushes a job to the head of the list.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Dequeue blocks up to wait for the next job. Returns ErrEmpty on timeout.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	result, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(result) != 2 {
		return nil, ErrEmpty
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Len reports the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
