package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrUnknownTask is returned when no status has been recorded for a task.
var ErrUnknownTask = errors.New("unknown task")

// TaskState is the recorded progress of an asynchronous task.
type TaskState struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker records task progress in Redis so API clients can poll while a
// worker runs.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTracker creates a tracker. States expire after ttl; zero keeps them
// forever.
func NewTracker(client *redis.Client, ttl time.Duration) *Tracker {
	return &Tracker{client: client, ttl: ttl}
}

func key(kind, id string) string {
	return fmt.Sprintf("task:%s:%s", kind, id)
}

// Set records the state of a task.
func (t *Tracker) Set(ctx context.Context, kind, id, stat, errMsg string) error {
	state := TaskState{Status: stat, Error: errMsg, UpdatedAt: time.Now().UTC()}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := t.client.Set(ctx, key(kind, id), data, t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record task state: %w", err)
	}
	return nil
}

// Get returns the recorded state of a task.
func (t *Tracker) Get(ctx context.Context, kind, id string) (*TaskState, error) {
	data, err := t.client.Get(ctx, key(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownTask
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task state: %w", err)
	}
	state := &TaskState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to decode task state: %w", err)
	}
	return state, nil
}
