// Package redis implements local.StateStore on Redis so that orchestration
// state outlives the process running the local engine. Each instance is a
// Redis Hash and a Set indexes instance IDs.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	engine := local.New(local.WithStateStore(redisstore.New(client)))
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/local"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/task"
)

// Compile-time interface check.
var _ local.StateStore = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is a Redis-backed local.StateStore.
type Store struct {
	client redis.Cmdable
	logger *slog.Logger
}

// New creates a Redis-backed state store. The caller owns the Redis client
// lifecycle.
func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveState creates or replaces the state of an instance.
func (s *Store) SaveState(ctx context.Context, st *orchestration.State) error {
	m, err := stateToMap(st)
	if err != nil {
		return err
	}
	key := stateKey(st.InstanceID)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, m)
	pipe.SAdd(ctx, stateIDsKey, st.InstanceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("taskhub/redis: save state: %w", err)
	}
	return nil
}

// GetState loads the state of an instance.
func (s *Store) GetState(ctx context.Context, instanceID string) (*orchestration.State, error) {
	vals, err := s.client.HGetAll(ctx, stateKey(instanceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("taskhub/redis: get state: %w", err)
	}
	if len(vals) == 0 {
		return nil, taskhub.ErrInstanceNotFound
	}
	return mapToState(vals)
}

// ListStates returns every stored instance, optionally filtered by status.
// Entries that fail to decode are skipped and logged.
func (s *Store) ListStates(ctx context.Context, status orchestration.Status) ([]*orchestration.State, error) {
	ids, err := s.client.SMembers(ctx, stateIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("taskhub/redis: list states smembers: %w", err)
	}

	var states []*orchestration.State
	for _, instanceID := range ids {
		vals, getErr := s.client.HGetAll(ctx, stateKey(instanceID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		st, convErr := mapToState(vals)
		if convErr != nil {
			s.logger.Warn("skipping undecodable state",
				slog.String("instance_id", instanceID),
				slog.String("error", convErr.Error()),
			)
			continue
		}
		if status != "" && st.Status != status {
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

// DeleteState removes an instance. Deleting an unknown instance is not an
// error.
func (s *Store) DeleteState(ctx context.Context, instanceID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, stateKey(instanceID))
	pipe.SRem(ctx, stateIDsKey, instanceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("taskhub/redis: delete state: %w", err)
	}
	return nil
}

func stateToMap(st *orchestration.State) (map[string]interface{}, error) {
	m := map[string]interface{}{
		"instance_id":     st.InstanceID,
		"execution_id":    st.ExecutionID,
		"name":            st.Name,
		"version":         st.Version,
		"status":          string(st.Status),
		"input":           string(st.Input),
		"output":          string(st.Output),
		"created_at":      st.CreatedAt.Format(time.RFC3339Nano),
		"last_updated_at": st.LastUpdatedAt.Format(time.RFC3339Nano),
	}
	if len(st.Tags) > 0 {
		b, err := json.Marshal(st.Tags)
		if err != nil {
			return nil, fmt.Errorf("taskhub/redis: marshal tags: %w", err)
		}
		m["tags"] = string(b)
	}
	if st.Failure != nil {
		b, err := json.Marshal(st.Failure)
		if err != nil {
			return nil, fmt.Errorf("taskhub/redis: marshal failure: %w", err)
		}
		m["failure"] = string(b)
	}
	if st.CompletedAt != nil {
		m["completed_at"] = st.CompletedAt.Format(time.RFC3339Nano)
	}
	return m, nil
}

func mapToState(m map[string]string) (*orchestration.State, error) {
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["last_updated_at"])

	st := &orchestration.State{
		Instance: orchestration.Instance{
			InstanceID:  m["instance_id"],
			ExecutionID: m["execution_id"],
		},
		Name:          m["name"],
		Version:       m["version"],
		Status:        orchestration.Status(m["status"]),
		CreatedAt:     createdAt,
		LastUpdatedAt: updatedAt,
	}
	if v := m["input"]; v != "" {
		st.Input = []byte(v)
	}
	if v := m["output"]; v != "" {
		st.Output = []byte(v)
	}
	if v := m["tags"]; v != "" {
		if err := json.Unmarshal([]byte(v), &st.Tags); err != nil {
			return nil, fmt.Errorf("taskhub/redis: unmarshal tags: %w", err)
		}
	}
	if v := m["failure"]; v != "" {
		var fd task.FailureDetails
		if err := json.Unmarshal([]byte(v), &fd); err != nil {
			return nil, fmt.Errorf("taskhub/redis: unmarshal failure: %w", err)
		}
		st.Failure = &fd
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v)
		st.CompletedAt = &t
	}
	return st, nil
}
