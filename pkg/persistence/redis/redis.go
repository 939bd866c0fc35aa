// Package redis provides Redis persistence for workflow instances and document records.
// Instances are stored as JSON strings, active instances in a sorted set scored by creation
// time and documents in one list per instance step.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/formation/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "formation"

// Persistence implements the persistence layer for Redis.
type Persistence struct {
	client       redis.UniversalClient
	logger       *slog.Logger
	instanceRepo *InstanceRepository
	documentRepo *DocumentRepository
}

// NewPersistence connects to the Redis server at redisURL (redis://[:password@]host:port/db).
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewPersistenceWithClient(client, logger, defaultPrefix), nil
}

// NewPersistenceWithClient wraps an existing client. Keys are namespaced under prefix.
func NewPersistenceWithClient(client redis.UniversalClient, logger *slog.Logger, prefix string) *Persistence {
	keys := keyspace(strings.TrimSuffix(prefix, ":"))

	return &Persistence{
		client:       client,
		logger:       logger,
		instanceRepo: &InstanceRepository{client: client, keys: keys, logger: logger},
		documentRepo: &DocumentRepository{client: client, keys: keys},
	}
}

func (p *Persistence) Instances() persistence.InstanceRepository {
	return p.instanceRepo
}

func (p *Persistence) Documents() persistence.DocumentRepository {
	return p.documentRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

type keyspace string

func (k keyspace) instance(id string) string {
	return string(k) + ":instance:" + id
}

func (k keyspace) active() string {
	return string(k) + ":instances:active"
}

func (k keyspace) documents(instanceID string, step int) string {
	return fmt.Sprintf("%s:documents:%s:%d", k, instanceID, step)
}
