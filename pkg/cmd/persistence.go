package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/formation/pkg/persistence"
	"github.com/dukex/formation/pkg/persistence/file"
	"github.com/dukex/formation/pkg/persistence/postgresql"
	"github.com/dukex/formation/pkg/persistence/redis"
)

// NewPersistence selects the store by URL scheme. Anything without a known scheme is a
// directory for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
