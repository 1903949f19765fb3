// Package cmd holds the wiring shared by the caseflow binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/persistence/file"
	"github.com/dukex/caseflow/pkg/persistence/postgresql"
	"github.com/dukex/caseflow/pkg/persistence/redis"
)

const memberCacheTTL = 5 * time.Minute

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence opens the store named by databaseURL. When redisURL is set,
// organization membership reads go through a redis cache.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, redisURL string) (persistence.Persistence, error) {
	var (
		p   persistence.Persistence
		err error
	)

	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err = postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres persistence: %w", err)
		}
	default:
		p = file.NewPersistence(databaseURL)
	}

	if redisURL == "" {
		return p, nil
	}

	client, err := redis.NewClient(redisURL)
	if err != nil {
		if closeErr := p.Close(ctx); closeErr != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", closeErr)
		}

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoContext(ctx, "Caching organization members in redis", "ttl", memberCacheTTL)

	return redis.Wrap(p, client, memberCacheTTL, logger), nil
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
