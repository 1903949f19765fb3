// Package redis provides a Redis read-through cache in front of the organization
// repository. Membership lookups run on every authorized request, so they are cached;
// every write invalidates the organization's entries.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how stale a cached membership may get.
	DefaultTTL = 5 * time.Minute

	namespace = "caseflow"
)

// NewClient creates a client from a redis:// URL.
func NewClient(url string) (redis.UniversalClient, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return redis.NewClient(options), nil
}

// MemberCache implements persistence.OrganizationRepository over another repository.
type MemberCache struct {
	client redis.UniversalClient
	next   persistence.OrganizationRepository
	ttl    time.Duration
	logger *slog.Logger
}

var _ persistence.OrganizationRepository = (*MemberCache)(nil)

// NewMemberCache creates a cache in front of next.
func NewMemberCache(client redis.UniversalClient, next persistence.OrganizationRepository, ttl time.Duration, logger *slog.Logger) *MemberCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemberCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger.With("module", "member_cache"),
	}
}

func key(args ...string) string {
	return fmt.Sprintf("%s:%s", namespace, strings.Join(args, ":"))
}

func membersKey(orgID string) string {
	return key("org", orgID, "members")
}

func memberKey(orgID, userID string) string {
	return key("org", orgID, "member", userID)
}

// lookup serves key from Redis or loads and stores it. Redis failures degrade to a
// plain load.
func lookup[T any](ctx context.Context, c *MemberCache, cacheKey string, load func() (T, error)) (T, error) {
	cached, err := c.client.Get(ctx, cacheKey).Bytes()

	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(cached, &value); err == nil {
			return value, nil
		}

		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", cacheKey)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "member cache read failed", "key", cacheKey, "error", err)
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}

	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "member cache write failed", "key", cacheKey, "error", err)
	}

	return value, nil
}

// Members returns the organization's members, cached.
func (c *MemberCache) Members(ctx context.Context, orgID string) ([]*models.Member, error) {
	return lookup(ctx, c, membersKey(orgID), func() ([]*models.Member, error) {
		return c.next.Members(ctx, orgID)
	})
}

// Member returns one membership, cached. Not-found results are not cached.
func (c *MemberCache) Member(ctx context.Context, orgID, userID string) (*models.Member, error) {
	return lookup(ctx, c, memberKey(orgID, userID), func() (*models.Member, error) {
		return c.next.Member(ctx, orgID, userID)
	})
}

// SaveMember writes through and drops the organization's cached entries.
func (c *MemberCache) SaveMember(ctx context.Context, member *models.Member) error {
	if err := c.next.SaveMember(ctx, member); err != nil {
		return err
	}

	c.invalidate(ctx, membersKey(member.OrgID), memberKey(member.OrgID, member.UserID))

	return nil
}

func (c *MemberCache) invalidate(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.ErrorContext(ctx, "member cache invalidation failed", "keys", keys, "error", err)
	}
}

func (c *MemberCache) FieldOverrides(ctx context.Context, orgID string) ([]models.FieldPermissionOverride, error) {
	return c.next.FieldOverrides(ctx, orgID)
}

func (c *MemberCache) SaveFieldOverride(ctx context.Context, override models.FieldPermissionOverride) error {
	return c.next.SaveFieldOverride(ctx, override)
}

func (c *MemberCache) AllowedSenders(ctx context.Context, orgID string) ([]string, error) {
	return c.next.AllowedSenders(ctx, orgID)
}

func (c *MemberCache) SetAllowedSenders(ctx context.Context, orgID string, senders []string) error {
	return c.next.SetAllowedSenders(ctx, orgID, senders)
}

// Persistence decorates another persistence with the member cache.
type Persistence struct {
	persistence.Persistence

	client        redis.UniversalClient
	organizations *MemberCache
}

// Wrap puts the member cache in front of p's organization repository.
func Wrap(p persistence.Persistence, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Persistence {
	return &Persistence{
		Persistence:   p,
		client:        client,
		organizations: NewMemberCache(client, p.Organizations(), ttl, logger),
	}
}

func (p *Persistence) Organizations() persistence.OrganizationRepository {
	return p.organizations
}

// HealthCheck checks Redis and the wrapped persistence.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return p.Persistence.HealthCheck(ctx)
}

// Close closes the Redis client and the wrapped persistence.
func (p *Persistence) Close(ctx context.Context) error {
	return errors.Join(p.client.Close(), p.Persistence.Close(ctx))
}
