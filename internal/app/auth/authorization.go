package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

// AdminAuthorizer answers whether a uid holds the admin role
type AdminAuthorizer interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// AdminRegistry is the persistent admin registry
type AdminRegistry interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// RegistryAuthorizer reads the admin registry on every check
type RegistryAuthorizer struct {
	registry AdminRegistry
}

// NewRegistryAuthorizer creates a new RegistryAuthorizer
func NewRegistryAuthorizer(registry AdminRegistry) *RegistryAuthorizer {
	return &RegistryAuthorizer{registry: registry}
}

// IsAdmin implements AdminAuthorizer
func (a *RegistryAuthorizer) IsAdmin(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	return a.registry.IsAdmin(ctx, uid)
}

// RequireAdmin returns a forbidden error unless uid is an admin
func RequireAdmin(ctx context.Context, authz AdminAuthorizer, uid string) error {
	ok, err := authz.IsAdmin(ctx, uid)
	if err != nil {
		return fmt.Errorf("admin check failed: %w", err)
	}
	if !ok {
		return apperrors.NewForbiddenError("admin role required")
	}
	return nil
}

// RedisCache is the subset of the redis client used by CachedAuthorizer
type RedisCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedAuthorizer memoizes role checks in redis. A redis failure falls back to the wrapped authorizer.
type CachedAuthorizer struct {
	next  AdminAuthorizer
	cache RedisCache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedAuthorizer creates a new CachedAuthorizer
func NewCachedAuthorizer(next AdminAuthorizer, cache RedisCache, ttl time.Duration, log zerolog.Logger) *CachedAuthorizer {
	return &CachedAuthorizer{next: next, cache: cache, ttl: ttl, log: log}
}

func adminCacheKey(uid string) string {
	return "moim:admin:" + uid
}

// IsAdmin implements AdminAuthorizer
func (a *CachedAuthorizer) IsAdmin(ctx context.Context, uid string) (bool, error) {
	key := adminCacheKey(uid)

	cached, err := a.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached == "1", nil
	case !errors.Is(err, redis.Nil):
		a.log.Warn().Err(err).Msg("Admin cache read failed")
	}

	isAdmin, err := a.next.IsAdmin(ctx, uid)
	if err != nil {
		return false, err
	}

	value := "0"
	if isAdmin {
		value = "1"
	}
	if err := a.cache.Set(ctx, key, value, a.ttl).Err(); err != nil {
		a.log.Warn().Err(err).Msg("Admin cache write failed")
	}
	return isAdmin, nil
}
