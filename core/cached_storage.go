package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const registrationCacheKeyPrefix = "go-peers::registration::v1"

// CachedStorage fronts a Storage with a read-through cache for Contains.
// Writes evict the key before and after the base write. Only the first
// eviction can fail the write.
type CachedStorage struct {
	base  Storage
	cache repositorycache.CacheService
}

func NewCachedStorage(base Storage, cacheService repositorycache.CacheService) (*CachedStorage, error) {
	if base == nil {
		return nil, fmt.Errorf("core: base storage is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("core: registration cache service is required")
	}
	return &CachedStorage{base: base, cache: cacheService}, nil
}

// NewDefaultCacheService builds an in-process cache with the given ttl.
func NewDefaultCacheService(cfg CacheConfig) (repositorycache.CacheService, error) {
	cacheConfig := repositorycache.DefaultConfig()
	if cfg.TTL > 0 {
		cacheConfig.TTL = cfg.TTL
	}
	return repositorycache.NewCacheService(cacheConfig)
}

// RegistrationCacheKey returns go-peers::registration::v1::<peer_id> with the
// peer id URL-path escaped.
func RegistrationCacheKey(peerID string) (string, error) {
	if strings.TrimSpace(peerID) == "" {
		return "", fmt.Errorf("core: peer id is required for cache key")
	}
	return registrationCacheKeyPrefix + "::" + url.PathEscape(peerID), nil
}

func (s *CachedStorage) Base() Storage {
	if s == nil {
		return nil
	}
	return s.base
}

func (s *CachedStorage) Init(ctx context.Context) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("core: cached storage is not configured")
	}
	return s.base.Init(ctx)
}

func (s *CachedStorage) Contains(ctx context.Context, peerID string) (bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return false, fmt.Errorf("core: cached storage is not configured")
	}
	key, err := RegistrationCacheKey(peerID)
	if err != nil {
		return false, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (bool, error) {
		return s.base.Contains(ctx, peerID)
	})
}

func (s *CachedStorage) Upsert(ctx context.Context, peerID string, isRegistered bool) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("core: cached storage is not configured")
	}
	key, err := s.evict(ctx, peerID)
	if err != nil {
		return err
	}
	if err := s.base.Upsert(ctx, peerID, isRegistered); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, key)
	return nil
}

func (s *CachedStorage) Delete(ctx context.Context, peerID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("core: cached storage is not configured")
	}
	key, err := s.evict(ctx, peerID)
	if err != nil {
		return err
	}
	if err := s.base.Delete(ctx, peerID); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, key)
	return nil
}

// List is never cached.
func (s *CachedStorage) List(ctx context.Context) ([]RegistrationRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("core: cached storage is not configured")
	}
	lister, ok := s.base.(Lister)
	if !ok {
		return nil, fmt.Errorf("core: storage %T does not support listing", s.base)
	}
	return lister.List(ctx)
}

// evict drops the cached entry ahead of a base write. A failed eviction
// aborts the write so the cache can never outlive a committed change.
func (s *CachedStorage) evict(ctx context.Context, peerID string) (string, error) {
	key, err := RegistrationCacheKey(peerID)
	if err != nil {
		return "", err
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("core: evict %s: %w", key, err)
	}
	return key, nil
}
