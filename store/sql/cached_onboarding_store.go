package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-issuer-agent/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const onboardingCacheKeyPrefix = "go-issuer-agent::onboarding::v1"

// OnboardingLedger is what the cached store decorates.
type OnboardingLedger interface {
	core.OnboardingRecorder
	core.OnboardingReader
}

// CachedOnboardingStore caches single-record reads. Every write through it
// evicts the record so a later read observes the new stage.
type CachedOnboardingStore struct {
	base  OnboardingLedger
	cache repositorycache.CacheService
}

func NewCachedOnboardingStore(
	base OnboardingLedger,
	cacheService repositorycache.CacheService,
) (*CachedOnboardingStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base onboarding store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: onboarding cache service is required")
	}
	return &CachedOnboardingStore{base: base, cache: cacheService}, nil
}

// OnboardingCacheKey returns go-issuer-agent::onboarding::v1::<id> with the id
// URL-path escaped.
func OnboardingCacheKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", core.BadInputError("onboarding id is required")
	}
	return onboardingCacheKeyPrefix + "::" + url.PathEscape(id), nil
}

func (s *CachedOnboardingStore) Start(ctx context.Context, name string, state core.OnboardingState) (string, error) {
	if s == nil || s.base == nil {
		return "", fmt.Errorf("sqlstore: cached onboarding store is not configured")
	}
	return s.base.Start(ctx, name, state)
}

func (s *CachedOnboardingStore) Advance(ctx context.Context, id string, state core.OnboardingState) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached onboarding store is not configured")
	}
	if err := s.base.Advance(ctx, id, state); err != nil {
		return err
	}
	return s.evict(ctx, id)
}

func (s *CachedOnboardingStore) Fail(ctx context.Context, id string, state core.OnboardingState, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached onboarding store is not configured")
	}
	if err := s.base.Fail(ctx, id, state, reason); err != nil {
		return err
	}
	return s.evict(ctx, id)
}

func (s *CachedOnboardingStore) GetOnboarding(ctx context.Context, id string) (core.OnboardingRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.OnboardingRecord{}, fmt.Errorf("sqlstore: cached onboarding store is not configured")
	}
	cacheKey, err := OnboardingCacheKey(id)
	if err != nil {
		return core.OnboardingRecord{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.OnboardingRecord, error) {
		return s.base.GetOnboarding(ctx, strings.TrimSpace(id))
	})
}

// ListOnboardings is not cached.
func (s *CachedOnboardingStore) ListOnboardings(ctx context.Context, name string) ([]core.OnboardingRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached onboarding store is not configured")
	}
	return s.base.ListOnboardings(ctx, name)
}

func (s *CachedOnboardingStore) evict(ctx context.Context, id string) error {
	cacheKey, err := OnboardingCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
