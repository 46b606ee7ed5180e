package api

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/debatetab/debatetab/internal/datastore/entities"
	"github.com/debatetab/debatetab/internal/datastore/repository"
)

// cachedPreference remembers absent preferences as well as stored ones.
type cachedPreference struct {
	value string
	ok    bool
}

// PreferenceCache is a read-through cache in front of the preference
// repository. Writes through the cache invalidate the entry; writes made
// elsewhere become visible once the entry expires.
type PreferenceCache struct {
	repo  repository.PreferenceRepository
	cache *cache.Cache
}

// NewPreferenceCache creates a PreferenceCache whose entries live for ttl.
func NewPreferenceCache(repo repository.PreferenceRepository, ttl time.Duration) *PreferenceCache {
	return &PreferenceCache{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func preferenceKey(tournamentID uint, section, name string) string {
	return fmt.Sprintf("%d/%s/%s", tournamentID, section, name)
}

// Get returns the raw value and whether it is stored.
func (p *PreferenceCache) Get(ctx context.Context, tournamentID uint, section, name string) (string, bool, error) {
	key := preferenceKey(tournamentID, section, name)
	if v, found := p.cache.Get(key); found {
		pref := v.(cachedPreference)
		return pref.value, pref.ok, nil
	}

	value, ok, err := p.repo.Get(ctx, tournamentID, section, name)
	if err != nil {
		return "", false, err
	}
	p.cache.SetDefault(key, cachedPreference{value: value, ok: ok})
	return value, ok, nil
}

// Bool reads a boolean preference. Absent values are false.
func (p *PreferenceCache) Bool(ctx context.Context, tournamentID uint, section, name string) (bool, error) {
	value, _, err := p.Get(ctx, tournamentID, section, name)
	if err != nil {
		return false, err
	}
	return entities.IsTruthy(value), nil
}

// Set stores the preference and drops the cached entry.
func (p *PreferenceCache) Set(ctx context.Context, tournamentID uint, section, name, value string) error {
	defer p.cache.Delete(preferenceKey(tournamentID, section, name))
	return p.repo.Set(ctx, tournamentID, section, name, value)
}
