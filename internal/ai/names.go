package ai

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/themobileprof/deskpilot/internal/catalog"
)

type cachedName struct {
	target string
	ok     bool
}

// CatalogNameResolver resolves free-text names against the catalog's
// apps, then games. Lookups are cached per snapshot version.
type CatalogNameResolver struct {
	store *catalog.Store
	cache *cache.Cache
}

// NewCatalogNameResolver creates a resolver backed by store
func NewCatalogNameResolver(store *catalog.Store) *CatalogNameResolver {
	return &CatalogNameResolver{
		store: store,
		cache: cache.New(10*time.Minute, 5*time.Minute),
	}
}

// ResolveName implements interfaces.NameResolver
func (r *CatalogNameResolver) ResolveName(name string) (string, bool) {
	snap := r.store.Current()
	key := snap.Normalize(name)
	if key == "" {
		return "", false
	}
	cacheKey := fmt.Sprintf("%d:%s", snap.Version, key)
	if x, found := r.cache.Get(cacheKey); found {
		c := x.(cachedName)
		return c.target, c.ok
	}

	var res cachedName
	if t, _, ok := catalog.LookupNamed(snap.Apps, key); ok {
		res = cachedName{target: t.Target, ok: true}
	} else if t, _, ok := catalog.LookupNamed(snap.Games, key); ok {
		res = cachedName{target: t.Target, ok: true}
	}
	r.cache.Set(cacheKey, res, cache.DefaultExpiration)
	return res.target, res.ok
}
