package allowlist

import (
	"time"

	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/persistence"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const domainsCacheKey = "DOMAINS"

var _ DomainSource = new(CachedDomainSource)

// CachedDomainSource serves the allow-list rules from a TTL cache in front
// of the domain store, so the hot validate path never waits on storage. A
// refresh failure keeps serving the last known rules rather than flipping
// the policy open.
type CachedDomainSource struct {
	storage persistence.DomainStorage
	cache   *c.Cache
}

func NewCachedDomainSource(storage persistence.DomainStorage, ttl time.Duration) *CachedDomainSource {
	return &CachedDomainSource{
		storage: storage,
		cache:   c.New(ttl, 2*ttl),
	}
}

func (s *CachedDomainSource) Domains() []string {
	if v, found := s.cache.Get(domainsCacheKey); found {
		return v.([]string)
	}
	return s.Refresh()
}

// Refresh reloads the rules from storage, replacing the cached entry. Safe
// to call from a background ticker.
func (s *CachedDomainSource) Refresh() []string {
	domains, err := s.storage.ListDomains()
	if err != nil {
		logger.Error("allow-list refresh failed", zap.Error(err))
		if v, found := s.cache.Get(domainsCacheKey); found {
			s.cache.Set(domainsCacheKey, v, c.DefaultExpiration)
			return v.([]string)
		}
		return nil
	}
	s.cache.Set(domainsCacheKey, domains, c.DefaultExpiration)
	return domains
}

// StaticDomainSource serves a fixed rule list. Useful when the allow-list
// comes from flat configuration instead of a store.
type StaticDomainSource []string

func (s StaticDomainSource) Domains() []string {
	return s
}
