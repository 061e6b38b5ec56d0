package redis

import (
	"context"

	"github.com/hrflow/hrflow/persistence"
)

const ALLOWLIST_KEY string = "ALLOWLIST"

var _ persistence.DomainStorage = new(redisDomainStorage)

type redisDomainStorage struct {
	*baseDao
}

func NewRedisDomainStorage(conf Config) *redisDomainStorage {
	return &redisDomainStorage{baseDao: newBaseDao(conf)}
}

func (r *redisDomainStorage) ListDomains() ([]string, error) {
	ctx := context.Background()
	domains, err := r.redisClient.SMembers(ctx, r.getNamespaceKey(ALLOWLIST_KEY)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return domains, nil
}

// AddDomain exists for provisioning and tests; rule editing is an
// administrative operation outside the execution path.
func (r *redisDomainStorage) AddDomain(domain string) error {
	ctx := context.Background()
	if err := r.redisClient.SAdd(ctx, r.getNamespaceKey(ALLOWLIST_KEY), domain).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
