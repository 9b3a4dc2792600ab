package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	cacheport "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/cache/port"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/repository/port"
)

// CachedUserRepository serves identities from the cache and falls back to
// next on a miss. Cache failures degrade to a direct read.
type CachedUserRepository struct {
	next  repository.UserRepository
	cache cacheport.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedUserRepository(next repository.UserRepository, cache cacheport.Cache, ttl time.Duration, log *zap.Logger) *CachedUserRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedUserRepository{next: next, cache: cache, ttl: ttl, log: log}
}

var _ repository.UserRepository = (*CachedUserRepository)(nil)

func identityKey(id int64) string {
	return "identity:" + strconv.FormatInt(id, 10)
}

func (r *CachedUserRepository) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	key := identityKey(id)

	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var u repository.User
		if jsonErr := json.Unmarshal([]byte(raw), &u); jsonErr == nil {
			return &u, nil
		}
		r.log.Warn("discarding undecodable cached identity", zap.Int64("user_id", id))
	case !errors.Is(err, cacheport.ErrMiss):
		r.log.Warn("identity cache read failed", zap.Int64("user_id", id), zap.Error(err))
	}

	u, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(u); err == nil {
		if err := r.cache.Set(ctx, key, string(b), r.ttl); err != nil {
			r.log.Warn("identity cache write failed", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	return u, nil
}
