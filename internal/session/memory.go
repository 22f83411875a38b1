package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/innoguard/internal/model"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

// MemoryStore keeps sessions in process. A zero ttl keeps them until the
// process exits.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &MemoryStore{cache: cache.New(expiration, cleanup)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*model.Session, error) {
	v, found := s.cache.Get(id)
	if !found {
		return nil, apperrors.NewNoSession()
	}
	return fromEntries(v.(map[string]string))
}

func (s *MemoryStore) Save(_ context.Context, id string, sess *model.Session) error {
	s.cache.Set(id, toEntries(sess), cache.DefaultExpiration)
	return nil
}
