package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"docqa/src/core/docqa"
	"docqa/src/log"
)

const releaseTimeout = 30 * time.Second

// Store keeps sessions in process memory. Sessions expire after ttl without
// a Save; the cleanup pass releases the index of every expired session.
type Store struct {
	cache *cache.Cache
}

func NewStore(ttl, cleanupInterval time.Duration) *Store {
	c := cache.New(ttl, cleanupInterval)
	c.OnEvicted(releaseEvicted)
	return &Store{
		cache: c,
	}
}

// releaseEvicted runs for expired and deleted entries alike. Releasers
// tolerate a second call after Service.Delete already released the index.
func releaseEvicted(id string, v interface{}) {
	s, ok := v.(*docqa.Session)
	if !ok || s.Index == nil {
		return
	}
	r, ok := s.Index.(docqa.Releaser)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := r.Release(ctx); err != nil {
		log.Error(err, "failed to release evicted session index", "session", id)
		return
	}
	log.Debug("evicted session index released", "session", id)
}

func (s *Store) Load(_ context.Context, id string) (*docqa.Session, error) {
	if x, found := s.cache.Get(id); found {
		return x.(*docqa.Session), nil
	}
	return nil, docqa.ErrSessionNotFound
}

func (s *Store) Save(_ context.Context, session *docqa.Session) error {
	s.cache.Set(session.ID, session, cache.DefaultExpiration)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func (s *Store) Ping(context.Context) error {
	return nil
}
