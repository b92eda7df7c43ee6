package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docqa/src/core/docqa"
)

const keyPrefix = "docqa:session:"

// Store keeps sessions in Redis as JSON. The index is stored as a snapshot
// and restored through the builder on Load.
//
// Keys expire inside Redis, so nothing here sees a session time out. A
// Weaviate class of a session that expires without Delete stays behind
// until the same session id is indexed again or the class is dropped by hand.
type Store struct {
	rdb     *redis.Client
	builder docqa.IndexBuilder
	ttl     time.Duration
}

type record struct {
	Session *docqa.Session       `json:"session"`
	Index   *docqa.IndexSnapshot `json:"index,omitempty"`
}

// NewClient accepts a redis:// URL or a bare host:port.
func NewClient(url, password string, db int) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{
			Addr:     url,
			Password: password,
			DB:       db,
		}
	}
	return redis.NewClient(opt)
}

func NewStore(rdb *redis.Client, builder docqa.IndexBuilder, ttl time.Duration) *Store {
	return &Store{rdb: rdb, builder: builder, ttl: ttl}
}

func (s *Store) Load(ctx context.Context, id string) (*docqa.Session, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, docqa.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if rec.Session == nil {
		return nil, fmt.Errorf("session %s has no state", id)
	}
	if rec.Index != nil {
		idx, err := s.builder.Restore(ctx, *rec.Index)
		if err != nil {
			return nil, fmt.Errorf("failed to restore index of session %s: %w", id, err)
		}
		rec.Session.Index = idx
	}
	return rec.Session, nil
}

func (s *Store) Save(ctx context.Context, session *docqa.Session) error {
	rec := record{Session: session}
	if session.Index != nil {
		snap := session.Index.Snapshot()
		rec.Index = &snap
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+session.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session %s: %w", session.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
