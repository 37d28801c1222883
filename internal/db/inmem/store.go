// Package inmem is an in-process db.Store backed by go-cache, for single-node
// deployments and tests that should not need Redis.
package inmem

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sou1nonly/relocation-chatbot/internal/db"
)

var _ db.Store = (*Store)(nil)

// Store keeps values in process memory. Values are copied on the way in and out.
type Store struct {
	c    *gocache.Cache
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewStore creates an empty store. A positive cleanup interval starts a
// sweeper that removes expired keys until Close; with zero no goroutine is
// started and expired keys are only hidden from reads.
func NewStore(cleanup time.Duration) *Store {
	// go-cache's own janitor cannot be stopped, so it is never enabled.
	s := &Store{c: gocache.New(gocache.NoExpiration, 0)}
	if cleanup > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.sweep(cleanup)
	}
	return s
}

func (s *Store) sweep(every time.Duration) {
	defer close(s.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.c.DeleteExpired()
		case <-s.stop:
			return
		}
	}
}

// Ping always succeeds unless the context is done.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close stops the sweeper and drops all keys. It is safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
		s.c.Flush()
	})
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), b...), nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.c.Set(key, append([]byte(nil), value...), gocache.NoExpiration)
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(ctx, key, value)
	}
	s.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Len reports the number of stored keys, including expired ones not yet swept.
func (s *Store) Len() int {
	return s.c.ItemCount()
}
