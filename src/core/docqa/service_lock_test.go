package docqa

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type missingStore struct{}

func (missingStore) Load(context.Context, string) (*Session, error) { return nil, ErrSessionNotFound }
func (missingStore) Save(context.Context, *Session) error          { return nil }
func (missingStore) Delete(context.Context, string) error          { return nil }

// gatedStore blocks Load until release is closed.
type gatedStore struct {
	missingStore
	entered chan struct{}
	release chan struct{}
}

func (g gatedStore) Load(ctx context.Context, id string) (*Session, error) {
	close(g.entered)
	<-g.release
	return g.missingStore.Load(ctx, id)
}

func (svc *Service) waiting(id string) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if l, ok := svc.locks[id]; ok {
		return l.refs
	}
	return 0
}

func TestDeleteKeepsSessionSerialized(t *testing.T) {
	store := gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(nil, store)

	deleted := make(chan error, 1)
	go func() { deleted <- svc.Delete(context.Background(), "s1") }()
	<-store.entered

	var unlockNext func()
	acquired := make(chan struct{})
	go func() {
		unlockNext = svc.lock("s1")
		close(acquired)
	}()
	require.Eventually(t, func() bool { return svc.waiting("s1") == 2 }, time.Second, time.Millisecond)

	close(store.release)
	assert.ErrorIs(t, <-deleted, ErrSessionNotFound)
	<-acquired

	var late atomic.Bool
	done := make(chan struct{})
	go func() {
		unlock := svc.lock("s1")
		late.Store(true)
		unlock()
		close(done)
	}()
	assert.Never(t, late.Load, 50*time.Millisecond, 5*time.Millisecond)

	unlockNext()
	<-done
	assert.Zero(t, svc.waiting("s1"))
}

func TestLockTableDropsIdleEntries(t *testing.T) {
	tests := []struct {
		name    string
		callers int
	}{
		{"single caller", 1},
		{"contended", 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, missingStore{})
			var (
				wg     sync.WaitGroup
				active atomic.Int32
				peak   atomic.Int32
			)
			for i := 0; i < tt.callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := svc.lock("s1")
					n := active.Add(1)
					if n > peak.Load() {
						peak.Store(n)
					}
					time.Sleep(time.Millisecond)
					active.Add(-1)
					unlock()
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), peak.Load())
			svc.mu.Lock()
			assert.Empty(t, svc.locks)
			svc.mu.Unlock()
		})
	}
}
