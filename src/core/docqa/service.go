package docqa

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"docqa/src/log"
)

// Service loads sessions from a SessionStore, runs one operation at a time
// per session and saves the result. It returns read-only views so callers
// never share a live Session.
type Service struct {
	orch   *Orchestrator
	store  SessionStore
	mu     sync.Mutex
	locks  map[string]*sessionLock
	newID  func() string
	logger logr.Logger
}

func NewService(orch *Orchestrator, store SessionStore) *Service {
	return &Service{
		orch:   orch,
		store:  store,
		locks:  make(map[string]*sessionLock),
		newID:  uuid.NewString,
		logger: log.WithName("service"),
	}
}

// sessionLock is dropped from the table once nobody holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (svc *Service) lock(id string) func() {
	svc.mu.Lock()
	l, ok := svc.locks[id]
	if !ok {
		l = &sessionLock{}
		svc.locks[id] = l
	}
	l.refs++
	svc.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		svc.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(svc.locks, id)
		}
		svc.mu.Unlock()
	}
}

func (svc *Service) view(s *Session) View {
	return s.View(svc.orch.cfg.HistoryTurns)
}

func (svc *Service) CreateSession(ctx context.Context) (View, error) {
	s := NewSession(svc.newID())
	if err := svc.store.Save(ctx, s); err != nil {
		return View{}, fmt.Errorf("failed to save session: %w", err)
	}
	svc.logger.Info("session created", "session", s.ID)
	return svc.view(s), nil
}

func (svc *Service) Session(ctx context.Context, id string) (View, error) {
	unlock := svc.lock(id)
	defer unlock()

	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return svc.view(s), nil
}

// Upload indexes doc into the session. The session is saved whenever the
// attempt changed it, including failed attempts.
func (svc *Service) Upload(ctx context.Context, id string, doc Upload) (View, error) {
	unlock := svc.lock(id)
	defer unlock()

	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}

	upErr := svc.orch.Upload(ctx, s, doc)
	if errors.Is(upErr, ErrAlreadyIndexed) || errors.Is(upErr, ErrUploadTooLarge) {
		return svc.view(s), upErr
	}
	if err := svc.store.Save(ctx, s); err != nil {
		return View{}, fmt.Errorf("failed to save session: %w", err)
	}
	return svc.view(s), upErr
}

// Ask runs one question turn. Failed turns are not saved.
func (svc *Service) Ask(ctx context.Context, id, question string) (*TurnResult, View, error) {
	unlock := svc.lock(id)
	defer unlock()

	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, View{}, err
	}

	res, err := svc.orch.Ask(ctx, s, question)
	if err != nil {
		return nil, svc.view(s), err
	}
	if err := svc.store.Save(ctx, s); err != nil {
		return nil, View{}, fmt.Errorf("failed to save session: %w", err)
	}
	return res, svc.view(s), nil
}

func (svc *Service) SelectSuggestion(ctx context.Context, id string, i int) (View, error) {
	unlock := svc.lock(id)
	defer unlock()

	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if _, err := svc.orch.SelectSuggestion(s, i); err != nil {
		return svc.view(s), err
	}
	if err := svc.store.Save(ctx, s); err != nil {
		return View{}, fmt.Errorf("failed to save session: %w", err)
	}
	return svc.view(s), nil
}

func (svc *Service) Reset(ctx context.Context, id string) (View, error) {
	unlock := svc.lock(id)
	defer unlock()

	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	svc.orch.Reset(ctx, s)
	if err := svc.store.Save(ctx, s); err != nil {
		return View{}, fmt.Errorf("failed to save session: %w", err)
	}
	return svc.view(s), nil
}

// Delete releases the session's index and removes it from the store.
func (svc *Service) Delete(ctx context.Context, id string) error {
	unlock := svc.lock(id)
	defer unlock()

	s, err := svc.store.Load(ctx, id)
	if err != nil {
		return err
	}
	svc.orch.release(ctx, s.Index)
	if err := svc.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	svc.logger.Info("session deleted", "session", id)
	return nil
}
