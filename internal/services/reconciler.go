package services

import (
	"context"
	"errors"
	"time"
)

// ErrRefreshInFlight means a fetch is already running; the caller's
// refresh was redundant and was dropped, not queued.
var ErrRefreshInFlight = errors.New("atualização de conteúdo já em andamento")

// ErrStoreClosed means the store was torn down with the session.
var ErrStoreClosed = errors.New("sessão encerrada")

// Refresh fetches the list and replaces the store's contents. At most
// one fetch runs at a time; a concurrent call returns ErrRefreshInFlight.
// Starting a fetch cancels any scheduled one, and when the fetched list
// still has pending items the next poll is armed relative to this
// fetch's completion, not its start. A failed fetch arms nothing: all
// retry is manual.
func (s *ContentStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrRefreshInFlight
	}
	s.stopTimerLocked()
	s.inFlight = true
	s.mu.Unlock()

	items, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.lastErr = err
		return err
	}
	s.items = items
	s.fetched = true
	s.lastErr = nil
	if !s.closed && hasPending(items) {
		s.scheduleLocked(s.interval)
	}
	return nil
}

// ScheduleRefresh arms a single future refresh after d, replacing any
// refresh already scheduled. Used for the settling delay after a
// generation or payment success, where the server needs a moment before
// the new item shows up in the list.
func (s *ContentStore) ScheduleRefresh(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scheduleLocked(d)
}

func (s *ContentStore) scheduleLocked(d time.Duration) {
	s.stopTimerLocked()
	s.timer = time.AfterFunc(d, func() {
		// A refresh already in flight makes this one redundant.
		_ = s.Refresh(context.Background())
	})
}

func (s *ContentStore) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Close cancels any scheduled refresh and rejects all further ones.
// Called when the owning session is torn down; a poll must never fire
// after that.
func (s *ContentStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}
