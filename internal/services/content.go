package services

import (
	"context"
	"sync"
	"time"

	"conteudo_app_echo/internal/models"
)

// Tier is the generation path a new request must take.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// ChooseTier decides the path for a new generation request: Free while
// no item in the list was generated under the free tier, Paid after.
// Pure function of the list; callers must re-evaluate it on every
// refresh, since a concurrent session can consume the free slot.
func ChooseTier(items []models.ContentItem) Tier {
	for _, item := range items {
		if item.FreeTier() {
			return TierPaid
		}
	}
	return TierFree
}

// FetchFunc loads the full content list from the content API.
type FetchFunc func(ctx context.Context) ([]models.ContentItem, error)

// ContentStore is the reconciled view of one session's content list.
// Every fetch replaces the whole list; readers never see a partial
// update. While any item is pending, the store re-arms a refresh timer
// after each fetch until everything is delivered (see reconciler.go).
type ContentStore struct {
	fetch    FetchFunc
	interval time.Duration

	mu       sync.Mutex
	items    []models.ContentItem
	fetched  bool
	lastErr  error
	inFlight bool
	timer    *time.Timer
	closed   bool
}

// NewContentStore creates a store refreshing through fetch, re-polling
// every interval while items are pending.
func NewContentStore(fetch FetchFunc, interval time.Duration) *ContentStore {
	return &ContentStore{fetch: fetch, interval: interval}
}

// Items returns a copy of the current list, in server order.
func (s *ContentStore) Items() []models.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.ContentItem, len(s.items))
	copy(items, s.items)
	return items
}

// Fetched reports whether at least one fetch has succeeded.
func (s *ContentStore) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched
}

// Err returns the error of the most recent fetch, nil after a success.
func (s *ContentStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// IsEmpty reports whether the list has no items at all.
func (s *ContentStore) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// HasPending reports whether any item is still generating.
func (s *ContentStore) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hasPending(s.items)
}

// HasFreeItemUsed reports whether the single free generation was spent.
func (s *ContentStore) HasFreeItemUsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChooseTier(s.items) == TierPaid
}

// Tier chooses the path a new generation request must take right now.
func (s *ContentStore) Tier() Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChooseTier(s.items)
}

// FindItem looks an item up by its server-assigned ID.
func (s *ContentStore) FindItem(id uint) (models.ContentItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.ContentItem{}, false
}

func hasPending(items []models.ContentItem) bool {
	for _, item := range items {
		if !item.Delivered() {
			return true
		}
	}
	return false
}

// ContentManager hands out one ContentStore per session and tears them
// down when the session ends.
type ContentManager struct {
	backend     *BackendClient
	cache       *RedisCache
	interval    time.Duration
	snapshotTTL time.Duration

	mu     sync.Mutex
	stores map[string]*ContentStore
}

// NewContentManager creates a manager. cache may be nil; snapshots are
// then kept in memory only.
func NewContentManager(backend *BackendClient, cache *RedisCache, interval time.Duration) *ContentManager {
	return &ContentManager{
		backend:     backend,
		cache:       cache,
		interval:    interval,
		snapshotTTL: 30 * time.Minute,
		stores:      make(map[string]*ContentStore),
	}
}

func snapshotKey(sessionID string) string {
	return "conteudo:" + sessionID
}

// Store returns the session's content store, creating it on first use.
// A fresh store is warmed from the cached snapshot when one exists, so
// a server restart does not blank the dashboard, but it still counts as
// unfetched until the first live fetch succeeds.
func (m *ContentManager) Store(sess *Session) *ContentStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[sess.ID]; ok {
		return store
	}

	sessionID := sess.ID
	token := sess.Token
	store := NewContentStore(func(ctx context.Context) ([]models.ContentItem, error) {
		items, err := m.backend.ListContent(ctx, token)
		if err != nil {
			return nil, err
		}
		if m.cache != nil {
			_ = m.cache.Set(ctx, snapshotKey(sessionID), items, m.snapshotTTL)
		}
		return items, nil
	}, m.interval)

	if m.cache != nil {
		var cached []models.ContentItem
		if err := m.cache.Get(context.Background(), snapshotKey(sessionID), &cached); err == nil {
			store.items = cached
		}
	}

	m.stores[sess.ID] = store
	return store
}

// Lookup returns an existing store without creating one.
func (m *ContentManager) Lookup(sessionID string) (*ContentStore, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[sessionID]
	return store, ok
}

// Close tears the session's store down, cancelling any scheduled
// refresh, and drops its cached snapshot.
func (m *ContentManager) Close(sessionID string) {
	m.mu.Lock()
	store, ok := m.stores[sessionID]
	delete(m.stores, sessionID)
	m.mu.Unlock()

	if ok {
		store.Close()
	}
	if m.cache != nil {
		_ = m.cache.Delete(context.Background(), snapshotKey(sessionID))
	}
}
