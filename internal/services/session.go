package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"conteudo_app_echo/internal/models"
)

// ErrSessionNotFound is returned when a session ID has no stored session.
var ErrSessionNotFound = errors.New("sessão não encontrada")

// Session pairs the opaque bearer token from the content API with the
// user profile it belongs to. The ID travels in an HTTP-only cookie and
// is the only thing the browser ever sees.
type Session struct {
	ID        string             `json:"id"`
	Token     string             `json:"token"`
	User      models.UserProfile `json:"user"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewSession creates a session for a fresh login.
func NewSession(token string, user models.UserProfile) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: time.Now(),
	}
}

// SessionStore persists sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, sess *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions in Redis with a rolling TTL.
type RedisSessionStore struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewRedisSessionStore wraps the cache as a session store.
func NewRedisSessionStore(cache *RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: cache, ttl: ttl}
}

func sessionKey(id string) string {
	return "sessao:" + id
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	return s.cache.Set(ctx, sessionKey(sess.ID), sess, s.ttl)
}

func (s *RedisSessionStore) Find(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.cache.Get(ctx, sessionKey(id), &sess)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, sessionKey(id))
}

// MemorySessionStore is the fallback when no Redis URL is configured.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (s *MemorySessionStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemorySessionStore) Find(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copy := sess
	return &copy, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// TokenExpired decodes the token's exp claim without verifying the
// signature; verification belongs to the content API. Tokens that are
// not JWTs, or carry no exp, pass through and let the API decide.
func TokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}
