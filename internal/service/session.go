package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akbargherbal/gemini-fusion/internal/pkg/cache"
)

// ErrSessionNotFound is returned when a stream session id does not
// resolve: never initiated, already consumed, or expired.
var ErrSessionNotFound = errors.New("chat session not found or expired")

// Session parks one initiated turn between the initiate call and the
// stream call that consumes it. It holds the caller's credential for
// that window only; consuming the session removes it.
type Session struct {
	ConversationID string    `json:"conversation_id"`
	APIKey         string    `json:"api_key"`
	Model          string    `json:"model"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionStore holds parked sessions. Take is single-use: it returns
// the session and removes it in one step, so a session can never back
// two streams.
type SessionStore interface {
	Put(ctx context.Context, id string, sess *Session) error
	Take(ctx context.Context, id string) (*Session, error)
}

// MemorySessionStore is the in-process store used when redis is not
// configured. Expired entries are dropped lazily on access.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
}

// NewMemorySessionStore creates an in-memory store with the given TTL.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Put parks a session and sweeps anything already expired.
func (s *MemorySessionStore) Put(_ context.Context, id string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, old := range s.sessions {
		if now.Sub(old.CreatedAt) > s.ttl {
			delete(s.sessions, key)
		}
	}

	s.sessions[id] = sess
	return nil
}

// Take removes and returns a live session.
func (s *MemorySessionStore) Take(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(s.sessions, id)

	if time.Since(sess.CreatedAt) > s.ttl {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// sessionCache is the slice of the cache wrapper the redis store uses.
type sessionCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	GetDel(ctx context.Context, key string, dest any) error
}

// RedisSessionStore parks sessions in redis, which also makes initiate
// and stream work across replicas. TTL enforcement is redis's.
type RedisSessionStore struct {
	cache sessionCache
	ttl   time.Duration
}

// NewRedisSessionStore creates a redis-backed store.
func NewRedisSessionStore(c *cache.RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: c, ttl: ttl}
}

// Put parks a session under its key with the configured TTL.
func (s *RedisSessionStore) Put(ctx context.Context, id string, sess *Session) error {
	return s.cache.Set(ctx, cache.ChatSessionKey(id), sess, s.ttl)
}

// Take fetches and deletes the session. Fetch and removal are one
// GETDEL, so two concurrent takes of the same id cannot both win.
func (s *RedisSessionStore) Take(ctx context.Context, id string) (*Session, error) {
	var sess Session

	if err := s.cache.GetDel(ctx, cache.ChatSessionKey(id), &sess); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}
