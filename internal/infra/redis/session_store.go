package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"automatization-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - The local map stays the source of truth; a restart still loses in-flight quizzes.
//   - Redis holds a progress snapshot per user so operators can see who is mid-quiz
//     across instances. Snapshots expire after ttl and are never read back.
type SessionStore struct {
	client       *redis.Client
	ttl          time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
	mu           sync.RWMutex
	sessions     map[string]*domain.Session
}

// DefaultWriteTimeout bounds each snapshot write.
const DefaultWriteTimeout = time.Second

func NewSessionStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		client:       client,
		ttl:          ttl,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
		sessions:     make(map[string]*domain.Session),
	}
}

func (s *SessionStore) Get(userID string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}

func (s *SessionStore) Put(session *domain.Session) {
	s.mu.Lock()
	s.sessions[session.UserID] = session.Clone()
	s.mu.Unlock()

	// best-effort snapshot, written outside the lock so a slow Redis never blocks Get
	data, err := json.Marshal(session)
	if err != nil {
		s.logger.Warn("encode session snapshot", "user_id", session.UserID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(session.UserID), data, s.ttl).Err(); err != nil {
		s.logger.Warn("redis session snapshot failed", "user_id", session.UserID, "error", err)
	}
}

func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		s.logger.Warn("redis session cleanup failed", "user_id", userID, "error", err)
	}
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}
