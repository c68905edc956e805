package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"automatization-bot/internal/domain"
)

// SessionRepository abstracts how in-progress quizzes are kept (in-memory, Redis-aware, etc).
// Get returns a copy; callers write changes back with Put.
type SessionRepository interface {
	Get(userID string) (*domain.Session, bool)
	Put(session *domain.Session)
	Delete(userID string)
	Len() int
}

// UserLocker serializes event handling for a single user.
// The returned function releases the lock and is safe to call more than once.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (func(), error)
}

// BankLoader fetches quiz content from a backing store (config, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// QuizService applies engine transitions against the session store and transports.
type QuizService struct {
	sessions SessionRepository
	locks    UserLocker
	engine   *Engine
	notifier *Notifier
	sender   Sender
	logger   *slog.Logger
}

func NewQuizService(sessions SessionRepository, locks UserLocker, engine *Engine, notifier *Notifier, sender Sender, logger *slog.Logger) *QuizService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizService{
		sessions: sessions,
		locks:    locks,
		engine:   engine,
		notifier: notifier,
		sender:   sender,
		logger:   logger,
	}
}

// Handle processes one inbound chat message for its user.
// State changes are committed before replies are sent; failed deliveries are
// returned to the transport and not retried.
func (s *QuizService) Handle(ctx context.Context, in domain.Inbound) error {
	ev := s.engine.Classify(in)

	unlock, err := s.locks.Lock(ctx, in.User.ID)
	if err != nil {
		return fmt.Errorf("lock user %s: %w", in.User.ID, err)
	}
	defer unlock()

	current, _ := s.sessions.Get(in.User.ID)
	tr := s.engine.Step(current, ev)

	if tr.Store && tr.Session != nil {
		s.sessions.Put(tr.Session)
		if ev.Kind != domain.EventAnswer {
			s.logger.Info("quiz started", "user_id", tr.Session.UserID, "chat_id", tr.Session.ChatID)
		}
	}

	var sendErr error
	for _, msg := range tr.Replies {
		if err := s.sender.Send(ctx, msg); err != nil {
			sendErr = errors.Join(sendErr, fmt.Errorf("send to %s: %w", msg.ChatID, err))
		}
	}

	if tr.Completed != nil {
		err := s.notifier.ReportCompletion(ctx, tr.Completed)
		s.sessions.Delete(tr.Completed.UserID)
		s.logger.Info("quiz completed", "user_id", tr.Completed.UserID, "score", tr.Completed.Score)
		sendErr = errors.Join(sendErr, err)
	}
	return sendErr
}

// ActiveSessions reports how many users are mid-quiz.
func (s *QuizService) ActiveSessions() int {
	return s.sessions.Len()
}
