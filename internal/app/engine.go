package app

import (
	"time"

	"automatization-bot/internal/domain"
)

// Transition is the outcome of feeding one event to the conversation engine.
type Transition struct {
	// Session is the state after the step; nil means the user has no quiz in progress.
	Session *domain.Session
	// Store is set when Session differs from the stored one and must be written back.
	Store bool
	// Replies are sent to the user in order.
	Replies []domain.Outbound
	// Completed carries the final state when the last question was answered.
	// The caller reports it and then deletes the session.
	Completed *domain.Session
}

// Engine is the per-user quiz state machine. Step has no side effects.
type Engine struct {
	bank  domain.QuestionBank
	texts domain.Texts
	now   func() time.Time
}

func NewEngine(bank domain.QuestionBank, texts domain.Texts) *Engine {
	return NewEngineWithClock(bank, texts, time.Now)
}

// NewEngineWithClock allows deterministic session timestamps in tests.
func NewEngineWithClock(bank domain.QuestionBank, texts domain.Texts, now func() time.Time) *Engine {
	return &Engine{bank: bank, texts: texts, now: now}
}

// Bank returns the question bank the engine serves.
func (e *Engine) Bank() domain.QuestionBank {
	return e.bank
}

// Texts returns the copy the engine replies with.
func (e *Engine) Texts() domain.Texts {
	return e.texts
}

// Classify turns a raw inbound message into a tagged event.
// Precedence: bot command, start button, answer token, free text.
func (e *Engine) Classify(in domain.Inbound) domain.Event {
	ev := domain.Event{Kind: domain.EventText, User: in.User, ChatID: in.ChatID, Text: in.Text}
	switch {
	case in.Command == "start" || in.Command == "help":
		ev.Kind = domain.EventCommand
	case in.Text == e.texts.StartButton:
		ev.Kind = domain.EventStart
	default:
		if token, points, ok := e.bank.Points(in.Text); ok {
			ev.Kind = domain.EventAnswer
			ev.Token = token
			ev.Points = points
		}
	}
	return ev
}

// Step computes the next state and replies for session (nil when none) and ev.
func (e *Engine) Step(session *domain.Session, ev domain.Event) Transition {
	switch ev.Kind {
	case domain.EventCommand:
		return Transition{Session: session, Replies: []domain.Outbound{e.greeting(ev.ChatID)}}
	case domain.EventStart:
		return e.start(ev)
	case domain.EventAnswer:
		if session == nil {
			return Transition{Replies: []domain.Outbound{{ChatID: ev.ChatID, Text: e.texts.StartFirst, RichText: true}}}
		}
		return e.answer(session, ev)
	default:
		if session != nil {
			return Transition{Session: session, Replies: []domain.Outbound{e.choose(ev.ChatID)}}
		}
		if e.texts.IsStartPhrase(ev.Text) {
			return e.start(ev)
		}
		return Transition{Replies: []domain.Outbound{e.invite(ev.ChatID)}}
	}
}

func (e *Engine) start(ev domain.Event) Transition {
	session := &domain.Session{
		UserID:      ev.User.ID,
		ChatID:      ev.ChatID,
		DisplayName: ev.User.DisplayName,
		Handle:      ev.User.Handle,
		Answers:     []string{},
		StartedAt:   e.now(),
	}
	return Transition{Session: session, Store: true, Replies: []domain.Outbound{e.question(session)}}
}

func (e *Engine) answer(current *domain.Session, ev domain.Event) Transition {
	session := current.Clone()
	session.Score += ev.Points
	session.Answers = append(session.Answers, ev.Token)
	session.CurrentQuestion++

	if session.CurrentQuestion < len(e.bank.Questions) {
		return Transition{Session: session, Store: true, Replies: []domain.Outbound{e.question(session)}}
	}
	return Transition{Completed: session}
}

func (e *Engine) question(session *domain.Session) domain.Outbound {
	return domain.Outbound{
		ChatID:   session.ChatID,
		Text:     e.bank.Questions[session.CurrentQuestion],
		Keyboard: e.answerKeyboard(),
		RichText: true,
	}
}

func (e *Engine) greeting(chatID string) domain.Outbound {
	return domain.Outbound{ChatID: chatID, Text: e.texts.Greeting, Keyboard: e.StartKeyboard(), RichText: true}
}

func (e *Engine) choose(chatID string) domain.Outbound {
	return domain.Outbound{ChatID: chatID, Text: e.texts.ChooseAnswer, Keyboard: e.answerKeyboard(), RichText: true}
}

func (e *Engine) invite(chatID string) domain.Outbound {
	return domain.Outbound{ChatID: chatID, Text: e.texts.Invite, Keyboard: e.StartKeyboard(), RichText: true}
}

// StartKeyboard is the single "begin quiz" button layout.
func (e *Engine) StartKeyboard() [][]string {
	return [][]string{{e.texts.StartButton}}
}

func (e *Engine) answerKeyboard() [][]string {
	return [][]string{e.bank.Tokens()}
}
