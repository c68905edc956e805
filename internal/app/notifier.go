package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"automatization-bot/internal/domain"
)

// Notifier delivers the end-of-quiz messages to the user and the administrator.
type Notifier struct {
	sender      Sender
	adminChatID string
	bank        domain.QuestionBank
	texts       domain.Texts
	keyboard    [][]string
	logger      *slog.Logger
}

func NewNotifier(sender Sender, adminChatID string, engine *Engine, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:      sender,
		adminChatID: adminChatID,
		bank:        engine.Bank(),
		texts:       engine.Texts(),
		keyboard:    engine.StartKeyboard(),
		logger:      logger,
	}
}

// ReportCompletion sends the result to the user and a summary to the administrator.
// Only the user delivery error is returned; the admin summary is best-effort.
func (n *Notifier) ReportCompletion(ctx context.Context, session *domain.Session) error {
	userErr := n.sender.Send(ctx, n.ResultMessage(session))
	if userErr != nil {
		userErr = fmt.Errorf("send result to %s: %w", session.ChatID, userErr)
	}

	if err := n.sender.Send(ctx, n.AdminMessage(session)); err != nil {
		n.logger.Error("admin notification failed", "admin_chat_id", n.adminChatID, "user_id", session.UserID, "error", err)
	} else {
		n.logger.Info("result sent to admin", "admin_chat_id", n.adminChatID, "user_id", session.UserID)
	}
	return userErr
}

// ResultMessage formats the user-facing result for the final session state.
func (n *Notifier) ResultMessage(session *domain.Session) domain.Outbound {
	var b strings.Builder
	b.WriteString(n.texts.ResultHeader)
	b.WriteString("\n\n")
	if description, ok := n.bank.Classify(session.Score); ok {
		b.WriteString(description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, n.texts.ScoreLine, session.Score)
	b.WriteString("\n\n")
	b.WriteString(n.texts.CallToAction)
	b.WriteString("\n\n")
	b.WriteString(n.texts.Contact)

	return domain.Outbound{
		ChatID:   session.ChatID,
		Text:     b.String(),
		Keyboard: n.keyboard,
		RichText: true,
	}
}

// AdminMessage formats the administrator summary. It is sent as plain text
// because names and handles are user-controlled.
func (n *Notifier) AdminMessage(session *domain.Session) domain.Outbound {
	handle := session.Handle
	if handle == "" {
		handle = n.texts.NoHandle
	}
	lines := []string{
		n.texts.AdminHeader,
		"",
		fmt.Sprintf(n.texts.AdminUser, handle),
		fmt.Sprintf(n.texts.AdminID, session.UserID),
		fmt.Sprintf(n.texts.AdminName, session.DisplayName),
		fmt.Sprintf(n.texts.AdminScore, session.Score),
		fmt.Sprintf(n.texts.AdminAnswers, strings.Join(session.Answers, n.texts.AnswerSeparator)),
	}
	return domain.Outbound{ChatID: n.adminChatID, Text: strings.Join(lines, "\n")}
}
