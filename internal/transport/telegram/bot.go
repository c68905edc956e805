package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"automatization-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler consumes inbound chat messages.
type Handler interface {
	Handle(ctx context.Context, in domain.Inbound) error
}

// Bot is the Telegram long-polling transport. It also delivers outbound messages.
type Bot struct {
	api         *tgbotapi.BotAPI
	logger      *slog.Logger
	pollTimeout int
	skipPending bool
}

// Options tunes polling behaviour.
type Options struct {
	Debug       bool
	PollTimeout int
	SkipPending bool
	// Endpoint overrides the Bot API URL format, e.g. for a local server or tests.
	Endpoint string
	Client   *http.Client
}

func NewBot(token string, opts Options, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = opts.Debug

	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = 60
	}
	return &Bot{api: api, logger: logger, pollTimeout: timeout, skipPending: opts.SkipPending}, nil
}

// Username is the bot account name reported by getMe.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run polls for updates until ctx is done. Messages of one user are handled
// sequentially in arrival order, different users concurrently.
// The poller is stopped and queued handlers are awaited on every return path.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	offset := 0
	if b.skipPending {
		offset = b.pendingOffset()
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("telegram polling started", "bot", b.api.Self.UserName)

	d := newDispatcher(context.WithoutCancel(ctx), h, func(in domain.Inbound, err error) {
		b.logger.Error("handle message", "user_id", in.User.ID, "chat_id", in.ChatID, "error", err)
	})
	defer d.wait()

	// the updates channel is closed only after StopReceivingUpdates, which must not run twice
	stopPoller := true
	defer func() {
		if stopPoller {
			b.api.StopReceivingUpdates()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				stopPoller = false
				return errors.New("telegram updates channel closed")
			}
			in, ok := inboundFromUpdate(update)
			if !ok {
				continue
			}
			b.logger.Debug("received message", "user_id", in.User.ID, "chat_id", in.ChatID, "text", in.Text)
			d.dispatch(in)
		}
	}
}

// pendingOffset returns the offset that skips updates queued while the bot was offline.
func (b *Bot) pendingOffset() int {
	pending, err := b.api.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err != nil {
		b.logger.Warn("skip pending updates", "error", err)
		return 0
	}
	if len(pending) == 0 {
		return 0
	}
	return pending[len(pending)-1].UpdateID + 1
}

// Send delivers msg; numeric chat ids address users and groups, "@name" addresses channels.
func (b *Bot) Send(_ context.Context, out domain.Outbound) error {
	msg, err := buildMessage(out)
	if err != nil {
		return err
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %s: %w", out.ChatID, err)
	}
	return nil
}

func inboundFromUpdate(update tgbotapi.Update) (domain.Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return domain.Inbound{}, false
	}
	return domain.Inbound{
		User: domain.User{
			ID:          strconv.FormatInt(msg.From.ID, 10),
			DisplayName: fullName(msg.From),
			Handle:      msg.From.UserName,
		},
		ChatID:  strconv.FormatInt(msg.Chat.ID, 10),
		Text:    msg.Text,
		Command: msg.Command(),
	}, true
}

func fullName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func buildMessage(out domain.Outbound) (tgbotapi.MessageConfig, error) {
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(out.ChatID, "@") {
		msg = tgbotapi.NewMessageToChannel(out.ChatID, out.Text)
	} else {
		chatID, err := strconv.ParseInt(out.ChatID, 10, 64)
		if err != nil {
			return msg, fmt.Errorf("%w: %q", domain.ErrUnknownChat, out.ChatID)
		}
		msg = tgbotapi.NewMessage(chatID, out.Text)
	}
	if out.RichText {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if len(out.Keyboard) > 0 {
		msg.ReplyMarkup = replyKeyboard(out.Keyboard)
	}
	return msg, nil
}

func replyKeyboard(layout [][]string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(layout))
	for _, labels := range layout {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}
