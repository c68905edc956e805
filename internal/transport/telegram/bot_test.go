package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"automatization-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []url.Values
	fail bool

	// updates is returned by the first getUpdates call; later polls are empty.
	updates []tgbotapi.Update
	polls   int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Quiz","username":"quiz_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sent = append(f.sent, r.PostForm)
		fail := f.fail
		f.mu.Unlock()
		if fail {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		f.mu.Lock()
		f.polls++
		batch := f.updates
		f.updates = nil
		f.mu.Unlock()
		if len(batch) == 0 {
			time.Sleep(10 * time.Millisecond)
			batch = []tgbotapi.Update{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": batch})
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}
}

func newTestBot(t *testing.T, api *fakeAPI) *Bot {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	bot, err := NewBot("TOKEN", Options{Endpoint: server.URL + "/bot%s/%s", Client: server.Client()}, nil)
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return bot
}

func TestSendRendersKeyboardAndParseMode(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api)
	if bot.Username() != "quiz_bot" {
		t.Fatalf("expected getMe username, got %q", bot.Username())
	}

	err := bot.Send(context.Background(), domain.Outbound{
		ChatID:   "42",
		Text:     "<b>Q1</b>",
		Keyboard: [][]string{{"а", "б", "в"}},
		RichText: true,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(api.sent) != 1 {
		t.Fatalf("expected one sendMessage call, got %d", len(api.sent))
	}
	form := api.sent[0]
	if form.Get("chat_id") != "42" || form.Get("text") != "<b>Q1</b>" || form.Get("parse_mode") != "HTML" {
		t.Fatalf("unexpected form %v", form)
	}

	var markup struct {
		Keyboard [][]struct {
			Text string `json:"text"`
		} `json:"keyboard"`
		Resize  bool `json:"resize_keyboard"`
		OneTime bool `json:"one_time_keyboard"`
	}
	if err := json.Unmarshal([]byte(form.Get("reply_markup")), &markup); err != nil {
		t.Fatalf("decode reply markup: %v", err)
	}
	if len(markup.Keyboard) != 1 || len(markup.Keyboard[0]) != 3 || markup.Keyboard[0][1].Text != "б" {
		t.Fatalf("unexpected keyboard %+v", markup.Keyboard)
	}
	if !markup.Resize || !markup.OneTime {
		t.Fatalf("expected resized one-time keyboard, got %+v", markup)
	}
}

func TestSendPlainToChannel(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api)

	if err := bot.Send(context.Background(), domain.Outbound{ChatID: "@results", Text: "summary"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	form := api.sent[0]
	if form.Get("chat_id") != "@results" || form.Get("parse_mode") != "" || form.Get("reply_markup") != "" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestSendReportsAPIError(t *testing.T) {
	api := &fakeAPI{fail: true}
	bot := newTestBot(t, api)

	if err := bot.Send(context.Background(), domain.Outbound{ChatID: "42", Text: "hi"}); err == nil {
		t.Fatalf("expected error from failed sendMessage")
	}
}

func TestSendRejectsUnknownChat(t *testing.T) {
	bot := newTestBot(t, &fakeAPI{})
	if err := bot.Send(context.Background(), domain.Outbound{ChatID: "ws:abc"}); !errors.Is(err, domain.ErrUnknownChat) {
		t.Fatalf("expected unknown chat, got %v", err)
	}
}

func TestInboundFromUpdate(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/start@quiz_bot",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 15}},
		From:     &tgbotapi.User{ID: 7, FirstName: "Anna", LastName: "K", UserName: "anna"},
		Chat:     &tgbotapi.Chat{ID: 70},
	}}

	in, ok := inboundFromUpdate(update)
	if !ok {
		t.Fatalf("expected message update to convert")
	}
	if in.User.ID != "7" || in.ChatID != "70" || in.User.DisplayName != "Anna K" || in.User.Handle != "anna" {
		t.Fatalf("unexpected inbound %+v", in)
	}
	if in.Command != "start" {
		t.Fatalf("expected start command, got %q", in.Command)
	}

	plain, _ := inboundFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "б",
		From: &tgbotapi.User{ID: 7, FirstName: "Anna"},
		Chat: &tgbotapi.Chat{ID: 70},
	}})
	if plain.Command != "" || plain.Text != "б" || plain.User.DisplayName != "Anna" {
		t.Fatalf("unexpected plain inbound %+v", plain)
	}

	if _, ok := inboundFromUpdate(tgbotapi.Update{}); ok {
		t.Fatalf("expected non-message update to be skipped")
	}
}

func (f *fakeAPI) snapshot() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.sent...)
}

func (f *fakeAPI) texts() []string {
	var out []string
	for _, form := range f.snapshot() {
		out = append(out, form.Get("text"))
	}
	return out
}

func (f *fakeAPI) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}
