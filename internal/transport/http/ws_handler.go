package http

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"automatization-bot/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ChatPrefix marks chat ids owned by the web chat transport.
const ChatPrefix = "ws:"

// Handler consumes inbound chat messages.
type Handler interface {
	Handle(ctx context.Context, in domain.Inbound) error
}

// WSHandler is a browser chat surface over WebSocket. It implements app.Sender
// for chat ids starting with ChatPrefix.
type WSHandler struct {
	service  Handler
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// secret signs resume tokens; it lives as long as the in-memory sessions do.
	secret []byte

	mu      sync.RWMutex
	clients map[string]*wsClient
}

type wsClient struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func NewWSHandler(service Handler, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		secret:  secret,
		clients: make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type chatPayload struct {
	Text     string     `json:"text"`
	Keyboard [][]string `json:"keyboard,omitempty"`
	RichText bool       `json:"richText"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Send queues msg for the connection that owns its chat id.
func (h *WSHandler) Send(ctx context.Context, msg domain.Outbound) error {
	h.mu.RLock()
	client, ok := h.clients[msg.ChatID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownChat, msg.ChatID)
	}

	out := outboundMessage[any]{Type: "message", Payload: chatPayload{Text: msg.Text, Keyboard: msg.Keyboard, RichText: msg.RichText}}
	select {
	case client.send <- out:
		return nil
	case <-client.done:
		return fmt.Errorf("%w: %s disconnected", domain.ErrUnknownChat, msg.ChatID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports how many browser chats are open.
func (h *WSHandler) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades HTTP requests to websockets and feeds chat messages to the quiz.
// Query: name (required), handle, and userId plus token from an earlier "joined"
// frame to resume a quiz after reconnecting. Without a valid token a fresh id is
// issued. A resumed connection replaces the previous one for that id.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	displayName := query.Get("name")
	handle := query.Get("handle")
	if displayName == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	userID := query.Get("userId")
	if userID != "" && !h.validToken(userID, query.Get("token")) {
		http.Error(w, "invalid resume token", http.StatusForbidden)
		return
	}
	if userID == "" {
		userID = uuid.NewString()
	}
	chatID := ChatPrefix + userID
	user := domain.User{ID: chatID, DisplayName: displayName, Handle: handle}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := &wsClient{send: make(chan outboundMessage[any], 16), done: make(chan struct{})}
	h.register(chatID, client)
	defer h.unregister(chatID, client)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-client.send:
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Warn("ws write error", "chat_id", chatID, "error", err)
					return
				}
			case <-client.done:
				return
			}
		}
	}()

	ctx := r.Context()
	client.send <- outboundMessage[any]{Type: "joined", Payload: map[string]string{"userId": userID, "token": h.resumeToken(userID)}}
	h.dispatch(ctx, domain.Inbound{User: user, ChatID: chatID, Text: "/start", Command: "start"})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "message":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(client, "invalid message payload")
				continue
			}
			h.dispatch(ctx, domain.Inbound{User: user, ChatID: chatID, Text: payload.Text, Command: parseCommand(payload.Text)})
		default:
			h.sendError(client, "unsupported message type")
		}
	}

	close(client.done)
	<-writerDone
}

func (h *WSHandler) resumeToken(userID string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WSHandler) validToken(userID, token string) bool {
	return hmac.Equal([]byte(token), []byte(h.resumeToken(userID)))
}

func (h *WSHandler) dispatch(ctx context.Context, in domain.Inbound) {
	if err := h.service.Handle(ctx, in); err != nil {
		h.logger.Error("handle message", "user_id", in.User.ID, "error", err)
	}
}

func (h *WSHandler) sendError(client *wsClient, message string) {
	select {
	case client.send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}:
	case <-client.done:
	}
}

func (h *WSHandler) register(chatID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[chatID] = client
}

// unregister removes client unless a newer connection already took over the chat id.
func (h *WSHandler) unregister(chatID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[chatID] == client {
		delete(h.clients, chatID)
	}
}

// parseCommand extracts "start" from "/start" or "/start@bot extra".
func parseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text[1:])
	if len(cmd) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(cmd[0], "@")
	return name
}
