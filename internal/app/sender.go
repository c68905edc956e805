package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"automatization-bot/internal/domain"
)

// Sender delivers an outbound message through a transport.
type Sender interface {
	Send(ctx context.Context, msg domain.Outbound) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg domain.Outbound) error

func (f SenderFunc) Send(ctx context.Context, msg domain.Outbound) error {
	return f(ctx, msg)
}

// Router picks a transport by chat id prefix and falls back to a default one.
type Router struct {
	mu       sync.RWMutex
	routes   []route
	fallback Sender
}

type route struct {
	prefix string
	sender Sender
}

func NewRouter(fallback Sender) *Router {
	return &Router{fallback: fallback}
}

// Route registers sender for chat ids starting with prefix. Longer prefixes win.
func (r *Router) Route(prefix string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{prefix: prefix, sender: sender})
}

func (r *Router) Send(ctx context.Context, msg domain.Outbound) error {
	r.mu.RLock()
	target := r.fallback
	best := -1
	for _, rt := range r.routes {
		if strings.HasPrefix(msg.ChatID, rt.prefix) && len(rt.prefix) > best {
			target, best = rt.sender, len(rt.prefix)
		}
	}
	r.mu.RUnlock()

	if target == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownChat, msg.ChatID)
	}
	return target.Send(ctx, msg)
}
