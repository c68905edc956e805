package telegram

import (
	"context"
	"sync"

	"automatization-bot/internal/domain"
)

// dispatcher runs one worker per busy user. Messages of a user are handled in
// arrival order; different users proceed in parallel.
type dispatcher struct {
	handle func(domain.Inbound)

	mu     sync.Mutex
	queues map[string][]domain.Inbound // an entry exists while its worker runs
	wg     sync.WaitGroup
}

func newDispatcher(ctx context.Context, h Handler, onErr func(domain.Inbound, error)) *dispatcher {
	return &dispatcher{
		queues: make(map[string][]domain.Inbound),
		handle: func(in domain.Inbound) {
			if err := h.Handle(ctx, in); err != nil {
				onErr(in, err)
			}
		},
	}
}

func (d *dispatcher) dispatch(in domain.Inbound) {
	key := in.User.ID
	d.mu.Lock()
	queue, running := d.queues[key]
	d.queues[key] = append(queue, in)
	if !running {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if !running {
		go d.drain(key)
	}
}

func (d *dispatcher) drain(key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		next := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()

		d.handle(next)
	}
}

// wait blocks until every queued message has been handled.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
