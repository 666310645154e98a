package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds bus configuration
type Config struct {
	// Workers is the number of async delivery goroutines. 0 delivers inline.
	Workers int
	// QueueSize bounds the async queue; events are dropped when it is full.
	QueueSize int
	// HandlerTimeout bounds each handler invocation.
	HandlerTimeout time.Duration
}

type job struct {
	ctx context.Context
	env Envelope
}

// Bus is an in-process publish/subscribe dispatcher
type Bus struct {
	handlers   map[string][]Handler
	handlersMu sync.RWMutex

	workers int
	timeout time.Duration
	queue   chan job
	logger  *slog.Logger
	now     func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewBus creates a new event bus
func NewBus(cfg Config, logger *slog.Logger) *Bus {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		handlers: make(map[string][]Handler),
		workers:  cfg.Workers,
		timeout:  cfg.HandlerTimeout,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	if cfg.Workers > 0 {
		b.queue = make(chan job, cfg.QueueSize)
	}
	return b
}

// Subscribe registers h for events named name
func (b *Bus) Subscribe(name string, h Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers ev to every subscriber. It never fails: delivery errors are
// logged. The caller's cancellation does not reach handlers, its values do.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev == nil {
		return
	}

	env := Envelope{
		ID:         uuid.New(),
		OccurredAt: b.now().UTC(),
		Event:      ev,
	}
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	if b.running {
		select {
		case b.queue <- job{ctx: ctx, env: env}:
		default:
			b.logger.Warn("event queue full, dropping event",
				"event", ev.EventName(),
				"event_id", env.ID.String(),
			)
		}
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	b.dispatch(ctx, env)
}

// Start launches the async workers. It is a no-op in inline mode.
// Cancelling ctx stops the bus as Stop does.
func (b *Bus) Start(ctx context.Context) {
	if b.workers <= 0 {
		return
	}

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.run()
	}

	go func() {
		select {
		case <-ctx.Done():
			b.Stop()
		case <-b.stopCh:
		}
	}()

	b.logger.Info("event bus started", "workers", b.workers, "queue_size", cap(b.queue))
}

// Stop stops the workers after draining queued events.
// Every caller waits for the drain to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	stopping := b.running
	if stopping {
		b.running = false
		close(b.stopCh)
	}
	b.mu.Unlock()

	b.wg.Wait()
	if stopping {
		b.logger.Info("event bus stopped")
	}
}

// run is the worker loop
func (b *Bus) run() {
	defer b.wg.Done()

	for {
		select {
		case j := <-b.queue:
			b.dispatch(j.ctx, j.env)
		case <-b.stopCh:
			// Publish no longer enqueues once running is false, so draining terminates
			for {
				select {
				case j := <-b.queue:
					b.dispatch(j.ctx, j.env)
				default:
					return
				}
			}
		}
	}
}

// dispatch invokes every handler of env; one failing handler does not stop the others
func (b *Bus) dispatch(ctx context.Context, env Envelope) {
	name := env.Event.EventName()

	b.handlersMu.RLock()
	handlers := append([]Handler(nil), b.handlers[name]...)
	b.handlersMu.RUnlock()

	for _, h := range handlers {
		if err := b.invoke(ctx, env, h); err != nil {
			b.logger.Error("event handler failed",
				"event", name,
				"event_id", env.ID.String(),
				"error", err,
			)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, env Envelope, h Handler) (err error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h(ctx, env)
}
