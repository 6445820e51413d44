package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single asynchronous dispatch.
const DefaultTimeout = 5 * time.Second

// Dispatcher delivers one event. Implementations may block; wrap them in Async for fire-and-forget use.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event Event) error

func (f DispatcherFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi delivers each event to every sink concurrently. A failing sink does not stop the others;
// Notify returns the first error.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, event Event) error {
	var g errgroup.Group
	for i, d := range m {
		if d == nil {
			continue
		}
		g.Go(func() error {
			if err := d.Notify(ctx, event); err != nil {
				return fmt.Errorf("sink %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Async runs the wrapped dispatcher in a goroutine with its own timeout so request cancellation
// does not abort delivery. Failures are logged and never returned.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps next. A non-positive timeout uses DefaultTimeout; a nil logger is replaced by a no-op logger.
func NewAsync(next Dispatcher, timeout time.Duration, logger *zap.Logger) *Async {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Async{next: next, timeout: timeout, logger: logger}
}

// Notify schedules delivery and returns nil immediately.
func (a *Async) Notify(_ context.Context, event Event) error {
	if a == nil || a.next == nil {
		return nil
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Notify(ctx, event); err != nil {
			a.logger.Warn("notification: dispatch failed",
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.String("organizer_id", event.OrganizerID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Drain waits for in-flight deliveries or until ctx is done.
func (a *Async) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
