package publisher

import (
	"context"
	"sync"

	events "curio/pkg/platform/events"
)

// Publisher forwards events to a Sink, either synchronously or through a
// buffered channel drained by a background goroutine. Async mode keeps
// emission off the caller's critical path; Close drains the buffer.
type Publisher struct {
	sink events.Sink

	async bool
	inbox chan events.Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous emission with the
// given channel capacity. When the buffer is full, Emit falls back to
// synchronous appends rather than dropping events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.async = true
		p.inbox = make(chan events.Event, size)
	}
}

func NewPublisher(sink events.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit forwards one event. In async mode the error of the eventual append is
// not observable; emission is fire-and-forget by contract.
func (p *Publisher) Emit(ctx context.Context, event events.Event) error {
	if !p.async {
		return p.sink.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return p.sink.Append(ctx, event)
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Sink failures have nowhere to go in async mode; sinks log their own.
		_ = p.sink.Append(context.Background(), event)
	}
}

// Close stops the background drain after flushing buffered events.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.async {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
