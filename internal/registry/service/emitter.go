package service

import (
	"context"

	"github.com/google/uuid"

	"curio/internal/registry/models"
	events "curio/pkg/platform/events"
	"curio/pkg/requestcontext"
)

// Emitter publishes committed events downstream.
type Emitter interface {
	Emit(ctx context.Context, event events.Event) error
}

// Logger is the narrow logging surface the emitter needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// eventEmitter wraps the publisher with fire-and-forget semantics: emission
// happens only after the corresponding state mutation committed, and a
// failed emission is logged, never surfaced to the caller.
type eventEmitter struct {
	logger  Logger
	emitter Emitter
}

func newEventEmitter(logger Logger, emitter Emitter) *eventEmitter {
	return &eventEmitter{logger: logger, emitter: emitter}
}

func (e *eventEmitter) emitCollectionCreated(ctx context.Context, collection *models.Collection) {
	e.emit(ctx, events.Event{
		ID:           uuid.NewString(),
		Action:       events.ActionCollectionCreated,
		Actor:        collection.Creator,
		CollectionID: collection.ID,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emitItemMinted(ctx context.Context, item *models.Item) {
	e.emit(ctx, events.Event{
		ID:           uuid.NewString(),
		Action:       events.ActionItemMinted,
		Actor:        item.Owner,
		TokenID:      item.TokenID,
		CollectionID: item.CollectionID,
		Amount:       item.MintPrice,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emit(ctx context.Context, event events.Event) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.Warn("event emission failed", "action", event.Action, "error", err)
	}
}
