package service

import (
	"context"

	"github.com/google/uuid"

	exchangemodels "curio/internal/exchange/models"
	"curio/pkg/domain"
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

// eventEmitter mirrors the registry's fire-and-forget emission: events go
// out only after the corresponding state mutation committed, and failures
// are logged rather than surfaced.
type eventEmitter struct {
	logger  Logger
	emitter Emitter
}

func newEventEmitter(logger Logger, emitter Emitter) *eventEmitter {
	return &eventEmitter{logger: logger, emitter: emitter}
}

func (e *eventEmitter) emitListed(ctx context.Context, listing *exchangemodels.Listing) {
	e.emit(ctx, events.Event{
		ID:        uuid.NewString(),
		Action:    events.ActionListed,
		Actor:     listing.Seller,
		TokenID:   listing.TokenID,
		Amount:    listing.Price,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emitListingCancelled(ctx context.Context, listing *exchangemodels.Listing) {
	e.emit(ctx, events.Event{
		ID:        uuid.NewString(),
		Action:    events.ActionListingCancelled,
		Actor:     listing.Seller,
		TokenID:   listing.TokenID,
		Amount:    listing.Price,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emitAuctionCreated(ctx context.Context, auction *exchangemodels.Auction) {
	e.emit(ctx, events.Event{
		ID:        uuid.NewString(),
		Action:    events.ActionAuctionCreated,
		Actor:     auction.Creator,
		TokenID:   auction.TokenID,
		Amount:    auction.HighestBid,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emitBidPlaced(ctx context.Context, auction *exchangemodels.Auction) {
	e.emit(ctx, events.Event{
		ID:           uuid.NewString(),
		Action:       events.ActionBidPlaced,
		Actor:        auction.HighestBidder,
		Counterparty: auction.Creator,
		TokenID:      auction.TokenID,
		Amount:       auction.HighestBid,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emitAuctionEnded(ctx context.Context, auction *exchangemodels.Auction) {
	e.emit(ctx, events.Event{
		ID:        uuid.NewString(),
		Action:    events.ActionAuctionEnded,
		Actor:     auction.Creator,
		TokenID:   auction.TokenID,
		Amount:    auction.HighestBid,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) emitSold(ctx context.Context, tokenID domain.TokenID, seller, buyer domain.AccountID, amount domain.Amount) {
	e.emit(ctx, events.Event{
		ID:           uuid.NewString(),
		Action:       events.ActionSold,
		Actor:        seller,
		Counterparty: buyer,
		TokenID:      tokenID,
		Amount:       amount,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	})
}

func (e *eventEmitter) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *eventEmitter) emit(ctx context.Context, event events.Event) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.Warn("event emission failed", "action", event.Action, "error", err)
	}
}
