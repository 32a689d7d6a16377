package events

import (
	"context"
	"time"

	"curio/pkg/domain"
)

// Action names a notification emitted by the registry or the exchange.
// Delivery is fire-and-forget: emission happens only after the corresponding
// state mutation is committed, and downstream ordering is not guaranteed.
type Action string

const (
	ActionCollectionCreated    Action = "collection_created"
	ActionItemMinted           Action = "item_minted"
	ActionOwnershipTransferred Action = "ownership_transferred"
	ActionListed               Action = "listed"
	ActionListingCancelled     Action = "listing_cancelled"
	ActionBidPlaced            Action = "bid_placed"
	ActionAuctionCreated       Action = "auction_created"
	ActionAuctionEnded         Action = "auction_ended"
	ActionSold                 Action = "sold"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string              `json:"id"`
	Action       Action              `json:"action"`
	Actor        domain.AccountID    `json:"actor,omitempty"`
	Counterparty domain.AccountID    `json:"counterparty,omitempty"`
	TokenID      domain.TokenID      `json:"token_id,omitempty"`
	CollectionID domain.CollectionID `json:"collection_id,omitempty"`
	Amount       domain.Amount       `json:"amount,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// Sink receives committed events. Implementations must tolerate concurrent
// appends; failures are the caller's to log, never to surface to users.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
