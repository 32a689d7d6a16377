package models

import (
	"time"

	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Auction is a time-boxed ascending sale for one token.
//
// Invariants:
//   - HighestBid is monotone non-decreasing and starts at the starting bid
//   - HighestBidder is set iff a placed bid raised HighestBid
//   - EndTime is fixed at creation; expiry is evaluated lazily on access
type Auction struct {
	TokenID       domain.TokenID   `json:"token_id"`
	Creator       domain.AccountID `json:"creator"`
	HighestBid    domain.Amount    `json:"highest_bid"`
	HighestBidder domain.AccountID `json:"highest_bidder,omitempty"`
	EndTime       time.Time        `json:"end_time"`
}

func NewAuction(tokenID domain.TokenID, creator domain.AccountID, startingBid, mintPrice domain.Amount, duration time.Duration, now time.Time) (*Auction, error) {
	if startingBid.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "starting bid must be positive")
	}
	if startingBid < mintPrice {
		return nil, dErrors.Newf(dErrors.CodeValidation, "starting bid %d is below the mint price %d", startingBid, mintPrice)
	}
	if duration <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "auction duration must be positive")
	}
	return &Auction{
		TokenID:    tokenID,
		Creator:    creator,
		HighestBid: startingBid,
		EndTime:    now.Add(duration),
	}, nil
}

// HasBid reports whether any bid has been recorded.
func (a *Auction) HasBid() bool {
	return !a.HighestBidder.IsNil()
}

// Expired reports whether the auction's window has closed at now.
func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// BidOutcome distinguishes a recorded bid from a bid that arrived after
// expiry and triggered settlement instead.
type BidOutcome string

const (
	// BidOutcomeAccepted means the bid was recorded as the new highest bid.
	BidOutcomeAccepted BidOutcome = "accepted"
	// BidOutcomeSettledLate means the auction had already expired with a
	// winner; the call settled it and the late payment was never taken.
	BidOutcomeSettledLate BidOutcome = "settled"
)

// Status is a read-only projection of an auction's externally visible state.
type Status struct {
	Active        bool             `json:"active"`
	HighestBid    domain.Amount    `json:"highest_bid"`
	HighestBidder domain.AccountID `json:"highest_bidder,omitempty"`
	TimeRemaining time.Duration    `json:"time_remaining"`
}
