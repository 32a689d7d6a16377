package models

import (
	"time"

	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Listing offers one token for sale at a fixed price.
//
// Invariants:
//   - Price is positive and at least the item's mint price
//   - At most one active listing per token, and never alongside an auction
type Listing struct {
	TokenID   domain.TokenID   `json:"token_id"`
	Price     domain.Amount    `json:"price"`
	Seller    domain.AccountID `json:"seller"`
	CreatedAt time.Time        `json:"created_at"`
}

func NewListing(tokenID domain.TokenID, price, mintPrice domain.Amount, seller domain.AccountID, now time.Time) (*Listing, error) {
	if price.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "listing price must be positive")
	}
	if price < mintPrice {
		return nil, dErrors.Newf(dErrors.CodeValidation, "listing price %d is below the mint price %d", price, mintPrice)
	}
	return &Listing{
		TokenID:   tokenID,
		Price:     price,
		Seller:    seller,
		CreatedAt: now,
	}, nil
}
