package models

import (
	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Item is a uniquely identified digital asset minted into a collection.
//
// Invariants:
//   - TokenID is nonzero and unique, assigned once at mint, immutable
//   - MintPrice is positive and immutable; it acts as the floor for listing
//     prices and auction starting bids
//   - Owner is mutable only through the transfer authority
//   - Items are never destroyed
type Item struct {
	TokenID      domain.TokenID      `json:"token_id"`
	Name         string              `json:"name"`
	CollectionID domain.CollectionID `json:"collection_id"`
	Owner        domain.AccountID    `json:"owner"`
	MintPrice    domain.Amount       `json:"mint_price"`
}

func NewItem(tokenID domain.TokenID, name string, collectionID domain.CollectionID, owner domain.AccountID, mintPrice domain.Amount) (*Item, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if mintPrice.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "mint price must be positive")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return &Item{
		TokenID:      tokenID,
		Name:         name,
		CollectionID: collectionID,
		Owner:        owner,
		MintPrice:    mintPrice,
	}, nil
}

// ItemView is a read-only projection of an item enriched with its
// collection's name. Views are freshly materialized on every read; their
// ordering follows the underlying index, which is unspecified after any
// transfer (swap-remove does not preserve relative order).
type ItemView struct {
	TokenID        domain.TokenID      `json:"token_id"`
	Name           string              `json:"name"`
	CollectionID   domain.CollectionID `json:"collection_id"`
	CollectionName string              `json:"collection_name"`
	Owner          domain.AccountID    `json:"owner"`
	MintPrice      domain.Amount       `json:"mint_price"`
}
