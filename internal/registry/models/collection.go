package models

import (
	"time"

	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// MaxNameLength bounds collection and item names.
const MaxNameLength = 100

// Collection groups minted items under a creator.
//
// Invariants:
//   - ID is nonzero and unique, assigned once at creation
//   - Name is non-empty, at most MaxNameLength characters, and unique
//     (name↔ID bijection for the registry's lifetime)
//   - Collections are never deleted
type Collection struct {
	ID        domain.CollectionID `json:"id"`
	Name      string              `json:"name"`
	Creator   domain.AccountID    `json:"creator"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewCollection(id domain.CollectionID, name string, creator domain.AccountID, now time.Time) (*Collection, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if creator.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return &Collection{
		ID:        id,
		Name:      name,
		Creator:   creator,
		CreatedAt: now,
	}, nil
}

// ValidateName enforces the shared name constraints for collections and items.
func ValidateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return dErrors.Newf(dErrors.CodeValidation, "name must be %d characters or less", MaxNameLength)
	}
	return nil
}
