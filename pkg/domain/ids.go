package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AccountID identifies a caller-controlled account (creators, owners,
// bidders, the exchange escrow). Addresses are opaque, case-insensitive
// strings supplied by the execution environment.
type AccountID string

// ParseAccountID constructs an AccountID from external input.
// Returns an error for empty input; direct casting bypasses validation.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("account address cannot be empty")
	}
	return AccountID(strings.ToLower(s)), nil
}

// String returns the string representation of the account address.
func (a AccountID) String() string {
	return string(a)
}

// IsNil returns true if the account address is empty.
func (a AccountID) IsNil() bool {
	return a == ""
}

// CollectionID identifies a collection. Allocated once in [1, 1000000];
// zero is never a valid collection ID.
type CollectionID uint64

func (c CollectionID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// IsNil returns true for the zero collection ID.
func (c CollectionID) IsNil() bool {
	return c == 0
}

// TokenID identifies a minted item. Allocated once in [1, 999999]; zero is
// never a valid token ID, so existence probes need no id-zero convention.
type TokenID uint64

func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// IsNil returns true for the zero token ID.
func (t TokenID) IsNil() bool {
	return t == 0
}

// ParseTokenID validates and returns a TokenID from external input.
func ParseTokenID(s string) (TokenID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid token id: %q", s)
	}
	return TokenID(v), nil
}

// ParseCollectionID validates and returns a CollectionID from external input.
func ParseCollectionID(s string) (CollectionID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid collection id: %q", s)
	}
	return CollectionID(v), nil
}

// Amount is a monetary value in indivisible base units. All prices, bids
// and balances are Amounts; zero is never a valid price or bid.
type Amount uint64

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// IsZero returns true for the zero amount.
func (a Amount) IsZero() bool {
	return a == 0
}
