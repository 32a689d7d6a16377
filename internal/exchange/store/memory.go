package store

import (
	"context"
	"fmt"
	"sync"

	"curio/internal/exchange/models"
	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// InMemory holds active listings and auctions. A token appears in at most
// one of the two maps; the Put methods enforce the exclusion under the
// store lock. Records are stored and returned by value copy.
type InMemory struct {
	mu       sync.RWMutex
	listings map[domain.TokenID]models.Listing
	auctions map[domain.TokenID]models.Auction
}

func NewInMemory() *InMemory {
	return &InMemory{
		listings: make(map[domain.TokenID]models.Listing),
		auctions: make(map[domain.TokenID]models.Auction),
	}
}

func (s *InMemory) PutListing(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engagedLocked(listing.TokenID) {
		return fmt.Errorf("token %d: %w", listing.TokenID, sentinel.ErrConflict)
	}
	s.listings[listing.TokenID] = *listing
	return nil
}

func (s *InMemory) FindListing(_ context.Context, tokenID domain.TokenID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[tokenID]
	if !ok {
		return nil, fmt.Errorf("listing for token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	return &listing, nil
}

func (s *InMemory) DeleteListing(_ context.Context, tokenID domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[tokenID]; !ok {
		return fmt.Errorf("listing for token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	delete(s.listings, tokenID)
	return nil
}

func (s *InMemory) PutAuction(_ context.Context, auction *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engagedLocked(auction.TokenID) {
		return fmt.Errorf("token %d: %w", auction.TokenID, sentinel.ErrConflict)
	}
	s.auctions[auction.TokenID] = *auction
	return nil
}

func (s *InMemory) FindAuction(_ context.Context, tokenID domain.TokenID) (*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	auction, ok := s.auctions[tokenID]
	if !ok {
		return nil, fmt.Errorf("auction for token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	return &auction, nil
}

// UpdateAuction overwrites an existing auction record, used to record bids.
func (s *InMemory) UpdateAuction(_ context.Context, auction *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[auction.TokenID]; !ok {
		return fmt.Errorf("auction for token %d: %w", auction.TokenID, sentinel.ErrNotFound)
	}
	s.auctions[auction.TokenID] = *auction
	return nil
}

func (s *InMemory) DeleteAuction(_ context.Context, tokenID domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[tokenID]; !ok {
		return fmt.Errorf("auction for token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	delete(s.auctions, tokenID)
	return nil
}

// Engaged reports whether the token has an active listing or auction.
func (s *InMemory) Engaged(_ context.Context, tokenID domain.TokenID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engagedLocked(tokenID), nil
}

func (s *InMemory) engagedLocked(tokenID domain.TokenID) bool {
	if _, ok := s.listings[tokenID]; ok {
		return true
	}
	_, ok := s.auctions[tokenID]
	return ok
}
