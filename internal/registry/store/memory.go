package store

import (
	"context"
	"fmt"
	"sync"

	"curio/internal/registry/models"
	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// InMemory holds collections and items with the secondary indexes the
// registry contract requires: name→collection, owner→tokens, and
// collection-creator→tokens. Index slices are unordered sets: removal uses
// swap-with-last-then-truncate, so consumers must not depend on order.
type InMemory struct {
	mu          sync.RWMutex
	collections map[domain.CollectionID]*models.Collection
	byName      map[string]domain.CollectionID
	byCreator   map[domain.AccountID][]domain.CollectionID

	items          map[domain.TokenID]*models.Item
	tokensByOwner  map[domain.AccountID][]domain.TokenID
	tokensByMinter map[domain.AccountID][]domain.TokenID
}

func NewInMemory() *InMemory {
	return &InMemory{
		collections:    make(map[domain.CollectionID]*models.Collection),
		byName:         make(map[string]domain.CollectionID),
		byCreator:      make(map[domain.AccountID][]domain.CollectionID),
		items:          make(map[domain.TokenID]*models.Item),
		tokensByOwner:  make(map[domain.AccountID][]domain.TokenID),
		tokensByMinter: make(map[domain.AccountID][]domain.TokenID),
	}
}

// CreateCollection inserts a collection if its name and ID are free.
func (s *InMemory) CreateCollection(_ context.Context, collection *models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[collection.Name]; ok {
		return fmt.Errorf("collection name %q: %w", collection.Name, sentinel.ErrConflict)
	}
	if _, ok := s.collections[collection.ID]; ok {
		return fmt.Errorf("collection id %d: %w", collection.ID, sentinel.ErrConflict)
	}
	copied := *collection
	s.collections[collection.ID] = &copied
	s.byName[collection.Name] = collection.ID
	s.byCreator[collection.Creator] = append(s.byCreator[collection.Creator], collection.ID)
	return nil
}

func (s *InMemory) FindCollection(_ context.Context, id domain.CollectionID) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	collection, ok := s.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection %d: %w", id, sentinel.ErrNotFound)
	}
	copied := *collection
	return &copied, nil
}

// CollectionIDInUse is the allocator's used-set probe for collection IDs.
func (s *InMemory) CollectionIDInUse(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[domain.CollectionID(id)]
	return ok
}

// InsertItem records a minted item and indexes it by owner and by the
// creator of its collection.
func (s *InMemory) InsertItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.TokenID]; ok {
		return fmt.Errorf("token %d: %w", item.TokenID, sentinel.ErrConflict)
	}
	collection, ok := s.collections[item.CollectionID]
	if !ok {
		return fmt.Errorf("collection %d: %w", item.CollectionID, sentinel.ErrNotFound)
	}
	copied := *item
	s.items[item.TokenID] = &copied
	s.tokensByOwner[item.Owner] = append(s.tokensByOwner[item.Owner], item.TokenID)
	s.tokensByMinter[collection.Creator] = append(s.tokensByMinter[collection.Creator], item.TokenID)
	return nil
}

func (s *InMemory) FindItem(_ context.Context, tokenID domain.TokenID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[tokenID]
	if !ok {
		return nil, fmt.Errorf("token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (s *InMemory) ItemExists(_ context.Context, tokenID domain.TokenID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[tokenID]
	return ok, nil
}

// TokenIDInUse is the allocator's used-set probe for token IDs.
func (s *InMemory) TokenIDInUse(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[domain.TokenID(id)]
	return ok
}

// ListByOwner materializes enriched views of the owner's items.
func (s *InMemory) ListByOwner(_ context.Context, owner domain.AccountID) ([]models.ItemView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewsLocked(s.tokensByOwner[owner]), nil
}

// ListByCollectionCreator materializes enriched views of every item minted
// into the creator's collections.
func (s *InMemory) ListByCollectionCreator(_ context.Context, creator domain.AccountID) ([]models.ItemView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewsLocked(s.tokensByMinter[creator]), nil
}

func (s *InMemory) viewsLocked(tokenIDs []domain.TokenID) []models.ItemView {
	views := make([]models.ItemView, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		item, ok := s.items[tokenID]
		if !ok {
			continue
		}
		view := models.ItemView{
			TokenID:      item.TokenID,
			Name:         item.Name,
			CollectionID: item.CollectionID,
			Owner:        item.Owner,
			MintPrice:    item.MintPrice,
		}
		if collection, ok := s.collections[item.CollectionID]; ok {
			view.CollectionName = collection.Name
		}
		views = append(views, view)
	}
	return views
}

// FindItemOwner resolves the current owner of a token.
func (s *InMemory) FindItemOwner(_ context.Context, tokenID domain.TokenID) (domain.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[tokenID]
	if !ok {
		return "", fmt.Errorf("token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	return item.Owner, nil
}

// ReassignOwner moves a token between owner indexes and rewrites the item's
// owner field under one lock. The old owner's index entry is removed by
// swapping with the last element and truncating.
func (s *InMemory) ReassignOwner(_ context.Context, tokenID domain.TokenID, newOwner domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[tokenID]
	if !ok {
		return fmt.Errorf("token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	previous := item.Owner
	ids := s.tokensByOwner[previous]
	for i, id := range ids {
		if id == tokenID {
			ids[i] = ids[len(ids)-1]
			s.tokensByOwner[previous] = ids[:len(ids)-1]
			break
		}
	}
	s.tokensByOwner[newOwner] = append(s.tokensByOwner[newOwner], tokenID)
	item.Owner = newOwner
	return nil
}
