package service

import (
	"context"
	"errors"

	"curio/internal/identity"
	registrymetrics "curio/internal/registry/metrics"
	"curio/internal/registry/models"
	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/sentinel"
	"curio/pkg/requestcontext"
)

// Identifier allocation ranges. Collection and token namespaces are
// disjoint by construction; zero is excluded from both so existence is
// never inferred from an id value.
const (
	collectionIDMin = 1
	collectionIDMax = 1_000_000
	tokenIDMin      = 1
	tokenIDMax      = 999_999
)

// Store is the persistence contract the registry service orchestrates.
type Store interface {
	CreateCollection(ctx context.Context, collection *models.Collection) error
	FindCollection(ctx context.Context, id domain.CollectionID) (*models.Collection, error)
	CollectionIDInUse(id uint64) bool

	InsertItem(ctx context.Context, item *models.Item) error
	FindItem(ctx context.Context, tokenID domain.TokenID) (*models.Item, error)
	ItemExists(ctx context.Context, tokenID domain.TokenID) (bool, error)
	TokenIDInUse(id uint64) bool

	ListByOwner(ctx context.Context, owner domain.AccountID) ([]models.ItemView, error)
	ListByCollectionCreator(ctx context.Context, creator domain.AccountID) ([]models.ItemView, error)
}

// Service orchestrates collection and item lifecycle: identifier
// allocation, validation, indexing, and notification emission.
type Service struct {
	store   Store
	alloc   *identity.Allocator
	emitter *eventEmitter
	metrics *registrymetrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

type serviceConfig struct {
	metrics *registrymetrics.Metrics
	emitter Emitter
	logger  Logger
}

// WithMetrics attaches prometheus metrics to the service.
func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

// WithEmitter attaches a notification emitter to the service.
func WithEmitter(emitter Emitter, logger Logger) Option {
	return func(cfg *serviceConfig) {
		cfg.emitter = emitter
		cfg.logger = logger
	}
}

func New(store Store, alloc *identity.Allocator, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		store:   store,
		alloc:   alloc,
		emitter: newEventEmitter(cfg.logger, cfg.emitter),
		metrics: cfg.metrics,
	}
}

// CreateCollection registers a new named collection owned by the caller.
// The result is durable and immutable; collections are never deleted.
func (s *Service) CreateCollection(ctx context.Context, name string) (domain.CollectionID, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if err := models.ValidateName(name); err != nil {
		return 0, err
	}

	id, err := s.alloc.Allocate(caller, s.store.CollectionIDInUse, collectionIDMin, collectionIDMax)
	if err != nil {
		s.incrementAllocatorFailures(err)
		return 0, err
	}

	collection, err := models.NewCollection(domain.CollectionID(id), name, caller, requestcontext.Now(ctx))
	if err != nil {
		return 0, err
	}
	if err := s.store.CreateCollection(ctx, collection); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.Newf(dErrors.CodeConflict, "collection name %q is already registered", name)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create collection")
	}

	s.emitter.emitCollectionCreated(ctx, collection)
	if s.metrics != nil {
		s.metrics.IncrementCollectionsCreated()
	}
	return collection.ID, nil
}

// MintNFT creates a new item inside an existing collection. The caller
// becomes the initial owner; the token ID is assigned once and never reused.
func (s *Service) MintNFT(ctx context.Context, collectionID domain.CollectionID, name string, price domain.Amount) (domain.TokenID, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	if _, err := s.store.FindCollection(ctx, collectionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.Newf(dErrors.CodeNotFound, "collection %d does not exist", collectionID)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve collection")
	}

	id, err := s.alloc.Allocate(caller, s.store.TokenIDInUse, tokenIDMin, tokenIDMax)
	if err != nil {
		s.incrementAllocatorFailures(err)
		return 0, err
	}

	item, err := models.NewItem(domain.TokenID(id), name, collectionID, caller, price)
	if err != nil {
		return 0, err
	}
	if err := s.store.InsertItem(ctx, item); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert item")
	}

	s.emitter.emitItemMinted(ctx, item)
	if s.metrics != nil {
		s.metrics.IncrementItemsMinted()
	}
	return item.TokenID, nil
}

// GetItemsByOwner materializes a read-only view of the owner's items.
// Ordering is unspecified after any transfer.
func (s *Service) GetItemsByOwner(ctx context.Context, owner domain.AccountID) ([]models.ItemView, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner address is required")
	}
	views, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items by owner")
	}
	return views, nil
}

// GetItemsByCollection materializes a read-only view of every item minted
// into the creator's collections.
func (s *Service) GetItemsByCollection(ctx context.Context, creator domain.AccountID) ([]models.ItemView, error) {
	if creator.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "creator address is required")
	}
	views, err := s.store.ListByCollectionCreator(ctx, creator)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items by collection creator")
	}
	return views, nil
}

// ItemExists probes whether a token has been minted.
func (s *Service) ItemExists(ctx context.Context, tokenID domain.TokenID) (bool, error) {
	exists, err := s.store.ItemExists(ctx, tokenID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to probe item existence")
	}
	return exists, nil
}

// GetItem resolves a single item with its collection name. This is part of
// the contract surface the exchange consumes.
func (s *Service) GetItem(ctx context.Context, tokenID domain.TokenID) (*models.ItemView, error) {
	item, err := s.store.FindItem(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "token %d does not exist", tokenID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve item")
	}
	view := models.ItemView{
		TokenID:      item.TokenID,
		Name:         item.Name,
		CollectionID: item.CollectionID,
		Owner:        item.Owner,
		MintPrice:    item.MintPrice,
	}
	if collection, err := s.store.FindCollection(ctx, item.CollectionID); err == nil {
		view.CollectionName = collection.Name
	}
	return &view, nil
}

func (s *Service) incrementAllocatorFailures(err error) {
	if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeExhausted) {
		s.metrics.IncrementAllocatorFailures()
	}
}
