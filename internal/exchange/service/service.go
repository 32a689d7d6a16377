package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	exchangemetrics "curio/internal/exchange/metrics"
	"curio/internal/exchange/models"
	"curio/internal/ledger"
	registrymodels "curio/internal/registry/models"
	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/sentinel"
	"curio/pkg/requestcontext"
)

// RegistryReader is the registry surface the exchange consumes.
type RegistryReader interface {
	GetItem(ctx context.Context, tokenID domain.TokenID) (*registrymodels.ItemView, error)
}

// Transferrer moves item ownership. The exchange invokes it under its own
// identity, which the administrator must place on the transfer allow-list.
type Transferrer interface {
	Transfer(ctx context.Context, tokenID domain.TokenID, newOwner domain.AccountID) error
}

// Store holds the engine's active listing and auction records.
type Store interface {
	PutListing(ctx context.Context, listing *models.Listing) error
	FindListing(ctx context.Context, tokenID domain.TokenID) (*models.Listing, error)
	DeleteListing(ctx context.Context, tokenID domain.TokenID) error

	PutAuction(ctx context.Context, auction *models.Auction) error
	FindAuction(ctx context.Context, tokenID domain.TokenID) (*models.Auction, error)
	UpdateAuction(ctx context.Context, auction *models.Auction) error
	DeleteAuction(ctx context.Context, tokenID domain.TokenID) error

	Engaged(ctx context.Context, tokenID domain.TokenID) (bool, error)
}

// Service is the exchange engine. Every public operation serializes on one
// engine mutex, so per-token state transitions never interleave. Buyer and
// bidder funds are debited into the engine's escrow account first; money
// leaves escrow only after the internal record mutation is committed, and a
// failed payout compensates every prior effect of the operation.
type Service struct {
	mu sync.Mutex

	store       Store
	registry    RegistryReader
	transferrer Transferrer
	funds       ledger.Ledger
	escrow      domain.AccountID

	emitter *eventEmitter
	metrics *exchangemetrics.Metrics
	tracer  trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

type serviceConfig struct {
	metrics *exchangemetrics.Metrics
	emitter Emitter
	logger  Logger
}

// WithMetrics attaches prometheus metrics to the service.
func WithMetrics(m *exchangemetrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

// WithEmitter attaches a notification emitter to the service.
func WithEmitter(emitter Emitter, logger Logger) Option {
	return func(cfg *serviceConfig) {
		cfg.emitter = emitter
		cfg.logger = logger
	}
}

func New(store Store, registry RegistryReader, transferrer Transferrer, funds ledger.Ledger, escrow domain.AccountID, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		store:       store,
		registry:    registry,
		transferrer: transferrer,
		funds:       funds,
		escrow:      escrow,
		emitter:     newEventEmitter(cfg.logger, cfg.emitter),
		metrics:     cfg.metrics,
		tracer:      otel.Tracer("curio/exchange"),
	}
}

// List offers the caller's token for sale at a fixed price.
func (s *Service) List(ctx context.Context, tokenID domain.TokenID, price domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	item, err := s.resolveItem(ctx, tokenID)
	if err != nil {
		return err
	}
	if item.Owner != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the current owner may list an item")
	}

	listing, err := models.NewListing(tokenID, price, item.MintPrice, caller, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.PutListing(ctx, listing); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeConflict, "token %d already has an active listing or auction", tokenID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store listing")
	}

	s.emitter.emitListed(ctx, listing)
	if s.metrics != nil {
		s.metrics.IncrementListingsCreated()
	}
	return nil
}

// CancelListing withdraws the caller's active listing. Unconditional once
// authorization passes.
func (s *Service) CancelListing(ctx context.Context, tokenID domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.findListing(ctx, tokenID)
	if err != nil {
		return err
	}
	if listing.Seller != requestcontext.Caller(ctx) {
		return dErrors.New(dErrors.CodeUnauthorized, "only the seller may cancel a listing")
	}
	if err := s.store.DeleteListing(ctx, tokenID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete listing")
	}

	s.emitter.emitListingCancelled(ctx, listing)
	return nil
}

// Buy purchases a listed token. The buyer's full payment is debited into
// escrow up front; the listing is deleted and ownership moved before any
// money leaves escrow, so a re-entrant recipient can never observe a stale
// "still listed" state.
func (s *Service) Buy(ctx context.Context, tokenID domain.TokenID, payment domain.Amount) error {
	ctx, span := s.tracer.Start(ctx, "exchange.Buy",
		trace.WithAttributes(attribute.Int64("token_id", int64(tokenID))))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	buyer := requestcontext.Caller(ctx)
	if buyer.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	listing, err := s.findListing(ctx, tokenID)
	if err != nil {
		return err
	}
	if payment < listing.Price {
		return dErrors.Newf(dErrors.CodePayment, "payment %d is below the listing price %d", payment, listing.Price)
	}

	if err := s.debitToEscrow(ctx, buyer, payment); err != nil {
		return err
	}
	if err := s.store.DeleteListing(ctx, tokenID); err != nil {
		s.refundFromEscrow(ctx, buyer, payment)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete listing")
	}

	if err := s.transferrer.Transfer(s.asEngine(ctx), tokenID, buyer); err != nil {
		s.compensate(ctx, func() {
			_ = s.store.PutListing(ctx, listing)
			s.refundFromEscrow(ctx, buyer, payment)
		})
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
	}

	if err := s.payoutFromEscrow(ctx, listing.Seller, listing.Price); err != nil {
		s.compensate(ctx, func() {
			_ = s.transferrer.Transfer(s.asEngine(ctx), tokenID, listing.Seller)
			_ = s.store.PutListing(ctx, listing)
			s.refundFromEscrow(ctx, buyer, payment)
		})
		return err
	}
	// Return the excess above the listing price to the buyer.
	if err := s.payoutFromEscrow(ctx, buyer, payment-listing.Price); err != nil {
		s.compensate(ctx, func() {
			_ = s.funds.Transfer(ctx, listing.Seller, s.escrow, listing.Price)
			_ = s.transferrer.Transfer(s.asEngine(ctx), tokenID, listing.Seller)
			_ = s.store.PutListing(ctx, listing)
			s.refundFromEscrow(ctx, buyer, payment)
		})
		return err
	}

	s.emitter.emitSold(ctx, tokenID, listing.Seller, buyer, listing.Price)
	if s.metrics != nil {
		s.metrics.IncrementSales()
	}
	return nil
}

// CreateAuction opens a time-boxed ascending auction for the caller's token.
func (s *Service) CreateAuction(ctx context.Context, tokenID domain.TokenID, startingBid domain.Amount, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	item, err := s.resolveItem(ctx, tokenID)
	if err != nil {
		return err
	}
	if item.Owner != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the current owner may auction an item")
	}

	auction, err := models.NewAuction(tokenID, caller, startingBid, item.MintPrice, duration, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.PutAuction(ctx, auction); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeConflict, "token %d already has an active listing or auction", tokenID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store auction")
	}

	s.emitter.emitAuctionCreated(ctx, auction)
	if s.metrics != nil {
		s.metrics.IncrementAuctionsCreated()
	}
	return nil
}

// PlaceBid records a new highest bid. Expiry is evaluated lazily first: a
// bid arriving after endTime settles the auction instead of bidding, and
// the late payment is never taken.
func (s *Service) PlaceBid(ctx context.Context, tokenID domain.TokenID, payment domain.Amount) (models.BidOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "exchange.PlaceBid",
		trace.WithAttributes(attribute.Int64("token_id", int64(tokenID))))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	bidder := requestcontext.Caller(ctx)
	if bidder.IsNil() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	auction, err := s.findAuction(ctx, tokenID)
	if err != nil {
		return "", err
	}

	now := requestcontext.Now(ctx)
	if auction.Expired(now) {
		if !auction.HasBid() {
			return "", dErrors.Newf(dErrors.CodeAuctionExpired, "auction for token %d expired with no bids", tokenID)
		}
		if err := s.settle(ctx, auction); err != nil {
			return "", err
		}
		return models.BidOutcomeSettledLate, nil
	}

	item, err := s.resolveItem(ctx, tokenID)
	if err != nil {
		return "", err
	}
	if payment < item.MintPrice {
		return "", dErrors.Newf(dErrors.CodeValidation, "bid %d is below the mint price %d", payment, item.MintPrice)
	}
	if payment <= auction.HighestBid {
		return "", dErrors.Newf(dErrors.CodePayment, "bid %d does not exceed the current highest bid %d", payment, auction.HighestBid)
	}

	if err := s.debitToEscrow(ctx, bidder, payment); err != nil {
		return "", err
	}
	// Refund the outbid bidder before recording, compensating the new
	// bidder's escrow if the refund itself fails.
	if auction.HasBid() {
		if err := s.payoutFromEscrow(ctx, auction.HighestBidder, auction.HighestBid); err != nil {
			s.compensate(ctx, func() { s.refundFromEscrow(ctx, bidder, payment) })
			return "", err
		}
	}

	updated := *auction
	updated.HighestBid = payment
	updated.HighestBidder = bidder
	if err := s.store.UpdateAuction(ctx, &updated); err != nil {
		s.compensate(ctx, func() {
			if auction.HasBid() {
				_ = s.funds.Transfer(ctx, auction.HighestBidder, s.escrow, auction.HighestBid)
			}
			s.refundFromEscrow(ctx, bidder, payment)
		})
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record bid")
	}

	s.emitter.emitBidPlaced(ctx, &updated)
	if s.metrics != nil {
		s.metrics.IncrementBidsPlaced()
	}
	return models.BidOutcomeAccepted, nil
}

// EndAuction cancels an auction early. Creator-only and unconditional once
// authorization passes; any escrowed highest bid is refunded.
func (s *Service) EndAuction(ctx context.Context, tokenID domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.findAuction(ctx, tokenID)
	if err != nil {
		return err
	}
	if auction.Creator != requestcontext.Caller(ctx) {
		return dErrors.New(dErrors.CodeUnauthorized, "only the auction creator may end it")
	}

	if err := s.store.DeleteAuction(ctx, tokenID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete auction")
	}
	if auction.HasBid() {
		s.refundFromEscrow(ctx, auction.HighestBidder, auction.HighestBid)
	}

	s.emitter.emitAuctionEnded(ctx, auction)
	return nil
}

// FinalizeAuction settles an expired auction. Callable by anyone; the
// outcome is identical to the lazy settlement inside PlaceBid.
func (s *Service) FinalizeAuction(ctx context.Context, tokenID domain.TokenID) error {
	ctx, span := s.tracer.Start(ctx, "exchange.FinalizeAuction",
		trace.WithAttributes(attribute.Int64("token_id", int64(tokenID))))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.findAuction(ctx, tokenID)
	if err != nil {
		return err
	}
	if !auction.Expired(requestcontext.Now(ctx)) {
		return dErrors.Newf(dErrors.CodeConflict, "auction for token %d is still open", tokenID)
	}

	item, err := s.resolveItem(ctx, tokenID)
	if err != nil {
		return err
	}
	if auction.HighestBid < item.MintPrice {
		return dErrors.Newf(dErrors.CodePayment, "highest bid %d is below the reserve %d", auction.HighestBid, item.MintPrice)
	}

	if !auction.HasBid() {
		if err := s.store.DeleteAuction(ctx, tokenID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete auction")
		}
		s.emitter.emitAuctionEnded(ctx, auction)
		return nil
	}
	return s.settle(ctx, auction)
}

// AuctionStatus projects an auction's externally visible state. Reads never
// mutate: an expired-but-unsettled record simply reports inactive.
func (s *Service) AuctionStatus(ctx context.Context, tokenID domain.TokenID) (*models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.findAuction(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	status := &models.Status{
		Active:        !auction.Expired(now),
		HighestBid:    auction.HighestBid,
		HighestBidder: auction.HighestBidder,
	}
	if status.Active {
		status.TimeRemaining = auction.EndTime.Sub(now)
	}
	return status, nil
}

// settle pays the creator the winning bid from escrow and hands the token
// to the highest bidder. The record is deleted before money moves; a failed
// hand-off restores the record and the escrowed bid.
func (s *Service) settle(ctx context.Context, auction *models.Auction) error {
	if err := s.store.DeleteAuction(ctx, auction.TokenID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete auction")
	}

	if err := s.transferrer.Transfer(s.asEngine(ctx), auction.TokenID, auction.HighestBidder); err != nil {
		s.compensate(ctx, func() { _ = s.store.PutAuction(ctx, auction) })
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
	}
	if err := s.payoutFromEscrow(ctx, auction.Creator, auction.HighestBid); err != nil {
		s.compensate(ctx, func() {
			_ = s.transferrer.Transfer(s.asEngine(ctx), auction.TokenID, auction.Creator)
			_ = s.store.PutAuction(ctx, auction)
		})
		return err
	}

	s.emitter.emitSold(ctx, auction.TokenID, auction.Creator, auction.HighestBidder, auction.HighestBid)
	if s.metrics != nil {
		s.metrics.IncrementAuctionsSettled()
		s.metrics.IncrementSales()
	}
	return nil
}

func (s *Service) resolveItem(ctx context.Context, tokenID domain.TokenID) (*registrymodels.ItemView, error) {
	item, err := s.registry.GetItem(ctx, tokenID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve item")
	}
	return item, nil
}

func (s *Service) findListing(ctx context.Context, tokenID domain.TokenID) (*models.Listing, error) {
	listing, err := s.store.FindListing(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no active listing for token %d", tokenID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve listing")
	}
	return listing, nil
}

func (s *Service) findAuction(ctx context.Context, tokenID domain.TokenID) (*models.Auction, error) {
	auction, err := s.store.FindAuction(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no active auction for token %d", tokenID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve auction")
	}
	return auction, nil
}

func (s *Service) debitToEscrow(ctx context.Context, from domain.AccountID, amount domain.Amount) error {
	if err := s.funds.Transfer(ctx, from, s.escrow, amount); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			return dErrors.Newf(dErrors.CodePayment, "account %s cannot cover %d", from, amount)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to escrow payment")
	}
	return nil
}

func (s *Service) payoutFromEscrow(ctx context.Context, to domain.AccountID, amount domain.Amount) error {
	if err := s.funds.Transfer(ctx, s.escrow, to, amount); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementSettlementFailures()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to pay out from escrow")
	}
	return nil
}

// refundFromEscrow is compensation-path only; an escrowed amount that was
// just debited is always coverable, so a failure here is an invariant break
// worth logging loudly, not a user error.
func (s *Service) refundFromEscrow(ctx context.Context, to domain.AccountID, amount domain.Amount) {
	if err := s.funds.Transfer(ctx, s.escrow, to, amount); err != nil {
		s.emitter.warn("escrow refund failed", "account", to, "amount", amount, "error", err)
	}
}

func (s *Service) compensate(_ context.Context, undo func()) {
	if s.metrics != nil {
		s.metrics.IncrementSettlementFailures()
	}
	undo()
}

// asEngine stamps the engine's own identity on outgoing transfer calls; the
// authority checks the invoking caller against its allow-list.
func (s *Service) asEngine(ctx context.Context) context.Context {
	return requestcontext.WithCaller(ctx, s.escrow)
}
