package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"curio/internal/exchange/models"
	"curio/pkg/platform/sentinel"
)

type ExchangeStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ExchangeStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestExchangeStoreSuite(t *testing.T) {
	suite.Run(t, new(ExchangeStoreSuite))
}

func (s *ExchangeStoreSuite) TestListings() {
	listing := &models.Listing{TokenID: 1, Price: 100, Seller: "alice", CreatedAt: time.Now()}

	s.Run("put and find", func() {
		s.Require().NoError(s.store.PutListing(s.ctx, listing))

		found, err := s.store.FindListing(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(listing.Price, found.Price)
		s.Equal(listing.Seller, found.Seller)
	})

	s.Run("second listing for the same token conflicts", func() {
		err := s.store.PutListing(s.ctx, &models.Listing{TokenID: 1, Price: 200, Seller: "alice"})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("auction on a listed token conflicts", func() {
		err := s.store.PutAuction(s.ctx, &models.Auction{TokenID: 1, Creator: "alice", HighestBid: 100})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("delete removes the record", func() {
		s.Require().NoError(s.store.DeleteListing(s.ctx, 1))
		_, err := s.store.FindListing(s.ctx, 1)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		s.Require().ErrorIs(s.store.DeleteListing(s.ctx, 1), sentinel.ErrNotFound)
	})
}

func (s *ExchangeStoreSuite) TestAuctions() {
	auction := &models.Auction{TokenID: 2, Creator: "alice", HighestBid: 100, EndTime: time.Now().Add(time.Hour)}

	s.Run("put and find", func() {
		s.Require().NoError(s.store.PutAuction(s.ctx, auction))

		found, err := s.store.FindAuction(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal(auction.HighestBid, found.HighestBid)
		s.False(found.HasBid())
	})

	s.Run("listing on an auctioned token conflicts", func() {
		err := s.store.PutListing(s.ctx, &models.Listing{TokenID: 2, Price: 100, Seller: "alice"})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("update records a bid", func() {
		updated := *auction
		updated.HighestBid = 150
		updated.HighestBidder = "bob"
		s.Require().NoError(s.store.UpdateAuction(s.ctx, &updated))

		found, err := s.store.FindAuction(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal(updated.HighestBid, found.HighestBid)
		s.True(found.HasBid())
	})

	s.Run("update of a missing auction fails", func() {
		err := s.store.UpdateAuction(s.ctx, &models.Auction{TokenID: 99, Creator: "alice"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete frees the token", func() {
		s.Require().NoError(s.store.DeleteAuction(s.ctx, 2))

		engaged, err := s.store.Engaged(s.ctx, 2)
		s.Require().NoError(err)
		s.False(engaged)
	})
}
