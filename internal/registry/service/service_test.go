package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"curio/internal/identity"
	"curio/internal/registry/store"
	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	events "curio/pkg/platform/events"
	"curio/pkg/platform/events/publisher"
	eventsmemory "curio/pkg/platform/events/store/memory"
	"curio/pkg/requestcontext"
)

type RegistryServiceSuite struct {
	suite.Suite
	service *Service
	store   *store.InMemory
	sink    *eventsmemory.InMemoryStore
	ctx     context.Context
}

func (s *RegistryServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.sink = eventsmemory.NewInMemoryStore()
	s.service = New(s.store, identity.NewAllocator(nil), WithEmitter(publisher.NewPublisher(s.sink), nil))
	s.ctx = requestcontext.WithCaller(context.Background(), "alice")
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) TestCreateCollection() {
	s.Run("creates collection and emits notification", func() {
		id, err := s.service.CreateCollection(s.ctx, "Art")
		s.Require().NoError(err)
		s.NotZero(id)

		collection, err := s.store.FindCollection(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(domain.AccountID("alice"), collection.Creator)

		emitted, _ := s.sink.ListByAction(s.ctx, events.ActionCollectionCreated)
		s.Require().Len(emitted, 1)
		s.Equal(id, emitted[0].CollectionID)
	})

	s.Run("rejects empty name", func() {
		_, err := s.service.CreateCollection(s.ctx, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects oversized name", func() {
		_, err := s.service.CreateCollection(s.ctx, strings.Repeat("x", 101))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects duplicate name", func() {
		_, err := s.service.CreateCollection(s.ctx, "Dup")
		s.Require().NoError(err)
		_, err = s.service.CreateCollection(s.ctx, "Dup")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects anonymous caller", func() {
		_, err := s.service.CreateCollection(context.Background(), "NoCaller")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *RegistryServiceSuite) TestMintNFT() {
	collectionID, err := s.service.CreateCollection(s.ctx, "Art")
	s.Require().NoError(err)

	s.Run("mints item owned by the caller", func() {
		tokenID, err := s.service.MintNFT(s.ctx, collectionID, "Piece1", 100)
		s.Require().NoError(err)
		s.NotZero(tokenID)

		item, err := s.service.GetItem(s.ctx, tokenID)
		s.Require().NoError(err)
		s.Equal(domain.AccountID("alice"), item.Owner)
		s.Equal("Art", item.CollectionName)
		s.Equal(domain.Amount(100), item.MintPrice)

		exists, err := s.service.ItemExists(s.ctx, tokenID)
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("rejects unknown collection", func() {
		_, err := s.service.MintNFT(s.ctx, 999_999_999, "Piece", 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects non-positive price", func() {
		_, err := s.service.MintNFT(s.ctx, collectionID, "Free", 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects empty name", func() {
		_, err := s.service.MintNFT(s.ctx, collectionID, "", 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RegistryServiceSuite) TestIDUniquenessAcrossNamespaces() {
	collectionID, err := s.service.CreateCollection(s.ctx, "Unique")
	s.Require().NoError(err)

	seenTokens := map[domain.TokenID]bool{}
	for i := 0; i < 50; i++ {
		tokenID, err := s.service.MintNFT(s.ctx, collectionID, "Piece", 10)
		s.Require().NoError(err)
		s.False(seenTokens[tokenID], "token id %d allocated twice", tokenID)
		seenTokens[tokenID] = true
	}
}

func (s *RegistryServiceSuite) TestViews() {
	now := time.Now()
	ctx := requestcontext.WithTime(s.ctx, now)

	collectionID, err := s.service.CreateCollection(ctx, "Gallery")
	s.Require().NoError(err)
	tokenID, err := s.service.MintNFT(ctx, collectionID, "Exhibit", 50)
	s.Require().NoError(err)

	s.Run("lists by owner with collection name", func() {
		views, err := s.service.GetItemsByOwner(ctx, "alice")
		s.Require().NoError(err)
		s.Require().NotEmpty(views)
		found := false
		for _, view := range views {
			if view.TokenID == tokenID {
				found = true
				s.Equal("Gallery", view.CollectionName)
			}
		}
		s.True(found)
	})

	s.Run("lists by collection creator", func() {
		views, err := s.service.GetItemsByCollection(ctx, "alice")
		s.Require().NoError(err)
		s.NotEmpty(views)
	})

	s.Run("rejects empty owner", func() {
		_, err := s.service.GetItemsByOwner(ctx, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
