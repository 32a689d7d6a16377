//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"curio/internal/registry/models"
	"curio/internal/registry/store"
	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
	"curio/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(store.Schema())
	s.Require().NoError(err)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "items", "collections"))
}

func (s *PostgresStoreSuite) seedCollection(id domain.CollectionID, name string) *models.Collection {
	collection := &models.Collection{
		ID:        id,
		Name:      name,
		Creator:   "alice",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	s.Require().NoError(s.store.CreateCollection(context.Background(), collection))
	return collection
}

func (s *PostgresStoreSuite) TestCollectionRoundTrip() {
	ctx := context.Background()
	created := s.seedCollection(1, "Art")

	found, err := s.store.FindCollection(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.Name, found.Name)
	s.Equal(created.Creator, found.Creator)

	_, err = s.store.FindCollection(ctx, 999)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.True(s.store.CollectionIDInUse(1))
	s.False(s.store.CollectionIDInUse(2))
}

func (s *PostgresStoreSuite) TestDuplicateCollectionConflicts() {
	s.seedCollection(1, "Art")

	err := s.store.CreateCollection(context.Background(), &models.Collection{
		ID: 2, Name: "Art", Creator: "bob", CreatedAt: time.Now(),
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	err = s.store.CreateCollection(context.Background(), &models.Collection{
		ID: 1, Name: "Other", Creator: "bob", CreatedAt: time.Now(),
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestItemsAndViews() {
	ctx := context.Background()
	collection := s.seedCollection(1, "Art")

	item := &models.Item{TokenID: 42, Name: "Piece1", CollectionID: collection.ID, Owner: "alice", MintPrice: 100}
	s.Require().NoError(s.store.InsertItem(ctx, item))
	s.Require().ErrorIs(s.store.InsertItem(ctx, item), sentinel.ErrConflict)

	exists, err := s.store.ItemExists(ctx, 42)
	s.Require().NoError(err)
	s.True(exists)
	s.True(s.store.TokenIDInUse(42))
	s.False(s.store.TokenIDInUse(43))

	views, err := s.store.ListByOwner(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal("Art", views[0].CollectionName)
	s.Equal(domain.Amount(100), views[0].MintPrice)

	views, err = s.store.ListByCollectionCreator(ctx, "alice")
	s.Require().NoError(err)
	s.Len(views, 1)
}

func (s *PostgresStoreSuite) TestReassignOwner() {
	ctx := context.Background()
	collection := s.seedCollection(1, "Art")
	s.Require().NoError(s.store.InsertItem(ctx, &models.Item{
		TokenID: 42, Name: "Piece1", CollectionID: collection.ID, Owner: "alice", MintPrice: 100,
	}))

	s.Require().NoError(s.store.ReassignOwner(ctx, 42, "bob"))

	owner, err := s.store.FindItemOwner(ctx, 42)
	s.Require().NoError(err)
	s.Equal(domain.AccountID("bob"), owner)

	views, err := s.store.ListByOwner(ctx, "alice")
	s.Require().NoError(err)
	s.Empty(views)

	s.Require().ErrorIs(s.store.ReassignOwner(ctx, 99, "bob"), sentinel.ErrNotFound)
}
