package store

import (
	"context"
	"database/sql"
	"fmt"

	"curio/internal/registry/models"
	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// Postgres persists collections and items in PostgreSQL. This store is pure
// I/O—validation and allocation policy belong in the service. Open the
// database with the pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema returns the DDL this store expects. Applied by integration tests
// and deployment migrations.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS collections (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			creator TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS items (
			token_id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			collection_id BIGINT NOT NULL REFERENCES collections(id),
			owner TEXT NOT NULL,
			mint_price BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS items_owner_idx ON items(owner);
	`
}

func (s *Postgres) CreateCollection(ctx context.Context, collection *models.Collection) error {
	query := `
		INSERT INTO collections (id, name, creator, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		int64(collection.ID), collection.Name, collection.Creator.String(), collection.CreatedAt)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("collection %q: %w", collection.Name, sentinel.ErrConflict)
	}
	return nil
}

func (s *Postgres) FindCollection(ctx context.Context, id domain.CollectionID) (*models.Collection, error) {
	query := `SELECT id, name, creator, created_at FROM collections WHERE id = $1`
	var collection models.Collection
	var rawID int64
	var creator string
	err := s.db.QueryRowContext(ctx, query, int64(id)).
		Scan(&rawID, &collection.Name, &creator, &collection.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find collection: %w", err)
	}
	collection.ID = domain.CollectionID(rawID)
	collection.Creator = domain.AccountID(creator)
	return &collection, nil
}

func (s *Postgres) CollectionIDInUse(id uint64) bool {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM collections WHERE id = $1)`, int64(id)).Scan(&exists)
	if err != nil {
		// Treat probe failures as collisions so the allocator retries.
		return true
	}
	return exists
}

func (s *Postgres) InsertItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (token_id, name, collection_id, owner, mint_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		int64(item.TokenID), item.Name, int64(item.CollectionID), item.Owner.String(), int64(item.MintPrice))
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("token %d: %w", item.TokenID, sentinel.ErrConflict)
	}
	return nil
}

func (s *Postgres) FindItem(ctx context.Context, tokenID domain.TokenID) (*models.Item, error) {
	query := `SELECT token_id, name, collection_id, owner, mint_price FROM items WHERE token_id = $1`
	item, err := scanItem(s.db.QueryRowContext(ctx, query, int64(tokenID)))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

func (s *Postgres) ItemExists(ctx context.Context, tokenID domain.TokenID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE token_id = $1)`, int64(tokenID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("item exists: %w", err)
	}
	return exists, nil
}

func (s *Postgres) TokenIDInUse(id uint64) bool {
	exists, err := s.ItemExists(context.Background(), domain.TokenID(id))
	if err != nil {
		return true
	}
	return exists
}

func (s *Postgres) ListByOwner(ctx context.Context, owner domain.AccountID) ([]models.ItemView, error) {
	query := `
		SELECT i.token_id, i.name, i.collection_id, c.name, i.owner, i.mint_price
		FROM items i JOIN collections c ON c.id = i.collection_id
		WHERE i.owner = $1
	`
	return s.listViews(ctx, query, owner.String())
}

func (s *Postgres) ListByCollectionCreator(ctx context.Context, creator domain.AccountID) ([]models.ItemView, error) {
	query := `
		SELECT i.token_id, i.name, i.collection_id, c.name, i.owner, i.mint_price
		FROM items i JOIN collections c ON c.id = i.collection_id
		WHERE c.creator = $1
	`
	return s.listViews(ctx, query, creator.String())
}

func (s *Postgres) listViews(ctx context.Context, query string, arg string) ([]models.ItemView, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	views := []models.ItemView{}
	for rows.Next() {
		var view models.ItemView
		var tokenID, collectionID, mintPrice int64
		var owner string
		if err := rows.Scan(&tokenID, &view.Name, &collectionID, &view.CollectionName, &owner, &mintPrice); err != nil {
			return nil, fmt.Errorf("scan item view: %w", err)
		}
		view.TokenID = domain.TokenID(tokenID)
		view.CollectionID = domain.CollectionID(collectionID)
		view.Owner = domain.AccountID(owner)
		view.MintPrice = domain.Amount(mintPrice)
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return views, nil
}

func (s *Postgres) FindItemOwner(ctx context.Context, tokenID domain.TokenID) (domain.AccountID, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT owner FROM items WHERE token_id = $1`, int64(tokenID)).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find item owner: %w", err)
	}
	return domain.AccountID(owner), nil
}

func (s *Postgres) ReassignOwner(ctx context.Context, tokenID domain.TokenID, newOwner domain.AccountID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE items SET owner = $1 WHERE token_id = $2`,
		newOwner.String(), int64(tokenID))
	if err != nil {
		return fmt.Errorf("reassign owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reassign owner: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("token %d: %w", tokenID, sentinel.ErrNotFound)
	}
	return nil
}

func scanItem(row *sql.Row) (*models.Item, error) {
	var item models.Item
	var tokenID, collectionID, mintPrice int64
	var owner string
	if err := row.Scan(&tokenID, &item.Name, &collectionID, &owner, &mintPrice); err != nil {
		return nil, err
	}
	item.TokenID = domain.TokenID(tokenID)
	item.CollectionID = domain.CollectionID(collectionID)
	item.Owner = domain.AccountID(owner)
	item.MintPrice = domain.Amount(mintPrice)
	return &item, nil
}
