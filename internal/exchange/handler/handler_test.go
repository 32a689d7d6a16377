package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	exchangeservice "curio/internal/exchange/service"
	exchangestore "curio/internal/exchange/store"
	"curio/internal/identity"
	"curio/internal/ledger"
	"curio/internal/platform/middleware"
	"curio/internal/platform/token"
	"curio/internal/registry/authority"
	registryservice "curio/internal/registry/service"
	registrystore "curio/internal/registry/store"
	"curio/pkg/domain"
	"curio/pkg/requestcontext"
)

const (
	adminAccount  = domain.AccountID("admin")
	escrowAccount = domain.AccountID("exchange-escrow")
)

type fixture struct {
	router   http.Handler
	tokens   *token.Service
	registry *registryservice.Service
	funds    *ledger.InMemory
	tokenID  domain.TokenID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	regStore := registrystore.NewInMemory()
	registry := registryservice.New(regStore, identity.NewAllocator(nil))
	auth := authority.New(adminAccount, regStore, nil, logger)
	adminCtx := requestcontext.WithCaller(context.Background(), adminAccount)
	if err := auth.SetAuthorized(adminCtx, escrowAccount, true); err != nil {
		t.Fatalf("authorize escrow: %v", err)
	}

	funds := ledger.NewInMemory()
	exchange := exchangeservice.New(exchangestore.NewInMemory(), registry, auth, funds, escrowAccount)
	tokens := token.NewService("test-signing-key", "curio")

	h := New(exchange, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.RequireAuth(tokens, logger))
	h.Register(r)

	f := &fixture{router: r, tokens: tokens, registry: registry, funds: funds}

	sellerCtx := requestcontext.WithCaller(context.Background(), "alice")
	collectionID, err := registry.CreateCollection(sellerCtx, "Art")
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	f.tokenID, err = registry.MintNFT(sellerCtx, collectionID, "Piece1", 100)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return f
}

func (f *fixture) do(t *testing.T, method, path string, payload any, account domain.AccountID) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	bearer, err := f.tokens.Issue(account, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListingLifecycleViaHandlers(t *testing.T) {
	f := newFixture(t)
	if err := f.funds.Deposit(context.Background(), "bob", 200); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/listings", map[string]any{"token_id": f.tokenID, "price": 150}, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 listing, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/listings/"+f.tokenID.String()+"/purchase", map[string]any{"payment": 100}, "bob")
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 underpaying, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/listings/"+f.tokenID.String()+"/purchase", map[string]any{"payment": 200}, "bob")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 purchasing, got %d: %s", rec.Code, rec.Body.String())
	}

	item, err := f.registry.GetItem(context.Background(), f.tokenID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Owner != "bob" {
		t.Fatalf("expected bob to own the token, got %s", item.Owner)
	}

	rec = f.do(t, http.MethodDelete, "/listings/"+f.tokenID.String(), nil, "bob")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 cancelling a consumed listing, got %d", rec.Code)
	}
}

func TestAuctionLifecycleViaHandlers(t *testing.T) {
	f := newFixture(t)
	if err := f.funds.Deposit(context.Background(), "bob", 500); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/auctions",
		map[string]any{"token_id": f.tokenID, "starting_bid": 100, "duration_seconds": 3600}, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating auction, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/auctions/"+f.tokenID.String()+"/bids", map[string]any{"payment": 100}, "bob")
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 on a non-raising bid, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/auctions/"+f.tokenID.String()+"/bids", map[string]any{"payment": 150}, "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 bidding, got %d: %s", rec.Code, rec.Body.String())
	}
	var bid struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&bid); err != nil {
		t.Fatalf("decode bid response: %v", err)
	}
	if bid.Outcome != "accepted" {
		t.Fatalf("expected accepted outcome, got %q", bid.Outcome)
	}

	rec = f.do(t, http.MethodGet, "/auctions/"+f.tokenID.String(), nil, "carol")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading status, got %d", rec.Code)
	}
	var status struct {
		Active        bool             `json:"active"`
		HighestBid    domain.Amount    `json:"highest_bid"`
		HighestBidder domain.AccountID `json:"highest_bidder"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Active || status.HighestBid != 150 || status.HighestBidder != "bob" {
		t.Fatalf("unexpected status: %+v", status)
	}

	rec = f.do(t, http.MethodPost, "/auctions/"+f.tokenID.String()+"/finalize", nil, "carol")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 finalizing an open auction, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/auctions/"+f.tokenID.String(), nil, "bob")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when a non-creator ends the auction, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/auctions/"+f.tokenID.String(), nil, "alice")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 ending the auction, got %d: %s", rec.Code, rec.Body.String())
	}

	balance, err := f.funds.Balance(context.Background(), "bob")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected bob refunded to 500, got %d", balance)
	}
}

func TestUnknownRecords(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/auctions/424242", nil, "alice")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown auction, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/listings/424242/purchase", map[string]any{"payment": 100}, "alice")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown listing, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/listings", map[string]any{"token_id": 0, "price": 100}, "alice")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing token_id, got %d", rec.Code)
	}
}
