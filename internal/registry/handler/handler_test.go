package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"curio/internal/identity"
	"curio/internal/ledger"
	"curio/internal/platform/middleware"
	"curio/internal/platform/token"
	"curio/internal/registry/authority"
	registryservice "curio/internal/registry/service"
	"curio/internal/registry/store"
	"curio/pkg/domain"
)

const (
	adminToken   = "secret-token"
	adminAccount = domain.AccountID("admin")
)

type fixture struct {
	router http.Handler
	tokens *token.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	regStore := store.NewInMemory()
	registry := registryservice.New(regStore, identity.NewAllocator(nil))
	auth := authority.New(adminAccount, regStore, nil, logger)
	funds := ledger.NewInMemory()
	tokens := token.NewService("test-signing-key", "curio")

	h := New(registry, auth, funds, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, logger))
		h.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, adminAccount, logger))
		h.RegisterAdmin(r)
	})
	return &fixture{router: r, tokens: tokens}
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
	if !account.IsNil() {
		bearer, err := f.tokens.Issue(account, time.Minute)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/collections", map[string]string{"name": "Art"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/collections", bytes.NewReader([]byte(`{"name":"Art"}`)))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a bad token, got %d", rec.Code)
	}
}

func TestCreateCollectionAndMintViaHandlers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/collections", map[string]string{"name": "Art"}, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating collection, got %d: %s", rec.Code, rec.Body.String())
	}
	var collResp struct {
		CollectionID domain.CollectionID `json:"collection_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&collResp); err != nil {
		t.Fatalf("decode collection response: %v", err)
	}
	if collResp.CollectionID.IsNil() {
		t.Fatalf("expected collection_id in response")
	}

	rec = f.do(t, http.MethodPost, "/collections/"+collResp.CollectionID.String()+"/items",
		map[string]any{"name": "Piece1", "price": 100}, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 minting, got %d: %s", rec.Code, rec.Body.String())
	}
	var mintResp struct {
		TokenID domain.TokenID `json:"token_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&mintResp); err != nil {
		t.Fatalf("decode mint response: %v", err)
	}

	rec = f.do(t, http.MethodGet, "/items/"+mintResp.TokenID.String(), nil, "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching item, got %d", rec.Code)
	}
	var item struct {
		Owner          domain.AccountID `json:"owner"`
		CollectionName string           `json:"collection_name"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode item response: %v", err)
	}
	if item.Owner != "alice" || item.CollectionName != "Art" {
		t.Fatalf("unexpected item view: %+v", item)
	}

	rec = f.do(t, http.MethodGet, "/accounts/alice/items", nil, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing items, got %d", rec.Code)
	}
	var owned struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&owned); err != nil {
		t.Fatalf("decode owned items: %v", err)
	}
	if len(owned.Items) != 1 {
		t.Fatalf("expected one owned item, got %d", len(owned.Items))
	}
}

func TestDomainErrorStatuses(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/collections", map[string]string{"name": ""}, "alice")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on empty name, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodPost, "/collections", map[string]string{"name": "Dup"}, "alice"); rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/collections", map[string]string{"name": "Dup"}, "bob")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate name, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/collections/999999/items", map[string]any{"name": "P", "price": 10}, "alice")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on unknown collection, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/items/0", nil, "alice")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on invalid token id, got %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)

	body := bytes.NewReader([]byte(`{"enabled":true}`))
	req := httptest.NewRequest(http.MethodPut, "/admin/authority/engine", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/admin/authority/engine", bytes.NewReader([]byte(`{"enabled":true}`)))
	req.Header.Set("X-Admin-Token", adminToken)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 granting authority, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/accounts/bob/deposits", bytes.NewReader([]byte(`{"amount":500}`)))
	req.Header.Set("X-Admin-Token", adminToken)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on deposit, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/accounts/bob/deposits", bytes.NewReader([]byte(`{"amount":0}`)))
	req.Header.Set("X-Admin-Token", adminToken)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on zero deposit, got %d", rec.Code)
	}
}
