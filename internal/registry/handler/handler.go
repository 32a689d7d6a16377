package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"curio/internal/registry/models"
	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

// Service is the registry surface the handler exposes over HTTP.
type Service interface {
	CreateCollection(ctx context.Context, name string) (domain.CollectionID, error)
	MintNFT(ctx context.Context, collectionID domain.CollectionID, name string, price domain.Amount) (domain.TokenID, error)
	GetItemsByOwner(ctx context.Context, owner domain.AccountID) ([]models.ItemView, error)
	GetItemsByCollection(ctx context.Context, creator domain.AccountID) ([]models.ItemView, error)
	GetItem(ctx context.Context, tokenID domain.TokenID) (*models.ItemView, error)
}

// Authority is the admin surface for the transfer allow-list.
type Authority interface {
	SetAuthorized(ctx context.Context, caller domain.AccountID, enabled bool) error
}

// Funds is the admin surface for crediting accounts.
type Funds interface {
	Deposit(ctx context.Context, account domain.AccountID, amount domain.Amount) error
}

// Handler handles registry endpoints.
type Handler struct {
	logger    *slog.Logger
	registry  Service
	authority Authority
	funds     Funds
}

func New(registry Service, authority Authority, funds Funds, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		authority: authority,
		funds:     funds,
	}
}

// Register mounts the caller-facing registry routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/collections", h.handleCreateCollection)
	r.Post("/collections/{collectionID}/items", h.handleMintItem)
	r.Get("/accounts/{address}/items", h.handleItemsByOwner)
	r.Get("/creators/{address}/items", h.handleItemsByCollection)
	r.Get("/items/{tokenID}", h.handleGetItem)
}

// RegisterAdmin mounts the administrative routes; the caller is expected to
// guard them with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/admin/authority/{address}", h.handleSetAuthority)
	r.Post("/accounts/{address}/deposits", h.handleDeposit)
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

type createCollectionResponse struct {
	CollectionID domain.CollectionID `json:"collection_id"`
}

func (h *Handler) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid create collection request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	id, err := h.registry.CreateCollection(ctx, req.Name)
	if err != nil {
		h.serviceError(ctx, w, "failed to create collection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createCollectionResponse{CollectionID: id})
}

type mintItemRequest struct {
	Name  string        `json:"name"`
	Price domain.Amount `json:"price"`
}

type mintItemResponse struct {
	TokenID domain.TokenID `json:"token_id"`
}

func (h *Handler) handleMintItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collectionID, err := domain.ParseCollectionID(chi.URLParam(r, "collectionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid collection id"))
		return
	}

	var req mintItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid mint request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tokenID, err := h.registry.MintNFT(ctx, collectionID, req.Name, req.Price)
	if err != nil {
		h.serviceError(ctx, w, "failed to mint item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, mintItemResponse{TokenID: tokenID})
}

func (h *Handler) handleItemsByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := domain.ParseAccountID(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account address"))
		return
	}

	views, err := h.registry.GetItemsByOwner(ctx, owner)
	if err != nil {
		h.serviceError(ctx, w, "failed to list items by owner", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]models.ItemView{"items": views})
}

func (h *Handler) handleItemsByCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creator, err := domain.ParseAccountID(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account address"))
		return
	}

	views, err := h.registry.GetItemsByCollection(ctx, creator)
	if err != nil {
		h.serviceError(ctx, w, "failed to list items by collection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]models.ItemView{"items": views})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	view, err := h.registry.GetItem(ctx, tokenID)
	if err != nil {
		h.serviceError(ctx, w, "failed to resolve item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

type setAuthorityRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleSetAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := domain.ParseAccountID(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account address"))
		return
	}

	var req setAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid authority request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.authority.SetAuthorized(ctx, account, req.Enabled); err != nil {
		h.serviceError(ctx, w, "failed to update transfer authority", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type depositRequest struct {
	Amount domain.Amount `json:"amount"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := domain.ParseAccountID(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account address"))
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "a positive amount is required"))
		return
	}

	if err := h.funds.Deposit(ctx, account, req.Amount); err != nil {
		h.serviceError(ctx, w, "failed to credit account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx))
}

func (h *Handler) serviceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
	} else {
		h.warn(ctx, msg, err)
	}
	httputil.WriteError(w, err)
}
