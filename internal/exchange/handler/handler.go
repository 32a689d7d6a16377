package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"curio/internal/exchange/models"
	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

// Service is the exchange surface the handler exposes over HTTP.
type Service interface {
	List(ctx context.Context, tokenID domain.TokenID, price domain.Amount) error
	CancelListing(ctx context.Context, tokenID domain.TokenID) error
	Buy(ctx context.Context, tokenID domain.TokenID, payment domain.Amount) error
	CreateAuction(ctx context.Context, tokenID domain.TokenID, startingBid domain.Amount, duration time.Duration) error
	PlaceBid(ctx context.Context, tokenID domain.TokenID, payment domain.Amount) (models.BidOutcome, error)
	EndAuction(ctx context.Context, tokenID domain.TokenID) error
	FinalizeAuction(ctx context.Context, tokenID domain.TokenID) error
	AuctionStatus(ctx context.Context, tokenID domain.TokenID) (*models.Status, error)
}

// Handler handles exchange endpoints.
type Handler struct {
	logger   *slog.Logger
	exchange Service
}

func New(exchange Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, exchange: exchange}
}

// Register mounts the exchange routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/listings", h.handleList)
	r.Delete("/listings/{tokenID}", h.handleCancelListing)
	r.Post("/listings/{tokenID}/purchase", h.handleBuy)

	r.Post("/auctions", h.handleCreateAuction)
	r.Post("/auctions/{tokenID}/bids", h.handlePlaceBid)
	r.Delete("/auctions/{tokenID}", h.handleEndAuction)
	r.Post("/auctions/{tokenID}/finalize", h.handleFinalizeAuction)
	r.Get("/auctions/{tokenID}", h.handleAuctionStatus)
}

type listRequest struct {
	TokenID domain.TokenID `json:"token_id"`
	Price   domain.Amount  `json:"price"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TokenID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token_id and price are required"))
		return
	}

	if err := h.exchange.List(ctx, req.TokenID, req.Price); err != nil {
		h.serviceError(ctx, w, "failed to create listing", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	if err := h.exchange.CancelListing(ctx, tokenID); err != nil {
		h.serviceError(ctx, w, "failed to cancel listing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paymentRequest struct {
	Payment domain.Amount `json:"payment"`
}

func (h *Handler) handleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.exchange.Buy(ctx, tokenID, req.Payment); err != nil {
		h.serviceError(ctx, w, "purchase failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAuctionRequest struct {
	TokenID         domain.TokenID `json:"token_id"`
	StartingBid     domain.Amount  `json:"starting_bid"`
	DurationSeconds int64          `json:"duration_seconds"`
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TokenID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token_id, starting_bid and duration_seconds are required"))
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	if err := h.exchange.CreateAuction(ctx, req.TokenID, req.StartingBid, duration); err != nil {
		h.serviceError(ctx, w, "failed to create auction", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type bidResponse struct {
	Outcome models.BidOutcome `json:"outcome"`
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	outcome, err := h.exchange.PlaceBid(ctx, tokenID, req.Payment)
	if err != nil {
		h.serviceError(ctx, w, "bid rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bidResponse{Outcome: outcome})
}

func (h *Handler) handleEndAuction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	if err := h.exchange.EndAuction(ctx, tokenID); err != nil {
		h.serviceError(ctx, w, "failed to end auction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFinalizeAuction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	if err := h.exchange.FinalizeAuction(ctx, tokenID); err != nil {
		h.serviceError(ctx, w, "failed to finalize auction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAuctionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, err := domain.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	status, err := h.exchange.AuctionStatus(ctx, tokenID)
	if err != nil {
		h.serviceError(ctx, w, "failed to read auction status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) serviceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
