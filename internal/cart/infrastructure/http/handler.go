package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	catalogdomain "github.com/mkravets/storefront/internal/catalog/domain"
	"github.com/mkravets/storefront/internal/cart/application"
	"github.com/mkravets/storefront/internal/cart/domain"
	"github.com/mkravets/storefront/internal/identity"
	invdomain "github.com/mkravets/storefront/internal/inventory/domain"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		tracer:   otel.Tracer("cart-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{variantID}", h.updateItem)
	r.Delete("/items/{variantID}", h.removeItem)
	return r
}

type addItemReq struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type updateItemReq struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}
	view, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}

	view, err := h.service.AddItem(ctx, id, req.VariantID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartItem")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}

	view, err := h.service.UpdateItem(ctx, id, chi.URLParam(r, "variantID"), req.Quantity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	view, err := h.service.RemoveItem(ctx, id, chi.URLParam(r, "variantID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invdomain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", "not enough stock for the requested quantity")
	case errors.Is(err, catalogdomain.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, "variant_not_found", "variant does not exist")
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", "item is not in the cart")
	case errors.Is(err, application.ErrInvalidQuantity):
		writeError(w, http.StatusUnprocessableEntity, "invalid_quantity", "quantity must be at least 1")
	default:
		h.log.Error("cart request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
