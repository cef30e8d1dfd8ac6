package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkravets/storefront/internal/identity"
	"github.com/mkravets/storefront/internal/order/application"
	"github.com/mkravets/storefront/internal/order/domain"
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
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Patch("/{orderID}/status", h.updateStatus)
	return r
}

type itemView struct {
	VariantID     string `json:"variant_id"`
	Quantity      int    `json:"quantity"`
	SubTotalCents int64  `json:"subtotal_cents"`
}

type orderView struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	Items         []itemView `json:"items"`
	AmountCents   int64      `json:"amount_cents"`
	DiscountCents int64      `json:"discount_cents"`
	RefundID      string     `json:"refund_id,omitempty"`
	CardBrand     string     `json:"card_brand,omitempty"`
	CardLast4     string     `json:"card_last4,omitempty"`
	EarnedPoints  int        `json:"earned_points"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newOrderView(o domain.Order) orderView {
	view := orderView{
		ID:            o.ID,
		Status:        string(o.Status),
		Items:         make([]itemView, 0, len(o.Items)),
		AmountCents:   o.Payment.AmountCents,
		DiscountCents: o.Payment.DiscountCents,
		RefundID:      o.Payment.RefundID,
		CardBrand:     o.Payment.CardBrand,
		CardLast4:     o.Payment.CardLast4,
		EarnedPoints:  o.EarnedPoints,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, itemView{
			VariantID:     item.VariantID,
			Quantity:      item.Quantity,
			SubTotalCents: item.SubTotalCents,
		})
	}
	return view
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	orders, err := h.service.List(ctx, id, identity.IsAdmin(ctx), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func filterFromQuery(r *http.Request) (application.Filter, error) {
	var f application.Filter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := domain.Status(s)
		if !status.Valid() {
			return f, errors.New("unknown status")
		}
		f.Status = status
	}
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, errors.New("from must be RFC 3339")
		}
		f.From = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, errors.New("to must be RFC 3339")
		}
		f.To = t
	}
	return f, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	o, err := h.service.Get(ctx, chi.URLParam(r, "orderID"), id, identity.IsAdmin(ctx))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	o, err := h.service.Cancel(ctx, chi.URLParam(r, "orderID"), id, identity.IsAdmin(ctx))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(o))
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// updateStatus moves an order along the fulfillment pipeline. Admin only.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	if !identity.IsAdmin(ctx) {
		writeError(w, http.StatusForbidden, "forbidden", "admin role required")
		return
	}

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}
	status := domain.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "unknown status")
		return
	}

	o, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "orderID"), status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(o))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "order does not exist")
	case errors.Is(err, domain.ErrOrderAlreadyCancelled):
		writeError(w, http.StatusConflict, "order_already_cancelled", "order was already cancelled")
	case errors.Is(err, domain.ErrOrderNotCancellable):
		writeError(w, http.StatusConflict, "order_not_cancellable", "order can only be cancelled while pending")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", "status transition not allowed")
	case errors.Is(err, domain.ErrRefundFailed):
		writeError(w, http.StatusPaymentRequired, "refund_failed", "refund could not be issued, order unchanged")
	default:
		h.log.Error("order request failed", "err", err)
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
