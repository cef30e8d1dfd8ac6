package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkravets/storefront/internal/checkout/application"
	"github.com/mkravets/storefront/internal/identity"
	"github.com/mkravets/storefront/internal/payment/processor"
)

const maxWebhookBody = 1 << 16

type Handler struct {
	log           *slog.Logger
	broker        *application.Broker
	finalizer     *application.Finalizer
	webhookSecret string
	tracer        trace.Tracer
}

func NewHandler(log *slog.Logger, broker *application.Broker, finalizer *application.Finalizer, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		broker:        broker,
		finalizer:     finalizer,
		webhookSecret: webhookSecret,
		tracer:        otel.Tracer("checkout-http"),
	}
}

// Routes are the shopper-facing checkout endpoints; the webhook is mounted
// separately, outside the identity middleware.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.startCheckout)
	return r
}

func (h *Handler) startCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "StartCheckout")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "no shopper identity")
		return
	}

	sess, err := h.broker.StartCheckout(ctx, id)
	if err != nil {
		if errors.Is(err, application.ErrEmptyCart) {
			writeError(w, http.StatusConflict, "empty_cart", "cannot check out an empty cart")
			return
		}
		h.log.Error("checkout start failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Webhook receives payment events. The signature check runs over the raw
// body before anything is parsed; an unverifiable request is rejected without
// revealing why.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read body")
		return
	}

	sig := r.Header.Get(processor.SignatureHeader)
	if err := processor.VerifySignature(body, sig, h.webhookSecret, processor.DefaultTolerance, time.Now()); err != nil {
		h.log.Warn("webhook signature rejected", "err", err)
		writeError(w, http.StatusUnauthorized, "signature_invalid", "signature verification failed")
		return
	}

	var ev processor.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed event")
		return
	}

	if err := h.finalizer.HandleEvent(ctx, ev); err != nil {
		// non-2xx makes the processor redeliver
		h.log.Error("webhook processing failed", "event_id", ev.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "event not processed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
