package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/mkravets/storefront/internal/cart/application"
	"github.com/mkravets/storefront/internal/checkout/application"
	"github.com/mkravets/storefront/internal/identity"
	orderdomain "github.com/mkravets/storefront/internal/order/domain"
	"github.com/mkravets/storefront/internal/payment/processor"
)

const testSecret = "whsec_test"

type stubProvider struct {
	session processor.Session
}

func (s *stubProvider) CreateCheckoutSession(context.Context, processor.SessionParams) (processor.Session, error) {
	return s.session, nil
}

func (s *stubProvider) GetCheckoutSession(context.Context, string) (processor.Session, error) {
	return s.session, nil
}

type stubRepo struct {
	finalized int
}

func (s *stubRepo) FindByTransactionID(context.Context, string) (string, error) {
	if s.finalized > 0 {
		return "ord_1", nil
	}
	return "", orderdomain.ErrOrderNotFound
}

func (s *stubRepo) Finalize(context.Context, application.FinalizeParams) (string, error) {
	s.finalized++
	return "ord_1", nil
}

type stubCarts struct{}

func (stubCarts) Get(_ context.Context, id identity.Identity) (cartapp.CartView, error) {
	return cartapp.CartView{Identity: id.Key()}, nil
}

func (stubCarts) Invalidate(context.Context, string) {}

type stubDedup struct {
	seen map[string]bool
}

func (s *stubDedup) Key(id string) string { return id }

func (s *stubDedup) Seen(_ context.Context, key string) (bool, error) { return s.seen[key], nil }

func (s *stubDedup) Mark(_ context.Context, key string) error {
	s.seen[key] = true
	return nil
}

func newWebhookHandler(repo *stubRepo) *Handler {
	provider := &stubProvider{session: processor.Session{
		ID:            "cs_1",
		PaymentStatus: processor.PaymentStatusPaid,
		Payment:       processor.Payment{TransactionID: "txn_1", AmountCents: 5_000},
		Metadata: map[string]string{
			processor.MetaCartKey:        "user-1",
			processor.MetaUserID:         "user-1",
			processor.MetaGuest:          "false",
			processor.MetaPointsConsumed: "0",
			processor.MetaDiscountCents:  "0",
		},
	}}
	finalizer := application.NewFinalizer(slog.Default(), provider, repo, stubCarts{}, &stubDedup{seen: map[string]bool{}}, nil)
	return NewHandler(slog.Default(), nil, finalizer, testSecret)
}

func postEvent(t *testing.T, h *Handler, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(processor.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)
	return rec
}

func TestWebhook_SignedEventAccepted(t *testing.T) {
	repo := &stubRepo{}
	h := newWebhookHandler(repo)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"session_id":"cs_1"}}`)
	rec := postEvent(t, h, body, processor.Sign(body, testSecret, time.Now()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.finalized)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	repo := &stubRepo{}
	h := newWebhookHandler(repo)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"session_id":"cs_1"}}`)

	rec := postEvent(t, h, body, processor.Sign(body, "whsec_other", time.Now()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postEvent(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, repo.finalized)
}

func TestWebhook_TamperedBodyRejected(t *testing.T) {
	repo := &stubRepo{}
	h := newWebhookHandler(repo)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"session_id":"cs_1"}}`)
	sig := processor.Sign(body, testSecret, time.Now())
	tampered := bytes.Replace(body, []byte("cs_1"), []byte("cs_2"), 1)

	rec := postEvent(t, h, tampered, sig)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, repo.finalized)
}

func TestWebhook_DuplicateDeliveryStillOK(t *testing.T) {
	repo := &stubRepo{}
	h := newWebhookHandler(repo)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"session_id":"cs_1"}}`)
	sig := processor.Sign(body, testSecret, time.Now())

	assert.Equal(t, http.StatusOK, postEvent(t, h, body, sig).Code)
	assert.Equal(t, http.StatusOK, postEvent(t, h, body, sig).Code)
	assert.Equal(t, 1, repo.finalized)
}
