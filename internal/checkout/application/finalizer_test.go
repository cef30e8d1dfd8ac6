package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/mkravets/storefront/internal/cart/application"
	orderdomain "github.com/mkravets/storefront/internal/order/domain"
	"github.com/mkravets/storefront/internal/payment/processor"
)

type fakeFinalizeRepo struct {
	byTransaction map[string]string
	finalized     []FinalizeParams
}

func newFakeFinalizeRepo() *fakeFinalizeRepo {
	return &fakeFinalizeRepo{byTransaction: make(map[string]string)}
}

func (f *fakeFinalizeRepo) FindByTransactionID(_ context.Context, txnID string) (string, error) {
	id, ok := f.byTransaction[txnID]
	if !ok {
		return "", orderdomain.ErrOrderNotFound
	}
	return id, nil
}

func (f *fakeFinalizeRepo) Finalize(_ context.Context, p FinalizeParams) (string, error) {
	if _, ok := f.byTransaction[p.TransactionID]; ok {
		return "", ErrDuplicateTransaction
	}
	f.finalized = append(f.finalized, p)
	f.byTransaction[p.TransactionID] = "ord_1"
	return "ord_1", nil
}

type fakeDedup struct {
	seen   map[string]bool
	marked []string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (f *fakeDedup) Key(eventID string) string { return "idem:webhook:" + eventID }

func (f *fakeDedup) Seen(_ context.Context, key string) (bool, error) {
	return f.seen[key], nil
}

func (f *fakeDedup) Mark(_ context.Context, key string) error {
	f.seen[key] = true
	f.marked = append(f.marked, key)
	return nil
}

func paidSession() processor.Session {
	return processor.Session{
		ID:            "cs_1",
		PaymentStatus: processor.PaymentStatusPaid,
		Payment: processor.Payment{
			TransactionID: "txn_1",
			AmountCents:   11_400,
			Status:        processor.PaymentStatusPaid,
			Card:          processor.Card{Brand: "visa", Last4: "4242"},
		},
		Metadata: map[string]string{
			processor.MetaCartKey:        "user-1",
			processor.MetaUserID:         "user-1",
			processor.MetaGuest:          "false",
			processor.MetaPointsConsumed: "200",
			processor.MetaDiscountCents:  "600",
		},
	}
}

func completedEvent(id string) processor.Event {
	ev := processor.Event{ID: id, Type: processor.EventCheckoutCompleted}
	ev.Data.SessionID = "cs_1"
	return ev
}

func newTestFinalizer(provider *fakeProvider, repo Repository, carts *fakeCarts, dedup *fakeDedup) *Finalizer {
	return NewFinalizer(slog.Default(), provider, repo, carts, dedup, nil)
}

func TestHandleEvent_FinalizesOrder(t *testing.T) {
	provider := &fakeProvider{getSessions: map[string]processor.Session{"cs_1": paidSession()}}
	repo := newFakeFinalizeRepo()
	carts := &fakeCarts{views: map[string]cartapp.CartView{}}
	dedup := newFakeDedup()
	f := newTestFinalizer(provider, repo, carts, dedup)

	require.NoError(t, f.HandleEvent(context.Background(), completedEvent("evt_1")))

	require.Len(t, repo.finalized, 1)
	p := repo.finalized[0]
	assert.Equal(t, "user-1", p.CartKey)
	assert.Equal(t, "txn_1", p.TransactionID)
	assert.EqualValues(t, 11_400, p.AmountCents)
	assert.EqualValues(t, 600, p.DiscountCents)
	assert.Equal(t, 200, p.PointsConsumed)
	assert.Equal(t, 11, p.EarnedPoints, "one point per full ten currency units paid")
	assert.Equal(t, "visa", p.CardBrand)
	assert.Equal(t, "4242", p.CardLast4)

	assert.Equal(t, []string{"user-1"}, carts.invalidated)
	assert.Equal(t, []string{"idem:webhook:evt_1"}, dedup.marked)
}

func TestHandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	repo := newFakeFinalizeRepo()
	f := newTestFinalizer(&fakeProvider{}, repo, &fakeCarts{}, newFakeDedup())

	ev := processor.Event{ID: "evt_1", Type: "checkout.session.expired"}
	require.NoError(t, f.HandleEvent(context.Background(), ev))
	assert.Empty(t, repo.finalized)
}

func TestHandleEvent_RejectsUnpaidSession(t *testing.T) {
	sess := paidSession()
	sess.PaymentStatus = "pending"
	provider := &fakeProvider{getSessions: map[string]processor.Session{"cs_1": sess}}
	repo := newFakeFinalizeRepo()
	dedup := newFakeDedup()
	f := newTestFinalizer(provider, repo, &fakeCarts{}, dedup)

	err := f.HandleEvent(context.Background(), completedEvent("evt_1"))
	assert.ErrorIs(t, err, processor.ErrPaymentNotConfirmed)
	assert.Empty(t, repo.finalized)
	assert.Empty(t, dedup.marked, "failed deliveries must stay unmarked so the processor retries")
}

func TestHandleEvent_DoubleDeliveryCreatesOneOrder(t *testing.T) {
	provider := &fakeProvider{getSessions: map[string]processor.Session{"cs_1": paidSession()}}
	repo := newFakeFinalizeRepo()
	carts := &fakeCarts{views: map[string]cartapp.CartView{}}
	dedup := newFakeDedup()
	f := newTestFinalizer(provider, repo, carts, dedup)

	ev := completedEvent("evt_1")
	require.NoError(t, f.HandleEvent(context.Background(), ev))
	require.NoError(t, f.HandleEvent(context.Background(), ev))

	assert.Len(t, repo.finalized, 1)
	assert.Equal(t, []string{"user-1"}, carts.invalidated, "the duplicate must not touch the cart again")
}

func TestHandleEvent_RedeliveryWithFreshEventID(t *testing.T) {
	// the processor may redeliver the same session under a new event id;
	// the transaction id on the order is what stops the double fulfillment
	provider := &fakeProvider{getSessions: map[string]processor.Session{"cs_1": paidSession()}}
	repo := newFakeFinalizeRepo()
	dedup := newFakeDedup()
	f := newTestFinalizer(provider, repo, &fakeCarts{}, dedup)

	require.NoError(t, f.HandleEvent(context.Background(), completedEvent("evt_1")))
	require.NoError(t, f.HandleEvent(context.Background(), completedEvent("evt_2")))

	assert.Len(t, repo.finalized, 1)
	assert.Contains(t, dedup.marked, "idem:webhook:evt_2")
}

func TestHandleEvent_LostRaceReadsAsSuccess(t *testing.T) {
	provider := &fakeProvider{getSessions: map[string]processor.Session{"cs_1": paidSession()}}
	repo := newFakeFinalizeRepo()
	// simulate the concurrent delivery winning between the lookup and the
	// insert: the repo reports not-found but the insert conflicts
	repo.byTransaction["txn_1"] = "ord_9"
	find := &raceRepo{fakeFinalizeRepo: repo}
	dedup := newFakeDedup()
	f := newTestFinalizer(provider, find, &fakeCarts{}, dedup)

	require.NoError(t, f.HandleEvent(context.Background(), completedEvent("evt_1")))
	assert.Empty(t, repo.finalized)
	assert.Contains(t, dedup.marked, "idem:webhook:evt_1")
}

type raceRepo struct {
	*fakeFinalizeRepo
}

func (r *raceRepo) FindByTransactionID(context.Context, string) (string, error) {
	return "", orderdomain.ErrOrderNotFound
}

func TestHandleEvent_BrokenMetadataFails(t *testing.T) {
	sess := paidSession()
	delete(sess.Metadata, processor.MetaCartKey)
	provider := &fakeProvider{getSessions: map[string]processor.Session{"cs_1": sess}}
	repo := newFakeFinalizeRepo()
	f := newTestFinalizer(provider, repo, &fakeCarts{}, newFakeDedup())

	err := f.HandleEvent(context.Background(), completedEvent("evt_1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, processor.ErrPaymentNotConfirmed)
	assert.Empty(t, repo.finalized)
}
