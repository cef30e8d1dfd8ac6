package processor

import "errors"

const (
	// EventCheckoutCompleted is the only event type that triggers
	// fulfillment; every other verified type is acknowledged and ignored.
	EventCheckoutCompleted = "checkout.session.completed"

	PaymentStatusPaid = "paid"
)

// Metadata keys attached to a checkout session. The session metadata is the
// only channel by which the asynchronous callback can recover who was
// checking out.
const (
	MetaCartKey        = "cart_key"
	MetaUserID         = "user_id"
	MetaGuest          = "guest"
	MetaPointsConsumed = "points_consumed"
	MetaDiscountCents  = "discount_cents"
)

var ErrPaymentNotConfirmed = errors.New("payment not confirmed by processor")

type LineItem struct {
	Name            string `json:"name"`
	UnitAmountCents int64  `json:"unit_amount"`
	Quantity        int    `json:"quantity"`
}

type SessionParams struct {
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	LineItems   []LineItem        `json:"line_items"`
	Metadata    map[string]string `json:"metadata"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
}

type Card struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// Payment is the processor's payment object; its ID is the transaction id
// used as the idempotency key for order creation.
type Payment struct {
	TransactionID string `json:"id"`
	AmountCents   int64  `json:"amount"`
	Status        string `json:"status"`
	Card          Card   `json:"card"`
}

type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountCents   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
	Payment       Payment           `json:"payment"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Event is the push the processor delivers to the webhook endpoint. Its
// financial fields are never trusted; the session is always re-fetched.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"session_id"`
	} `json:"data"`
}
