package domain

// Outbox event payloads published after finalization and cancellation.

type OrderFinalized struct {
	OrderID      string `json:"order_id"`
	UserID       string `json:"user_id"`
	Guest        bool   `json:"guest"`
	AmountCents  int64  `json:"amount_cents"`
	EarnedPoints int    `json:"earned_points"`
}

type OrderCancelled struct {
	OrderID  string `json:"order_id"`
	RefundID string `json:"refund_id"`
}
