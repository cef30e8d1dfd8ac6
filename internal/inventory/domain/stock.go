package domain

import "errors"

// ErrInsufficientStock means a reservation would drive stock below zero.
// The ledger rejects it atomically; no other state may have been touched.
var ErrInsufficientStock = errors.New("insufficient stock")
