package model

import "time"

// PaymentStatus represents the lifecycle state of a payment claim.
// Claims are created pending and transitioned to verified or failed by
// an out-of-band reconciliation process, never by the request path.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending_verification"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Valid reports whether the status is part of the closed enum.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusVerified || s == PaymentStatusFailed
}

// PaymentMethodUPI is the only supported payment method.
const PaymentMethodUPI = "UPI"

// DefaultCurrency is applied when a claim omits the currency.
const DefaultCurrency = "INR"

// PaymentRequest is a payment claim record in the ledger. The ledger is
// append-only from the request path; status transitions happen through
// the claims admin commands.
type PaymentRequest struct {
	ID            string        `json:"id,omitempty"`
	UserID        string        `json:"user_id"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	PaymentMethod string        `json:"payment_method"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ClaimResult is the outcome of logging a payment claim.
type ClaimResult struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
