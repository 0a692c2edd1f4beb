package enums

import "fmt"

// PaymentStatus describes the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusError     PaymentStatus = "error"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusCanceled,
	PaymentStatusError,
}

// String returns the literal string for the status.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the status is known.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payment can no longer transition.
func (p PaymentStatus) IsTerminal() bool {
	return p != PaymentStatusPending && p.IsValid()
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// MapProviderStatus translates the checkout provider's webhook vocabulary into
// a terminal PaymentStatus. Unknown provider statuses map to error.
func MapProviderStatus(provider string) PaymentStatus {
	switch provider {
	case "success", "paid":
		return PaymentStatusCompleted
	case "failed":
		return PaymentStatusFailed
	case "canceled":
		return PaymentStatusCanceled
	default:
		return PaymentStatusError
	}
}
