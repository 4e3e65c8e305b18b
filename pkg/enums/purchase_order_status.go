package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending   PurchaseOrderStatus = "pending"
	PurchaseOrderStatusSent      PurchaseOrderStatus = "sent"
	PurchaseOrderStatusFinalized PurchaseOrderStatus = "finalized"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusPending,
	PurchaseOrderStatusSent,
	PurchaseOrderStatusFinalized,
	PurchaseOrderStatusCancelled,
}

// PurchaseOrderStatuses lists every known status in lifecycle order.
func PurchaseOrderStatuses() []PurchaseOrderStatus {
	out := make([]PurchaseOrderStatus, len(validPurchaseOrderStatuses))
	copy(out, validPurchaseOrderStatuses)
	return out
}

// OpenPurchaseOrderStatuses are the non-terminal states that count as "in flight".
func OpenPurchaseOrderStatuses() []PurchaseOrderStatus {
	return []PurchaseOrderStatus{PurchaseOrderStatusPending, PurchaseOrderStatusSent}
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the order is still pending or sent.
func (s PurchaseOrderStatus) IsOpen() bool {
	return s == PurchaseOrderStatusPending || s == PurchaseOrderStatusSent
}

// IsTerminal reports whether no further transition is allowed.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusFinalized || s == PurchaseOrderStatusCancelled
}

// Label is the human readable name stored in the status catalog.
func (s PurchaseOrderStatus) Label() string {
	switch s {
	case PurchaseOrderStatusPending:
		return "Pending"
	case PurchaseOrderStatusSent:
		return "Sent"
	case PurchaseOrderStatusFinalized:
		return "Finalized"
	case PurchaseOrderStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
