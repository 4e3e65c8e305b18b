package enums

import "fmt"

// InventoryPolicyKind discriminates the replenishment policy attached to an article.
type InventoryPolicyKind string

const (
	InventoryPolicyFixedLot      InventoryPolicyKind = "fixed_lot"
	InventoryPolicyFixedInterval InventoryPolicyKind = "fixed_interval"
)

var validInventoryPolicyKinds = []InventoryPolicyKind{
	InventoryPolicyFixedLot,
	InventoryPolicyFixedInterval,
}

// String implements fmt.Stringer.
func (k InventoryPolicyKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known InventoryPolicyKind.
func (k InventoryPolicyKind) IsValid() bool {
	for _, candidate := range validInventoryPolicyKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseInventoryPolicyKind converts raw input into an InventoryPolicyKind.
func ParseInventoryPolicyKind(value string) (InventoryPolicyKind, error) {
	for _, candidate := range validInventoryPolicyKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory policy kind %q", value)
}
