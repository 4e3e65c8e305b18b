package enums

import "testing"

func TestParsePurchaseOrderStatus(t *testing.T) {
	for _, status := range PurchaseOrderStatuses() {
		parsed, err := ParsePurchaseOrderStatus(status.String())
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", status, err)
		}
		if parsed != status {
			t.Fatalf("expected %q got %q", status, parsed)
		}
	}
	if _, err := ParsePurchaseOrderStatus("archived"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestPurchaseOrderStatusClassification(t *testing.T) {
	cases := map[PurchaseOrderStatus]struct{ open, terminal bool }{
		PurchaseOrderStatusPending:   {open: true},
		PurchaseOrderStatusSent:      {open: true},
		PurchaseOrderStatusFinalized: {terminal: true},
		PurchaseOrderStatusCancelled: {terminal: true},
	}
	for status, want := range cases {
		if status.IsOpen() != want.open {
			t.Fatalf("%s: expected open=%v", status, want.open)
		}
		if status.IsTerminal() != want.terminal {
			t.Fatalf("%s: expected terminal=%v", status, want.terminal)
		}
	}
	if len(OpenPurchaseOrderStatuses()) != 2 {
		t.Fatalf("expected two open statuses")
	}
}

func TestParseInventoryPolicyKind(t *testing.T) {
	if kind, err := ParseInventoryPolicyKind("fixed_lot"); err != nil || kind != InventoryPolicyFixedLot {
		t.Fatalf("unexpected parse result %q %v", kind, err)
	}
	if _, err := ParseInventoryPolicyKind("min_max"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}
