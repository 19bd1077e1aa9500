package dedup

import (
	"testing"
	"time"
)

func TestFirstDelivery(t *testing.T) {
	ledger := NewLedger(time.Hour)

	if !ledger.FirstDelivery("k1") {
		t.Fatal("first delivery must pass")
	}
	if ledger.FirstDelivery("k1") {
		t.Fatal("second delivery must be reported as duplicate")
	}
	if !ledger.FirstDelivery("k2") {
		t.Fatal("a different key must pass")
	}
}

func TestFirstDeliveryEmptyKey(t *testing.T) {
	ledger := NewLedger(time.Hour)

	if !ledger.FirstDelivery("") || !ledger.FirstDelivery("") {
		t.Fatal("empty keys must never deduplicate")
	}
	if ledger.Len() != 0 {
		t.Fatal("empty keys must not be retained")
	}
}

func TestFirstDeliveryExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := newLedger(time.Hour, func() time.Time { return now })

	if !ledger.FirstDelivery("k1") {
		t.Fatal("first delivery must pass")
	}

	now = now.Add(30 * time.Minute)
	if ledger.FirstDelivery("k1") {
		t.Fatal("delivery within ttl must be a duplicate")
	}

	now = now.Add(2 * time.Hour)
	if !ledger.FirstDelivery("k1") {
		t.Fatal("delivery after expiry must count as first again")
	}
}

func TestForget(t *testing.T) {
	ledger := NewLedger(time.Hour)

	ledger.FirstDelivery("k1")
	ledger.Forget("k1")
	if !ledger.FirstDelivery("k1") {
		t.Fatal("forgotten key must count as first again")
	}
}

func TestCleanup(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := newLedger(time.Hour, func() time.Time { return now })

	ledger.FirstDelivery("k1")
	ledger.FirstDelivery("k2")

	now = now.Add(30 * time.Minute)
	ledger.FirstDelivery("k3")

	now = now.Add(45 * time.Minute) // k1, k2 expired; k3 still live
	if removed := ledger.Cleanup(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if ledger.Len() != 1 {
		t.Fatalf("expected 1 retained, got %d", ledger.Len())
	}
}
