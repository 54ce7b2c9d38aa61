package bank

import (
	"math/big"
	"testing"

	"jarvault/crypto"
)

func testAddr(fill byte) crypto.Address {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(crypto.JarPrefix, raw)
}

func TestVaultRecordsIntent(t *testing.T) {
	v := NewVault()
	now := int64(100)
	v.SetNowFunc(func() int64 { return now })
	to := testAddr(0x01)

	if err := v.Transfer("req-1", to, big.NewInt(500), big.NewInt(5)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	intent, err := v.Take("req-1")
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if !intent.To.Equal(to) || intent.Amount.Int64() != 500 || intent.Fee.Int64() != 5 {
		t.Fatalf("intent = %+v", intent)
	}
	if intent.CreatedAt != 100 {
		t.Fatalf("createdAt = %d, want 100", intent.CreatedAt)
	}

	// An intent settles exactly once.
	if _, err := v.Take("req-1"); err == nil {
		t.Fatal("second take succeeded")
	}
}

func TestVaultRejectsMalformedRequests(t *testing.T) {
	v := NewVault()
	to := testAddr(0x02)

	if err := v.Transfer("", to, big.NewInt(1), nil); err == nil {
		t.Fatal("empty request id accepted")
	}
	if err := v.Transfer("req-1", to, nil, nil); err == nil {
		t.Fatal("nil amount accepted")
	}
	if err := v.Transfer("req-1", to, big.NewInt(-1), nil); err == nil {
		t.Fatal("negative amount accepted")
	}
	if err := v.Transfer("req-1", to, big.NewInt(1), nil); err != nil {
		t.Fatalf("valid transfer: %v", err)
	}
	if err := v.Transfer("req-1", to, big.NewInt(1), nil); err == nil {
		t.Fatal("duplicate request id accepted")
	}
}

func TestVaultPendingOrder(t *testing.T) {
	v := NewVault()
	now := int64(0)
	v.SetNowFunc(func() int64 { now++; return now })
	to := testAddr(0x03)

	for _, id := range []string{"b", "a", "c"} {
		if err := v.Transfer(id, to, big.NewInt(1), nil); err != nil {
			t.Fatalf("transfer %s: %v", id, err)
		}
	}
	pending := v.Pending()
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	if pending[0].RequestID != "b" || pending[1].RequestID != "a" || pending[2].RequestID != "c" {
		t.Fatalf("order = [%s %s %s], want creation order", pending[0].RequestID, pending[1].RequestID, pending[2].RequestID)
	}
}
