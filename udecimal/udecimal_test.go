package udecimal

import (
	"math/big"
	"testing"
)

func TestMulMultipliesBeforeDividing(t *testing.T) {
	// 12% of 100,000,000 must be exact.
	rate := New(12, 2)
	got := rate.Mul(big.NewInt(100_000_000))
	if got.Cmp(big.NewInt(12_000_000)) != 0 {
		t.Fatalf("expected 12000000, got %s", got)
	}

	// 0.05% of 999 truncates toward zero without losing the intermediate.
	rate = New(5, 4)
	got = rate.Mul(big.NewInt(999))
	if got.Cmp(big.NewInt(0)) != 0 {
		t.Fatalf("expected 0, got %s", got)
	}
	got = rate.Mul(big.NewInt(10_000))
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected 5, got %s", got)
	}
}

func TestMulZeroInputs(t *testing.T) {
	if got := Zero().Mul(big.NewInt(1_000)); got.Sign() != 0 {
		t.Fatalf("zero rate should yield zero, got %s", got)
	}
	if got := New(1, 0).Mul(nil); got.Sign() != 0 {
		t.Fatalf("nil amount should yield zero, got %s", got)
	}
	if got := New(1, 0).Mul(big.NewInt(-5)); got.Sign() != 0 {
		t.Fatalf("negative amount should yield zero, got %s", got)
	}
}

func TestAddAlignsExponents(t *testing.T) {
	// 0.12 + 0.005 = 0.125
	sum := New(12, 2).Add(New(5, 3))
	if sum.Exponent != 3 {
		t.Fatalf("expected exponent 3, got %d", sum.Exponent)
	}
	if sum.Significand.Uint64() != 125 {
		t.Fatalf("expected significand 125, got %s", sum.Significand)
	}
}

func TestAddSaturatesOnOverflow(t *testing.T) {
	huge := UDecimal{Significand: maxUint256(), Exponent: 0}
	sum := huge.Add(New(1, 0))
	if sum.Significand.Cmp(maxUint256()) != 0 {
		t.Fatalf("expected saturated significand, got %s", sum.Significand)
	}
}

func TestCmp(t *testing.T) {
	if New(12, 2).Cmp(New(120, 3)) != 0 {
		t.Fatal("0.12 should equal 0.120")
	}
	if New(1, 0).Cmp(New(5, 1)) != 1 {
		t.Fatal("1 should exceed 0.5")
	}
	if New(5, 1).Cmp(New(1, 0)) != -1 {
		t.Fatal("0.5 should be below 1")
	}
}

func TestFloat64DisplayOnly(t *testing.T) {
	got := New(12, 2).Float64()
	if got < 0.1199 || got > 0.1201 {
		t.Fatalf("expected ~0.12, got %f", got)
	}
}
