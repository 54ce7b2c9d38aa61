package udecimal

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// UDecimal is an exact unsigned fixed-point decimal representing
// significand / 10^exponent. It is used for APY and fee rates where binary
// floating point would silently lose sub-unit precision during settlement.
type UDecimal struct {
	Significand *uint256.Int
	Exponent    uint32
}

// New constructs a decimal from an integer significand and a base-10 exponent,
// e.g. New(12, 2) is 0.12.
func New(significand uint64, exponent uint32) UDecimal {
	return UDecimal{Significand: uint256.NewInt(significand), Exponent: exponent}
}

// FromBytes reconstructs a decimal from its big-endian significand bytes, the
// inverse of Bytes. Persistence uses this pair instead of serializing the
// 256-bit word directly.
func FromBytes(significand []byte, exponent uint32) UDecimal {
	return UDecimal{Significand: new(uint256.Int).SetBytes(significand), Exponent: exponent}
}

// Bytes returns the big-endian significand bytes with leading zeros stripped.
func (d UDecimal) Bytes() []byte {
	return d.significand().Bytes()
}

// Zero returns the zero decimal.
func Zero() UDecimal {
	return UDecimal{Significand: uint256.NewInt(0)}
}

func (d UDecimal) significand() *uint256.Int {
	if d.Significand == nil {
		return uint256.NewInt(0)
	}
	return d.Significand
}

// IsZero reports whether the decimal has a zero significand.
func (d UDecimal) IsZero() bool {
	return d.significand().IsZero()
}

func pow10(exp uint32) *uint256.Int {
	result := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint32(0); i < exp; i++ {
		result.Mul(result, ten)
	}
	return result
}

// Mul computes amount * significand / 10^exponent, multiplying before dividing
// so the quotient never loses precision to an intermediate truncation. The
// intermediate product runs through a 256-bit integer; realistic token
// supplies and rates are nowhere near overflowing it, but an overflowing
// input degrades to big.Int arithmetic rather than wrapping.
func (d UDecimal) Mul(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 || d.IsZero() {
		return big.NewInt(0)
	}
	sig := d.significand()
	value, overflow := uint256.FromBig(amount)
	if !overflow {
		product := new(uint256.Int)
		if _, mulOverflow := product.MulOverflow(value, sig); !mulOverflow {
			product.Div(product, pow10(d.Exponent))
			return product.ToBig()
		}
	}
	wide := new(big.Int).Mul(amount, sig.ToBig())
	return wide.Quo(wide, pow10(d.Exponent).ToBig())
}

// Add returns the sum of two decimals. Exponents are aligned to the larger of
// the two before the significands are added; the significand saturates at the
// 256-bit maximum instead of wrapping.
func (d UDecimal) Add(other UDecimal) UDecimal {
	a, b := d, other
	if a.Exponent < b.Exponent {
		a, b = b, a
	}
	scaled := new(uint256.Int)
	shift := pow10(a.Exponent - b.Exponent)
	if _, overflow := scaled.MulOverflow(b.significand(), shift); overflow {
		return UDecimal{Significand: maxUint256(), Exponent: a.Exponent}
	}
	sum := new(uint256.Int)
	if _, overflow := sum.AddOverflow(a.significand(), scaled); overflow {
		return UDecimal{Significand: maxUint256(), Exponent: a.Exponent}
	}
	return UDecimal{Significand: sum, Exponent: a.Exponent}
}

// Cmp compares two decimals, returning -1, 0 or 1.
func (d UDecimal) Cmp(other UDecimal) int {
	a, b := d, other
	if a.Exponent < b.Exponent {
		return -b.Cmp(a)
	}
	scaled := new(uint256.Int)
	if _, overflow := scaled.MulOverflow(b.significand(), pow10(a.Exponent-b.Exponent)); overflow {
		return -1
	}
	return a.significand().Cmp(scaled)
}

func maxUint256() *uint256.Int {
	max := new(uint256.Int)
	return max.Not(uint256.NewInt(0))
}

// Float64 renders the decimal for display. The conversion is lossy and must
// never feed settlement math.
func (d UDecimal) Float64() float64 {
	sig, _ := new(big.Float).SetInt(d.significand().ToBig()).Float64()
	div := 1.0
	for i := uint32(0); i < d.Exponent; i++ {
		div *= 10
	}
	return sig / div
}

// String renders the decimal as significand and exponent for diagnostics.
func (d UDecimal) String() string {
	return fmt.Sprintf("%se-%d", d.significand().Dec(), d.Exponent)
}
