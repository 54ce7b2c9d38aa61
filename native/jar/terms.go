package jar

import "jarvault/udecimal"

// Apy is the yearly rate attached to fixed and flexible terms. When a
// fallback rate is present the product is downgradable: penalized accounts
// accrue at the fallback instead of the default.
type Apy struct {
	Default  udecimal.UDecimal
	Fallback *udecimal.UDecimal
}

// ConstantApy builds an Apy with a single rate.
func ConstantApy(rate udecimal.UDecimal) Apy {
	return Apy{Default: rate}
}

// DowngradableApy builds an Apy that degrades to fallback under penalty.
func DowngradableApy(def, fallback udecimal.UDecimal) Apy {
	return Apy{Default: def, Fallback: &fallback}
}

// Effective resolves the rate for an account, honouring the penalty flag.
func (a Apy) Effective(penalized bool) udecimal.UDecimal {
	if penalized && a.Fallback != nil {
		return *a.Fallback
	}
	return a.Default
}

// TermsKind discriminates the product term variants.
type TermsKind uint8

const (
	TermsFixed TermsKind = iota + 1
	TermsFlexible
	TermsScoreBased
)

// Terms is the tagged union of product term variants. Interest dispatch is
// exhaustive over Kind; adding a variant requires touching the calculator.
type Terms interface {
	Kind() TermsKind
}

// FixedTerms locks principal for LockupTerm milliseconds and accrues at a
// constant or downgradable APY. No interest accrues past maturity.
type FixedTerms struct {
	LockupTerm int64
	Apy        Apy
}

func (FixedTerms) Kind() TermsKind { return TermsFixed }

// FlexibleTerms accrues indefinitely and the entire balance is always liquid.
type FlexibleTerms struct {
	Apy Apy
}

func (FlexibleTerms) Kind() TermsKind { return TermsFlexible }

// ScoreBasedTerms derives the APY from the account's activity score, capped
// per day at ScoreCap, while principal stays locked for LockupTerm.
type ScoreBasedTerms struct {
	ScoreCap   uint64
	LockupTerm int64
}

func (ScoreBasedTerms) Kind() TermsKind { return TermsScoreBased }

// LockupOf returns the lockup duration of the terms, zero for flexible.
func LockupOf(t Terms) int64 {
	switch terms := t.(type) {
	case FixedTerms:
		return terms.LockupTerm
	case ScoreBasedTerms:
		return terms.LockupTerm
	default:
		return 0
	}
}
