package jar

import (
	"math/big"

	"jarvault/udecimal"
)

// ScoreToAPY converts a total claimable activity score into a yearly rate.
// The conversion curve is configuration supplied by the host, not core logic.
type ScoreToAPY func(totalScore uint64) udecimal.UDecimal

// DefaultScoreToAPY maps one score point to 0.01% APY.
func DefaultScoreToAPY(totalScore uint64) udecimal.UDecimal {
	return udecimal.New(totalScore, 4)
}

// termCalculator is implemented once per Terms variant: it yields the accrual
// window in milliseconds and the effective APY for a single deposit.
type termCalculator interface {
	accrualTerm(d Deposit, since, now int64) int64
	apy(account *Account, d Deposit) udecimal.UDecimal
}

type fixedCalculator struct {
	terms FixedTerms
}

func (c fixedCalculator) accrualTerm(d Deposit, since, now int64) int64 {
	end := d.CreatedAt + c.terms.LockupTerm
	if now < end {
		end = now
	}
	start := since
	if d.CreatedAt > start {
		start = d.CreatedAt
	}
	if end <= start {
		return 0
	}
	return end - start
}

func (c fixedCalculator) apy(account *Account, _ Deposit) udecimal.UDecimal {
	return c.terms.Apy.Effective(account != nil && account.PenaltyApplied)
}

type flexibleCalculator struct {
	terms FlexibleTerms
}

func (c flexibleCalculator) accrualTerm(d Deposit, since, now int64) int64 {
	start := since
	if d.CreatedAt > start {
		start = d.CreatedAt
	}
	if now <= start {
		return 0
	}
	return now - start
}

func (c flexibleCalculator) apy(account *Account, _ Deposit) udecimal.UDecimal {
	return c.terms.Apy.Effective(account != nil && account.PenaltyApplied)
}

// scoreCalculator accrues exactly one day per settlement while the deposit is
// inside its lockup window. The rate comes from the capped claimable score,
// so a deposit with no fresh activity earns nothing. Slots that already paid
// into the jar's cache through a non-claim settlement are excluded via
// settledAt, otherwise a withdraw or restake between claims would credit the
// same day twice.
type scoreCalculator struct {
	terms      ScoreBasedTerms
	scoreToAPY ScoreToAPY
	now        int64
	settledAt  int64
}

func (c scoreCalculator) accrualTerm(d Deposit, _, now int64) int64 {
	if now >= d.CreatedAt+c.terms.LockupTerm {
		return 0
	}
	return MsInDay
}

func (c scoreCalculator) apy(account *Account, d Deposit) udecimal.UDecimal {
	if account == nil || account.Score == nil {
		return udecimal.Zero()
	}
	// A score record that predates the deposit cannot pay interest on it;
	// this guards against backdated activity.
	if account.Score.Updated < d.CreatedAt {
		return udecimal.Zero()
	}
	var total uint64
	for _, dayScore := range account.Score.claimableScoresAfter(c.settledAt, c.now) {
		if dayScore > c.terms.ScoreCap {
			dayScore = c.terms.ScoreCap
		}
		total += dayScore
	}
	if c.scoreToAPY == nil {
		return DefaultScoreToAPY(total)
	}
	return c.scoreToAPY(total)
}

type zeroCalculator struct{}

func (zeroCalculator) accrualTerm(Deposit, int64, int64) int64 { return 0 }
func (zeroCalculator) apy(*Account, Deposit) udecimal.UDecimal { return udecimal.Zero() }

func calculatorFor(p *Product, scoreToAPY ScoreToAPY, now, settledAt int64) termCalculator {
	switch terms := p.Terms.(type) {
	case FixedTerms:
		return fixedCalculator{terms: terms}
	case FlexibleTerms:
		return flexibleCalculator{terms: terms}
	case ScoreBasedTerms:
		return scoreCalculator{terms: terms, scoreToAPY: scoreToAPY, now: now, settledAt: settledAt}
	default:
		return zeroCalculator{}
	}
}

// GetInterest computes the interest owed by a jar at now, together with the
// sub-unit remainder (in principal-milliseconds modulo MsInYear) to carry
// forward. The function is pure: it never mutates the jar.
//
// The remainder carry is what makes claim frequency irrelevant: claiming
// every millisecond accumulates the same total (within one token unit) as a
// single claim at the end of the horizon.
func GetInterest(product *Product, account *Account, j *Jar, now int64, scoreToAPY ScoreToAPY) (*big.Int, uint64) {
	interest := big.NewInt(0)
	var remainder uint64
	if product == nil || j == nil {
		return interest, remainder
	}
	var settledAt int64
	if j.Cache != nil {
		settledAt = j.Cache.ScoreSettledAt
	}
	calc := calculatorFor(product, scoreToAPY, now, settledAt)
	msInYear := big.NewInt(MsInYear)
	for _, d := range j.Deposits {
		since := d.CreatedAt
		if j.Cache != nil {
			since = j.Cache.UpdatedAt
		}
		term := calc.accrualTerm(d, since, now)
		if term <= 0 {
			continue
		}
		yearly := calc.apy(account, d).Mul(d.Principal)
		if yearly.Sign() == 0 {
			continue
		}
		raw := new(big.Int).Mul(big.NewInt(term), yearly)
		rem := new(big.Int)
		quo, _ := new(big.Int).QuoRem(raw, msInYear, rem)
		interest.Add(interest, quo)
		remainder += rem.Uint64()
	}
	remainder += j.ClaimRemainder
	if carried := remainder / uint64(MsInYear); carried > 0 {
		interest.Add(interest, new(big.Int).SetUint64(carried))
	}
	remainder %= uint64(MsInYear)
	if j.Cache != nil && j.Cache.Interest != nil {
		interest.Add(interest, j.Cache.Interest)
	}
	return interest, remainder
}
