package jar

import (
	"math/big"
	"sort"
)

// AddDeposit appends a new principal lot. Validation (cap, enablement,
// authorization) is the caller's job; the ledger applies unconditionally.
func (j *Jar) AddDeposit(principal *big.Int, now int64) {
	if j.Claimed == nil {
		j.Claimed = big.NewInt(0)
	}
	j.Deposits = append(j.Deposits, Deposit{
		CreatedAt: now,
		Principal: new(big.Int).Set(principal),
	})
}

// PrincipalTotal sums the principal across all deposits.
func (j *Jar) PrincipalTotal() *big.Int {
	total := big.NewInt(0)
	if j == nil {
		return total
	}
	for _, d := range j.Deposits {
		total.Add(total, d.Principal)
	}
	return total
}

// TryLock sets the pending-withdraw flag, failing when another operation on
// the jar is already in flight.
func (j *Jar) TryLock() error {
	if j.PendingWithdraw {
		return ErrJarBusy
	}
	j.PendingWithdraw = true
	return nil
}

// Lock sets the flag unconditionally. Bulk operations pre-filter locked jars
// and use Lock on the survivors.
func (j *Jar) Lock() {
	j.PendingWithdraw = true
}

// Unlock clears the flag. Every lock must be paired with exactly one unlock,
// including on every failed-transfer path, or the jar stays stuck.
func (j *Jar) Unlock() {
	j.PendingWithdraw = false
}

// SettleClaim zeroes the live cached interest, records the freshly carried
// remainder and folds the claimed amount into the audit counter.
func (j *Jar) SettleClaim(claimed *big.Int, remainder uint64, now int64) {
	if j.Claimed == nil {
		j.Claimed = big.NewInt(0)
	}
	if claimed != nil {
		j.Claimed = new(big.Int).Add(j.Claimed, claimed)
	}
	j.Cache = &JarCache{UpdatedAt: now, Interest: big.NewInt(0)}
	j.ClaimRemainder = remainder
}

// UpdateCache persists freshly computed settlement figures without touching
// the deposits. Unlike SettleClaim it does not consume the score window, so
// the snapshot is stamped with ScoreSettledAt and the slots that funded it
// stop paying this jar until the window rolls past them.
func (j *Jar) UpdateCache(interest *big.Int, remainder uint64, now int64) {
	cached := big.NewInt(0)
	if interest != nil {
		cached = new(big.Int).Set(interest)
	}
	j.Cache = &JarCache{UpdatedAt: now, ScoreSettledAt: now, Interest: cached}
	j.ClaimRemainder = remainder
}

// CleanupDeposits removes the first partition deposits — the contiguous
// liquid prefix computed by LiquidPartition.
func (j *Jar) CleanupDeposits(partition int) {
	if partition <= 0 {
		return
	}
	if partition >= len(j.Deposits) {
		j.Deposits = nil
		return
	}
	remaining := make([]Deposit, len(j.Deposits)-partition)
	copy(remaining, j.Deposits[partition:])
	j.Deposits = remaining
}

// ShouldClose reports whether the jar carries no deposits and no settled
// interest, i.e. nothing the account could still claim or withdraw.
func (j *Jar) ShouldClose() bool {
	if j == nil {
		return true
	}
	if len(j.Deposits) > 0 {
		return false
	}
	return j.Cache == nil || j.Cache.Interest == nil || j.Cache.Interest.Sign() == 0
}

// LiquidPartition computes the withdrawable balance of a jar under the
// product's liquidity rule and the index of the first non-liquid deposit.
// Deposits are appended in creation order, so the liquid set is always a
// prefix (oldest-first eviction).
func LiquidPartition(product *Product, j *Jar, now int64) (*big.Int, int) {
	liquid := big.NewInt(0)
	if product == nil || j == nil {
		return liquid, 0
	}
	var partition int
	switch product.Terms.Kind() {
	case TermsFlexible:
		partition = len(j.Deposits)
	default:
		lockup := LockupOf(product.Terms)
		partition = sort.Search(len(j.Deposits), func(i int) bool {
			return now-j.Deposits[i].CreatedAt <= lockup
		})
	}
	for _, d := range j.Deposits[:partition] {
		liquid.Add(liquid, d.Principal)
	}
	return liquid, partition
}
