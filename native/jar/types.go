package jar

import (
	"math/big"
	"sort"

	"jarvault/crypto"
	"jarvault/udecimal"
)

// Millisecond quanta used by the accrual math. A year is 365 days; the
// remainder of every interest division is carried in these units so repeated
// claims never lose sub-unit interest.
const (
	MsInDay  int64 = 24 * 60 * 60 * 1000
	MsInYear int64 = 365 * MsInDay
)

// ProductID names a registered deposit product.
type ProductID string

// Cap bounds the principal accepted by a single deposit.
type Cap struct {
	Min *big.Int
	Max *big.Int
}

// FeeKind discriminates the withdrawal fee variants.
type FeeKind uint8

const (
	FeeFixed FeeKind = iota + 1
	FeePercent
)

// Fee describes the withdrawal fee attached to a product: either a fixed
// token amount or a percentage of the withdrawn principal.
type Fee struct {
	Kind   FeeKind
	Amount *big.Int
	Rate   udecimal.UDecimal
}

// Apply computes the fee for the given withdrawal amount, clamped so the fee
// never exceeds the principal it is charged against.
func (f *Fee) Apply(amount *big.Int) *big.Int {
	if f == nil || amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	var fee *big.Int
	switch f.Kind {
	case FeeFixed:
		if f.Amount == nil {
			return big.NewInt(0)
		}
		fee = new(big.Int).Set(f.Amount)
	case FeePercent:
		fee = f.Rate.Mul(amount)
	default:
		return big.NewInt(0)
	}
	if fee.Cmp(amount) > 0 {
		fee = new(big.Int).Set(amount)
	}
	return fee
}

// Product captures the immutable-per-version terms a jar accrues under. Only
// Enabled and AuthorizationKey may change after registration.
type Product struct {
	ID               ProductID
	Cap              Cap
	Terms            Terms
	WithdrawalFee    *Fee
	AuthorizationKey *crypto.PublicKey
	Enabled          bool
}

// RequiresAuthorization reports whether deposits under this product need a
// signed ticket.
func (p *Product) RequiresAuthorization() bool {
	return p != nil && p.AuthorizationKey != nil
}

// Deposit is a single principal lot inside a jar. Immutable once created;
// removal happens only through the liquidity-partition cleanup.
type Deposit struct {
	CreatedAt int64
	Principal *big.Int
}

// JarCache snapshots interest accrued up to UpdatedAt so settlement never has
// to recompute from account genesis.
type JarCache struct {
	UpdatedAt int64
	// ScoreSettledAt is nonzero when the snapshot was taken without
	// consuming the account score (withdraw and restake settlements).
	// Score slots visible at that instant already paid into Interest and
	// must not pay this jar again.
	ScoreSettledAt int64
	Interest       *big.Int
}

func (c *JarCache) Clone() *JarCache {
	if c == nil {
		return nil
	}
	clone := &JarCache{UpdatedAt: c.UpdatedAt, ScoreSettledAt: c.ScoreSettledAt, Interest: big.NewInt(0)}
	if c.Interest != nil {
		clone.Interest = new(big.Int).Set(c.Interest)
	}
	return clone
}

// Jar aggregates every deposit an account holds under one product, plus the
// settlement cache, the carried sub-unit remainder and the pending-operation
// lock flag.
type Jar struct {
	Deposits        []Deposit
	Cache           *JarCache
	PendingWithdraw bool
	ClaimRemainder  uint64
	Claimed         *big.Int
}

func (j *Jar) Clone() *Jar {
	if j == nil {
		return nil
	}
	clone := &Jar{
		Cache:           j.Cache.Clone(),
		PendingWithdraw: j.PendingWithdraw,
		ClaimRemainder:  j.ClaimRemainder,
		Claimed:         big.NewInt(0),
	}
	if j.Claimed != nil {
		clone.Claimed = new(big.Int).Set(j.Claimed)
	}
	for _, d := range j.Deposits {
		clone.Deposits = append(clone.Deposits, Deposit{
			CreatedAt: d.CreatedAt,
			Principal: new(big.Int).Set(d.Principal),
		})
	}
	return clone
}

// Account is the per-depositor aggregate: one jar per product, the activity
// score window and the ticket-replay nonce.
type Account struct {
	Nonce          uint32
	Jars           map[ProductID]*Jar
	Score          *AccountScore
	PenaltyApplied bool
}

func NewAccount() *Account {
	return &Account{Jars: make(map[ProductID]*Jar)}
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{
		Nonce:          a.Nonce,
		Jars:           make(map[ProductID]*Jar, len(a.Jars)),
		Score:          a.Score.Clone(),
		PenaltyApplied: a.PenaltyApplied,
	}
	for id, j := range a.Jars {
		clone.Jars[id] = j.Clone()
	}
	return clone
}

// Jar returns the jar for the product, or nil when the account never
// deposited under it.
func (a *Account) Jar(id ProductID) *Jar {
	if a == nil {
		return nil
	}
	return a.Jars[id]
}

// EnsureJar returns the jar for the product, creating an empty one on first
// deposit.
func (a *Account) EnsureJar(id ProductID) *Jar {
	if a.Jars == nil {
		a.Jars = make(map[ProductID]*Jar)
	}
	j, ok := a.Jars[id]
	if !ok {
		j = &Jar{Claimed: big.NewInt(0)}
		a.Jars[id] = j
	}
	return j
}

// SortedProductIDs returns the account's jar keys in lexical order so bulk
// operations iterate deterministically.
func (a *Account) SortedProductIDs() []ProductID {
	ids := make([]ProductID, 0, len(a.Jars))
	for id := range a.Jars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	return ids
}
