package jar

import (
	"math/big"

	"jarvault/crypto"
)

type claimCandidate struct {
	id        ProductID
	interest  *big.Int
	remainder uint64
}

// ClaimTotal settles accrued interest across every unlocked jar of the
// account and requests a single transfer for the sum. Jars are locked for
// the duration of the in-flight transfer so a withdraw or restake cannot
// interleave with the reconciliation; the rollback companion captured before
// settlement restores them exactly if the transfer fails.
//
// A zero total short-circuits: nothing is mutated and no transfer is
// requested, which also makes a second claim in the same instant a no-op.
func (e *Engine) ClaimTotal(caller crypto.Address, detailed bool) (*Outcome, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	now := e.now()

	var candidates []claimCandidate
	total := big.NewInt(0)
	for _, id := range acct.SortedProductIDs() {
		j := acct.Jars[id]
		if j.PendingWithdraw {
			continue
		}
		product, err := e.product(id)
		if err != nil {
			return nil, err
		}
		interest, remainder := GetInterest(product, acct, j, now, e.scoreToAPY)
		if interest.Sign() == 0 {
			continue
		}
		candidates = append(candidates, claimCandidate{id: id, interest: interest, remainder: remainder})
		total.Add(total, interest)
	}

	if total.Sign() == 0 {
		return &Outcome{Claim: ZeroClaimedAmountView(detailed)}, nil
	}

	companion := NewAccountCompanion()
	claimed := make(map[ProductID]*big.Int, len(candidates))
	for _, c := range candidates {
		j := acct.Jars[c.id]
		companion.Jars[c.id] = CaptureClaimCompanion(j)
		j.Lock()
		j.SettleClaim(c.interest, c.remainder, now)
		claimed[c.id] = c.interest
	}
	if acct.Score != nil {
		companion.CaptureScore(acct.Score)
		acct.Score.ClaimScore(now)
	}

	if err := e.state.PutAccount(caller, acct); err != nil {
		return nil, err
	}

	pending := &PendingTransfer{
		ID:        e.newRequestID(),
		Kind:      PendingClaim,
		Account:   caller,
		Net:       total,
		Companion: companion,
		Detailed:  detailed,
		Claimed:   claimed,
		CreatedAt: now,
	}
	undo := func() error {
		companion.Apply(acct)
		return e.state.PutAccount(caller, acct)
	}
	if err := e.beginTransfer(pending, caller, undo); err != nil {
		return nil, err
	}
	return &Outcome{RequestID: pending.ID, Claim: claimView(detailed, total, claimed)}, nil
}

func claimView(detailed bool, total *big.Int, claimed map[ProductID]*big.Int) *ClaimedAmountView {
	view := &ClaimedAmountView{Total: new(big.Int).Set(total)}
	if detailed {
		view.Detailed = make(map[ProductID]*big.Int, len(claimed))
		for id, amount := range claimed {
			view.Detailed[id] = new(big.Int).Set(amount)
		}
	}
	return view
}
