package jar

import (
	"math/big"

	"jarvault/core/events"
	"jarvault/crypto"
)

// GetJars returns the read-model for every jar of the account, in product id
// order. An unknown account yields an empty slice rather than an error.
func (e *Engine) GetJars(addr crypto.Address) ([]JarView, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return []JarView{}, nil
	}
	views := make([]JarView, 0, len(acct.Jars))
	for _, id := range acct.SortedProductIDs() {
		j := acct.Jars[id]
		view := JarView{
			ProductID:       id,
			Principal:       j.PrincipalTotal(),
			DepositCount:    len(j.Deposits),
			PendingWithdraw: j.PendingWithdraw,
			Claimed:         big.NewInt(0),
			CachedInterest:  big.NewInt(0),
		}
		if j.Claimed != nil {
			view.Claimed = new(big.Int).Set(j.Claimed)
		}
		if j.Cache != nil && j.Cache.Interest != nil {
			view.CachedInterest = new(big.Int).Set(j.Cache.Interest)
		}
		views = append(views, view)
	}
	return views, nil
}

// GetTotalInterest computes the interest accrued up to now across the
// account's jars without mutating anything. Locked jars are included: the
// figure is informational and the in-flight operation decides what actually
// settles.
func (e *Engine) GetTotalInterest(addr crypto.Address) (*InterestView, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	view := &InterestView{Total: big.NewInt(0), ByProduct: make(map[ProductID]*big.Int)}
	if acct == nil {
		return view, nil
	}
	now := e.now()
	for _, id := range acct.SortedProductIDs() {
		product, err := e.product(id)
		if err != nil {
			return nil, err
		}
		interest, _ := GetInterest(product, acct, acct.Jars[id], now, e.scoreToAPY)
		view.ByProduct[id] = interest
		view.Total.Add(view.Total, interest)
	}
	return view, nil
}

// RecordScore applies a batch of activity entries to the account's score
// window. The window is created on first use anchored at the reported
// timezone offset. Entries older than the window are dropped with a warning
// event instead of failing the batch; a future-dated entry aborts it.
func (e *Engine) RecordScore(addr crypto.Address, timezoneOffsetMinutes int64, batch []ScoreEntry) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	acct, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	now := e.now()
	if acct.Score == nil {
		acct.Score = NewAccountScore(timezoneOffsetMinutes, now)
	}
	var applied uint64
	for _, entry := range batch {
		ok, err := acct.Score.Record(entry, now)
		if err != nil {
			return err
		}
		if !ok {
			e.emit(events.JarScoreStale{
				Account:   addr,
				Timestamp: entry.Timestamp,
				Score:     entry.Score,
			})
			continue
		}
		applied += entry.Score
	}
	if err := e.state.PutAccount(addr, acct); err != nil {
		return err
	}
	e.emit(events.JarScoreRecorded{Account: addr, Applied: applied})
	return nil
}

// SetPenalty toggles the downgradable-APY penalty flag on the account.
func (e *Engine) SetPenalty(addr crypto.Address, applied bool) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	acct, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	if acct.PenaltyApplied == applied {
		return nil
	}
	acct.PenaltyApplied = applied
	if err := e.state.PutAccount(addr, acct); err != nil {
		return err
	}
	e.emit(events.JarPenaltyUpdated{Account: addr, Applied: applied})
	return nil
}
