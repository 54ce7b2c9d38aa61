package jar

import (
	"math/big"

	"jarvault/crypto"
)

// Withdraw releases the matured principal of one jar. The jar is locked
// first (failing fast when busy), the interest cache is refreshed so sweeping
// principal never discards accrued-but-unclaimed interest, and the liquid
// prefix plus fee are recorded in the pending transfer for the reconcile
// step. A jar with nothing liquid resolves synchronously to a zero view.
func (e *Engine) Withdraw(caller crypto.Address, productID ProductID) (*Outcome, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	j := acct.Jar(productID)
	if j == nil {
		return nil, ErrJarNotFound
	}
	if err := j.TryLock(); err != nil {
		return nil, err
	}
	product, err := e.product(productID)
	if err != nil {
		return nil, err
	}
	now := e.now()

	liquid, partition := LiquidPartition(product, j, now)
	if liquid.Sign() == 0 {
		// The lock was only taken in memory; nothing was persisted.
		j.Unlock()
		return &Outcome{Withdraw: ZeroWithdrawView()}, nil
	}

	interest, remainder := GetInterest(product, acct, j, now, e.scoreToAPY)
	j.UpdateCache(interest, remainder, now)

	fee := product.WithdrawalFee.Apply(liquid)
	net := new(big.Int).Sub(liquid, fee)

	if err := e.state.PutAccount(caller, acct); err != nil {
		return nil, err
	}

	pending := &PendingTransfer{
		ID:      e.newRequestID(),
		Kind:    PendingWithdraw,
		Account: caller,
		Net:     net,
		Withdrawals: []WithdrawalDescriptor{{
			ProductID: productID,
			Amount:    liquid,
			Fee:       fee,
			Partition: partition,
		}},
		CreatedAt: now,
	}
	undo := func() error {
		j.Unlock()
		return e.state.PutAccount(caller, acct)
	}
	if err := e.beginTransfer(pending, caller, undo); err != nil {
		return nil, err
	}
	return &Outcome{
		RequestID: pending.ID,
		Withdraw:  &WithdrawView{Withdrawn: new(big.Int).Set(liquid), Fee: new(big.Int).Set(fee)},
	}, nil
}

// WithdrawAll applies the single-jar withdrawal to every requested jar in one
// pass, issuing one transfer for the summed net amount and reconciling all of
// them on the single callback. Locked jars are filtered out rather than
// failing the batch; an empty surviving set is a no-op.
func (e *Engine) WithdrawAll(caller crypto.Address, productIDs []ProductID) (*Outcome, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	now := e.now()

	requested := acct.SortedProductIDs()
	if len(productIDs) > 0 {
		selected := make(map[ProductID]bool, len(productIDs))
		for _, id := range productIDs {
			selected[id] = true
		}
		filtered := requested[:0]
		for _, id := range requested {
			if selected[id] {
				filtered = append(filtered, id)
			}
		}
		requested = filtered
	}

	var descriptors []WithdrawalDescriptor
	view := ZeroBulkWithdrawView()
	net := big.NewInt(0)
	for _, id := range requested {
		j := acct.Jars[id]
		if j.PendingWithdraw {
			continue
		}
		product, err := e.product(id)
		if err != nil {
			return nil, err
		}
		liquid, partition := LiquidPartition(product, j, now)
		if liquid.Sign() == 0 {
			continue
		}
		interest, remainder := GetInterest(product, acct, j, now, e.scoreToAPY)
		j.UpdateCache(interest, remainder, now)
		j.Lock()

		fee := product.WithdrawalFee.Apply(liquid)
		descriptors = append(descriptors, WithdrawalDescriptor{
			ProductID: id,
			Amount:    liquid,
			Fee:       fee,
			Partition: partition,
		})
		net.Add(net, new(big.Int).Sub(liquid, fee))
		view.Withdrawals[id] = &WithdrawView{Withdrawn: liquid, Fee: fee}
		view.TotalWithdrawn.Add(view.TotalWithdrawn, liquid)
		view.TotalFee.Add(view.TotalFee, fee)
	}

	if len(descriptors) == 0 {
		return &Outcome{Bulk: ZeroBulkWithdrawView()}, nil
	}

	if err := e.state.PutAccount(caller, acct); err != nil {
		return nil, err
	}

	pending := &PendingTransfer{
		ID:          e.newRequestID(),
		Kind:        PendingWithdraw,
		Account:     caller,
		Net:         net,
		Withdrawals: descriptors,
		Bulk:        true,
		CreatedAt:   now,
	}
	undo := func() error {
		for _, d := range descriptors {
			if j := acct.Jar(d.ProductID); j != nil {
				j.Unlock()
			}
		}
		return e.state.PutAccount(caller, acct)
	}
	if err := e.beginTransfer(pending, caller, undo); err != nil {
		return nil, err
	}
	return &Outcome{RequestID: pending.ID, Bulk: view}, nil
}
