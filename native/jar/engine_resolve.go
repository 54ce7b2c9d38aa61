package jar

import (
	"fmt"
	"math/big"

	"jarvault/core/events"
)

// ResolveTransfer consumes the pending record for requestID and either
// finalizes the operation it belongs to or rolls it back, depending on the
// outcome the token collaborator reported. The record is deleted in both
// cases; resolving the same request twice fails with ErrPendingNotFound.
func (e *Engine) ResolveTransfer(requestID string, success bool) (*TransferResolution, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	pending, err := e.state.GetPendingTransfer(requestID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrPendingNotFound
	}
	acct, err := e.loadAccount(pending.Account)
	if err != nil {
		return nil, err
	}

	var resolution *TransferResolution
	switch pending.Kind {
	case PendingClaim:
		resolution, err = e.resolveClaim(pending, acct, success)
	case PendingWithdraw:
		resolution, err = e.resolveWithdraw(pending, acct, success)
	case PendingRestake:
		resolution, err = e.resolveRestake(pending, acct, success)
	default:
		return nil, fmt.Errorf("jar: unknown pending transfer kind %d", pending.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := e.state.DeletePendingTransfer(requestID); err != nil {
		return nil, err
	}
	return resolution, nil
}

func (e *Engine) resolveClaim(pending *PendingTransfer, acct *Account, success bool) (*TransferResolution, error) {
	if !success {
		// The companion restores cache, remainder and score exactly as
		// they were before settlement, and clears the locks with them.
		if pending.Companion != nil {
			pending.Companion.Apply(acct)
		}
		if err := e.state.PutAccount(pending.Account, acct); err != nil {
			return nil, err
		}
		return &TransferResolution{
			Kind:  PendingClaim,
			Claim: ZeroClaimedAmountView(pending.Detailed),
		}, nil
	}
	if pending.Companion != nil {
		for id := range pending.Companion.Jars {
			if j := acct.Jar(id); j != nil {
				j.Unlock()
			}
		}
	}
	if err := e.state.PutAccount(pending.Account, acct); err != nil {
		return nil, err
	}
	e.emit(events.JarClaimed{
		Account: pending.Account,
		Total:   new(big.Int).Set(pending.Net),
		Settled: e.now(),
	})
	return &TransferResolution{
		Kind:    PendingClaim,
		Success: true,
		Claim:   claimView(pending.Detailed, pending.Net, pending.Claimed),
	}, nil
}

func (e *Engine) resolveWithdraw(pending *PendingTransfer, acct *Account, success bool) (*TransferResolution, error) {
	if !success {
		for _, d := range pending.Withdrawals {
			if j := acct.Jar(d.ProductID); j != nil {
				j.Unlock()
			}
		}
		if err := e.state.PutAccount(pending.Account, acct); err != nil {
			return nil, err
		}
		resolution := &TransferResolution{Kind: PendingWithdraw}
		if pending.Bulk {
			resolution.Bulk = ZeroBulkWithdrawView()
		} else {
			resolution.Withdraw = ZeroWithdrawView()
		}
		return resolution, nil
	}

	bulk := ZeroBulkWithdrawView()
	for _, d := range pending.Withdrawals {
		j := acct.Jar(d.ProductID)
		if j != nil {
			j.Unlock()
			j.CleanupDeposits(d.Partition)
			if j.ShouldClose() {
				delete(acct.Jars, d.ProductID)
			}
		}
		if err := e.accrueFee(d.Fee); err != nil {
			return nil, err
		}
		bulk.Withdrawals[d.ProductID] = &WithdrawView{
			Withdrawn: new(big.Int).Set(d.Amount),
			Fee:       new(big.Int).Set(d.Fee),
		}
		bulk.TotalWithdrawn.Add(bulk.TotalWithdrawn, d.Amount)
		bulk.TotalFee.Add(bulk.TotalFee, d.Fee)
		e.emit(events.JarWithdrawn{
			Account:   pending.Account,
			ProductID: string(d.ProductID),
			Amount:    new(big.Int).Set(d.Amount),
			Fee:       new(big.Int).Set(d.Fee),
		})
	}
	if err := e.state.PutAccount(pending.Account, acct); err != nil {
		return nil, err
	}
	resolution := &TransferResolution{Kind: PendingWithdraw, Success: true}
	if pending.Bulk {
		resolution.Bulk = bulk
	} else if len(pending.Withdrawals) == 1 {
		d := pending.Withdrawals[0]
		resolution.Withdraw = bulk.Withdrawals[d.ProductID]
	}
	return resolution, nil
}

func (e *Engine) resolveRestake(pending *PendingTransfer, acct *Account, success bool) (*TransferResolution, error) {
	desc := pending.Restake
	if desc == nil {
		return nil, fmt.Errorf("jar: pending restake %s has no descriptor", pending.ID)
	}
	if !success {
		for _, d := range desc.Sources {
			if j := acct.Jar(d.ProductID); j != nil {
				j.Unlock()
			}
		}
		if err := e.state.PutAccount(pending.Account, acct); err != nil {
			return nil, err
		}
		return &TransferResolution{Kind: PendingRestake, Restake: ZeroRestakeView()}, nil
	}

	matured := big.NewInt(0)
	fee := big.NewInt(0)
	for _, d := range desc.Sources {
		if j := acct.Jar(d.ProductID); j != nil {
			j.Unlock()
			j.CleanupDeposits(d.Partition)
			if j.ShouldClose() {
				delete(acct.Jars, d.ProductID)
			}
		}
		if err := e.accrueFee(d.Fee); err != nil {
			return nil, err
		}
		matured.Add(matured, d.Amount)
		fee.Add(fee, d.Fee)
	}
	// The lockup clock starts when the restake was requested, not when the
	// transfer settled, matching the synchronous path.
	acct.EnsureJar(desc.TargetProduct).AddDeposit(desc.DepositAmount, pending.CreatedAt)
	if desc.BumpNonce {
		acct.Nonce++
	}
	if err := e.state.PutAccount(pending.Account, acct); err != nil {
		return nil, err
	}
	withdrawn := new(big.Int).Sub(matured, desc.DepositAmount)
	e.emit(events.JarRestaked{
		Account:       pending.Account,
		TargetProduct: string(desc.TargetProduct),
		Deposited:     new(big.Int).Set(desc.DepositAmount),
		Withdrawn:     withdrawn,
		Fee:           new(big.Int).Set(fee),
	})
	return &TransferResolution{
		Kind:    PendingRestake,
		Success: true,
		Restake: &RestakeView{
			Deposited: new(big.Int).Set(desc.DepositAmount),
			Withdrawn: new(big.Int).Set(withdrawn),
			Fee:       new(big.Int).Set(fee),
		},
	}, nil
}
