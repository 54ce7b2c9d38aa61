package jar

import (
	"math/big"

	"jarvault/core/events"
	"jarvault/crypto"
)

type restakeSource struct {
	id        ProductID
	jar       *Jar
	product   *Product
	liquid    *big.Int
	partition int
}

// Restake moves the matured principal of one jar into a new deposit under the
// ticket's target product. A nil targetAmount restakes everything mature; a
// targetAmount below the matured total carves the difference off as a real
// withdrawal, which goes through the usual transfer and reconcile protocol.
// When nothing leaves the contract the whole operation settles synchronously.
func (e *Engine) Restake(caller crypto.Address, fromProductID ProductID, ticket *DepositTicket, signature []byte, targetAmount *big.Int) (*Outcome, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	j := acct.Jar(fromProductID)
	if j == nil {
		return nil, ErrJarNotFound
	}
	if j.PendingWithdraw {
		return nil, ErrJarBusy
	}
	return e.restake(caller, acct, []ProductID{fromProductID}, ticket, signature, targetAmount)
}

// RestakeAll restakes across every jar of the account that is unlocked and
// holds matured principal.
func (e *Engine) RestakeAll(caller crypto.Address, ticket *DepositTicket, signature []byte, targetAmount *big.Int) (*Outcome, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	acct, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	var scope []ProductID
	for _, id := range acct.SortedProductIDs() {
		if acct.Jars[id].PendingWithdraw {
			continue
		}
		scope = append(scope, id)
	}
	return e.restake(caller, acct, scope, ticket, signature, targetAmount)
}

func (e *Engine) restake(caller crypto.Address, acct *Account, scope []ProductID, ticket *DepositTicket, signature []byte, targetAmount *big.Int) (*Outcome, error) {
	if ticket == nil {
		return nil, ErrTicketRequired
	}
	target, err := e.product(ticket.ProductID)
	if err != nil {
		return nil, err
	}
	if !target.Enabled {
		return nil, ErrProductDisabled
	}
	now := e.now()

	var sources []restakeSource
	totalMature := big.NewInt(0)
	for _, id := range scope {
		j := acct.Jars[id]
		product, err := e.product(id)
		if err != nil {
			return nil, err
		}
		liquid, partition := LiquidPartition(product, j, now)
		if liquid.Sign() == 0 {
			continue
		}
		sources = append(sources, restakeSource{id: id, jar: j, product: product, liquid: liquid, partition: partition})
		totalMature.Add(totalMature, liquid)
	}
	if totalMature.Sign() == 0 {
		return nil, ErrNothingToRestake
	}

	depositAmount := totalMature
	if targetAmount != nil {
		if targetAmount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		if targetAmount.Cmp(totalMature) > 0 {
			return nil, ErrNotEnoughToRestake
		}
		depositAmount = targetAmount
	}
	withdrawal := new(big.Int).Sub(totalMature, depositAmount)

	if err := verifyTicket(target, e.contract, caller, depositAmount, ticket, signature, acct.Nonce, now); err != nil {
		return nil, err
	}

	// Moving deposits out from under a jar must not discard the interest
	// they accrued, so the caches are settled up to now first.
	for _, src := range sources {
		interest, remainder := GetInterest(src.product, acct, src.jar, now, e.scoreToAPY)
		src.jar.UpdateCache(interest, remainder, now)
	}

	if withdrawal.Sign() == 0 {
		// No tokens leave the contract, so there is nothing to reconcile.
		for _, src := range sources {
			src.jar.CleanupDeposits(src.partition)
			if src.jar.ShouldClose() {
				delete(acct.Jars, src.id)
			}
		}
		acct.EnsureJar(ticket.ProductID).AddDeposit(depositAmount, now)
		if target.RequiresAuthorization() {
			acct.Nonce++
		}
		if err := e.state.PutAccount(caller, acct); err != nil {
			return nil, err
		}
		e.emit(events.JarRestaked{
			Account:       caller,
			TargetProduct: string(ticket.ProductID),
			Deposited:     new(big.Int).Set(depositAmount),
			Withdrawn:     big.NewInt(0),
			Fee:           big.NewInt(0),
		})
		return &Outcome{
			Restake: &RestakeView{
				Deposited: new(big.Int).Set(depositAmount),
				Withdrawn: big.NewInt(0),
				Fee:       big.NewInt(0),
			},
		}, nil
	}

	// The deposit portion consumes the matured balances oldest product
	// first; whatever is left on a source is its withdrawal share and is
	// charged that source's own fee.
	descriptors := make([]WithdrawalDescriptor, 0, len(sources))
	remaining := new(big.Int).Set(depositAmount)
	totalFee := big.NewInt(0)
	for _, src := range sources {
		take := new(big.Int).Set(src.liquid)
		if take.Cmp(remaining) > 0 {
			take.Set(remaining)
		}
		remaining.Sub(remaining, take)
		residual := new(big.Int).Sub(src.liquid, take)
		fee := src.product.WithdrawalFee.Apply(residual)
		totalFee.Add(totalFee, fee)
		descriptors = append(descriptors, WithdrawalDescriptor{
			ProductID: src.id,
			Amount:    src.liquid,
			Fee:       fee,
			Partition: src.partition,
		})
		src.jar.Lock()
	}
	net := new(big.Int).Sub(withdrawal, totalFee)

	if err := e.state.PutAccount(caller, acct); err != nil {
		return nil, err
	}

	pending := &PendingTransfer{
		ID:      e.newRequestID(),
		Kind:    PendingRestake,
		Account: caller,
		Net:     net,
		Restake: &RestakeDescriptor{
			TargetProduct: ticket.ProductID,
			DepositAmount: depositAmount,
			BumpNonce:     target.RequiresAuthorization(),
			Sources:       descriptors,
		},
		CreatedAt: now,
	}
	undo := func() error {
		for _, src := range sources {
			src.jar.Unlock()
		}
		return e.state.PutAccount(caller, acct)
	}
	if err := e.beginTransfer(pending, caller, undo); err != nil {
		return nil, err
	}
	return &Outcome{
		RequestID: pending.ID,
		Restake: &RestakeView{
			Deposited: new(big.Int).Set(depositAmount),
			Withdrawn: new(big.Int).Set(withdrawal),
			Fee:       new(big.Int).Set(totalFee),
		},
	}, nil
}
