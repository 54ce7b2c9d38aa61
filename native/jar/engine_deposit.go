package jar

import (
	"math/big"

	"jarvault/core/events"
	"jarvault/crypto"
)

// Deposit appends a new principal lot to the caller's jar under the product,
// creating the account and jar on first use. Validation happens here, before
// any mutation: product enablement, cap bounds and — for authorized
// products — the signed ticket including replay and expiry checks.
func (e *Engine) Deposit(caller crypto.Address, productID ProductID, amount *big.Int, ticket *DepositTicket, signature []byte) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	product, err := e.product(productID)
	if err != nil {
		return err
	}
	if !product.Enabled {
		return ErrProductDisabled
	}
	if amount.Cmp(product.Cap.Min) < 0 || amount.Cmp(product.Cap.Max) > 0 {
		return ErrAmountOutOfCap
	}
	now := e.now()
	acct, err := e.ensureAccount(caller)
	if err != nil {
		return err
	}
	if err := verifyTicket(product, e.contract, caller, amount, ticket, signature, acct.Nonce, now); err != nil {
		return err
	}
	acct.EnsureJar(productID).AddDeposit(amount, now)
	if product.RequiresAuthorization() {
		acct.Nonce++
	}
	if err := e.state.PutAccount(caller, acct); err != nil {
		return err
	}
	e.emit(events.JarDepositCreated{
		Account:   caller,
		ProductID: string(productID),
		Principal: new(big.Int).Set(amount),
		CreatedAt: now,
	})
	return nil
}
