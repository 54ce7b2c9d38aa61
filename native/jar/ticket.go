package jar

import (
	"math/big"
	"strconv"
	"strings"

	"jarvault/crypto"
)

// ticketPurpose tags deposit-authorization material so a signature for one
// capability can never be replayed against another.
const ticketPurpose = "jar.deposit"

const ticketDelimiter = "|"

// DepositTicket authorizes a single deposit or restake under a product whose
// registry entry carries an authorization key. The nonce binds the ticket to
// the account's current counter and the expiry bounds how long it is valid.
type DepositTicket struct {
	Receiver   crypto.Address
	ProductID  ProductID
	Amount     *big.Int
	Nonce      uint32
	ValidUntil int64
}

// Material renders the canonical byte string that is hashed and signed:
// purpose, contract, receiver, product, amount, nonce and expiry joined by a
// fixed delimiter, in that exact order.
func (t *DepositTicket) Material(contract crypto.Address) []byte {
	amount := "0"
	if t.Amount != nil {
		amount = t.Amount.String()
	}
	parts := []string{
		ticketPurpose,
		contract.String(),
		t.Receiver.String(),
		string(t.ProductID),
		amount,
		strconv.FormatUint(uint64(t.Nonce), 10),
		strconv.FormatInt(t.ValidUntil, 10),
	}
	return []byte(strings.Join(parts, ticketDelimiter))
}

// verifyTicket checks a deposit authorization against the product's key. It
// is a no-op for products without one. The signed material must match the
// request exactly: receiver, product, amount and the account's current nonce.
// A nonce mismatch means the ticket was already consumed or minted against
// stale state.
func verifyTicket(product *Product, contract, caller crypto.Address, amount *big.Int, ticket *DepositTicket, signature []byte, accountNonce uint32, now int64) error {
	if !product.RequiresAuthorization() {
		return nil
	}
	if ticket == nil {
		return ErrTicketRequired
	}
	if len(signature) == 0 {
		return ErrSignatureRequired
	}
	if now > ticket.ValidUntil {
		return ErrTicketExpired
	}
	if ticket.Nonce != accountNonce {
		return ErrNonceMismatch
	}
	if !ticket.Receiver.Equal(caller) || ticket.ProductID != product.ID {
		return ErrSignatureMismatch
	}
	if ticket.Amount == nil || amount == nil || ticket.Amount.Cmp(amount) != 0 {
		return ErrSignatureMismatch
	}
	if !product.AuthorizationKey.Verify(ticket.Material(contract), signature) {
		return ErrSignatureMismatch
	}
	return nil
}
