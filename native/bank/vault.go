package bank

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"jarvault/crypto"
)

// Intent is one recorded transfer request awaiting settlement by the host
// ledger. Fee, when positive, is routed to the module fee account instead of
// the recipient.
type Intent struct {
	RequestID string
	To        crypto.Address
	Amount    *big.Int
	Fee       *big.Int
	CreatedAt int64
}

// Vault is the in-process token collaborator. It only records intents; the
// daemon (or a test) later reports each outcome through the engine's resolve
// entry point. Keeping the two phases separate mirrors how an external ledger
// settles asynchronously.
type Vault struct {
	mu      sync.Mutex
	intents map[string]*Intent
	nowFn   func() int64
}

func NewVault() *Vault {
	return &Vault{
		intents: make(map[string]*Intent),
		nowFn:   func() int64 { return time.Now().UnixMilli() },
	}
}

// SetNowFunc overrides the intent timestamp source. Primarily for tests.
func (v *Vault) SetNowFunc(now func() int64) {
	if now == nil {
		v.nowFn = func() int64 { return time.Now().UnixMilli() }
		return
	}
	v.nowFn = now
}

// Transfer records the intent to move tokens out of the module. It fails fast
// on malformed requests so the engine can unwind before anything is in
// flight.
func (v *Vault) Transfer(requestID string, to crypto.Address, amount, fee *big.Int) error {
	if requestID == "" {
		return fmt.Errorf("bank: transfer requires a request id")
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bank: transfer %s: invalid amount", requestID)
	}
	if fee != nil && fee.Sign() < 0 {
		return fmt.Errorf("bank: transfer %s: invalid fee", requestID)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.intents[requestID]; exists {
		return fmt.Errorf("bank: transfer %s already recorded", requestID)
	}
	intent := &Intent{
		RequestID: requestID,
		To:        to,
		Amount:    new(big.Int).Set(amount),
		CreatedAt: v.nowFn(),
	}
	if fee != nil {
		intent.Fee = new(big.Int).Set(fee)
	}
	v.intents[requestID] = intent
	return nil
}

// Take removes and returns the intent for a request id. Settlement consumes
// the intent exactly once.
func (v *Vault) Take(requestID string) (*Intent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	intent, ok := v.intents[requestID]
	if !ok {
		return nil, fmt.Errorf("bank: no intent for request %s", requestID)
	}
	delete(v.intents, requestID)
	return intent, nil
}

// Pending lists the unsettled intents ordered by creation time.
func (v *Vault) Pending() []*Intent {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*Intent, 0, len(v.intents))
	for _, intent := range v.intents {
		out = append(out, intent)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt != out[k].CreatedAt {
			return out[i].CreatedAt < out[k].CreatedAt
		}
		return out[i].RequestID < out[k].RequestID
	})
	return out
}
