package jar

import (
	"fmt"
	"math/big"
	"testing"

	"jarvault/crypto"
	"jarvault/udecimal"
)

type mockState struct {
	accounts map[string]*Account
	products map[ProductID]*Product
	pending  map[string]*PendingTransfer
	feePool  *big.Int
}

func newMockState() *mockState {
	return &mockState{
		accounts: make(map[string]*Account),
		products: make(map[ProductID]*Product),
		pending:  make(map[string]*PendingTransfer),
		feePool:  big.NewInt(0),
	}
}

func (m *mockState) GetAccount(addr crypto.Address) (*Account, error) {
	return m.accounts[addr.String()].Clone(), nil
}

func (m *mockState) PutAccount(addr crypto.Address, acct *Account) error {
	m.accounts[addr.String()] = acct.Clone()
	return nil
}

func (m *mockState) GetProduct(id ProductID) (*Product, error) {
	return m.products[id], nil
}

func (m *mockState) PutProduct(p *Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockState) ListProducts() ([]*Product, error) {
	out := make([]*Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockState) GetPendingTransfer(id string) (*PendingTransfer, error) {
	return m.pending[id], nil
}

func (m *mockState) PutPendingTransfer(p *PendingTransfer) error {
	m.pending[p.ID] = p
	return nil
}

func (m *mockState) DeletePendingTransfer(id string) error {
	delete(m.pending, id)
	return nil
}

func (m *mockState) FeePool() (*big.Int, error) {
	return new(big.Int).Set(m.feePool), nil
}

func (m *mockState) PutFeePool(pool *big.Int) error {
	m.feePool = new(big.Int).Set(pool)
	return nil
}

type transferRequest struct {
	id     string
	to     crypto.Address
	amount *big.Int
	fee    *big.Int
}

type mockTransferer struct {
	err      error
	requests []transferRequest
}

func (m *mockTransferer) Transfer(requestID string, to crypto.Address, amount, fee *big.Int) error {
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, transferRequest{id: requestID, to: to, amount: amount, fee: fee})
	return nil
}

func testAddr(fill byte) crypto.Address {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.NewAddress(crypto.JarPrefix, raw)
}

type testClock struct {
	now int64
}

func (c *testClock) Now() int64 { return c.now }

func newTestEngine(t *testing.T) (*Engine, *mockState, *mockTransferer, *testClock) {
	t.Helper()
	st := newMockState()
	tr := &mockTransferer{}
	clock := &testClock{}
	e := NewEngine(testAddr(0xEE))
	e.SetState(st)
	e.SetTransferer(tr)
	e.SetNowFunc(clock.Now)
	var seq int
	e.SetRequestIDFunc(func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	})
	return e, st, tr, clock
}

func percent(points uint64) udecimal.UDecimal {
	return udecimal.New(points, 2)
}

func fixedProduct(id ProductID, lockup int64, apyPercent uint64) *Product {
	return &Product{
		ID:      id,
		Cap:     Cap{Min: big.NewInt(1), Max: big.NewInt(1_000_000_000_000)},
		Terms:   FixedTerms{LockupTerm: lockup, Apy: ConstantApy(percent(apyPercent))},
		Enabled: true,
	}
}

func flexibleProduct(id ProductID, apyPercent uint64) *Product {
	return &Product{
		ID:      id,
		Cap:     Cap{Min: big.NewInt(1), Max: big.NewInt(1_000_000_000_000)},
		Terms:   FlexibleTerms{Apy: ConstantApy(percent(apyPercent))},
		Enabled: true,
	}
}

func mustDeposit(t *testing.T, e *Engine, caller crypto.Address, id ProductID, amount int64) {
	t.Helper()
	if err := e.Deposit(caller, id, big.NewInt(amount), nil, nil); err != nil {
		t.Fatalf("deposit into %s: %v", id, err)
	}
}
