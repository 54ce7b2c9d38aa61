package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"jarvault/storage"
)

var (
	accountPrefix   = []byte("jarvault/accounts/")
	productPrefix   = []byte("jarvault/products/")
	productIndexKey = []byte("jarvault/products/index")
	pendingPrefix   = []byte("jarvault/pending/")
	feePoolKey      = []byte("jarvault/feepool")
)

// Manager persists the jar module's ledger through a key-value store, using
// RLP for the on-disk encoding. It satisfies the state dependencies of both
// the engine and the product registry.
type Manager struct {
	db storage.Database
}

// NewManager constructs a manager bound to the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// get decodes the value at key into out, reporting false when the key is
// absent.
func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

// FeePool returns the accumulated withdrawal fees retained by the module.
func (m *Manager) FeePool() (*big.Int, error) {
	pool := new(big.Int)
	ok, err := m.get(feePoolKey, pool)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return pool, nil
}

// PutFeePool overwrites the fee pool counter.
func (m *Manager) PutFeePool(pool *big.Int) error {
	if pool == nil {
		pool = big.NewInt(0)
	}
	return m.put(feePoolKey, pool)
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
