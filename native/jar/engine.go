package jar

import (
	"math/big"
	"time"

	"github.com/google/uuid"

	"jarvault/core/events"
	"jarvault/crypto"
)

type engineState interface {
	GetAccount(addr crypto.Address) (*Account, error)
	PutAccount(addr crypto.Address, acct *Account) error
	GetProduct(id ProductID) (*Product, error)
	GetPendingTransfer(id string) (*PendingTransfer, error)
	PutPendingTransfer(p *PendingTransfer) error
	DeletePendingTransfer(id string) error
	FeePool() (*big.Int, error)
	PutFeePool(pool *big.Int) error
}

// TokenTransferer is the external ledger collaborator. Transfer only records
// the intent to move tokens; the outcome arrives later through the
// ResolveTransfer entry point, keyed by requestID. Fee, when non-nil, is a
// side-payment routed to the collaborator's fee beneficiary.
type TokenTransferer interface {
	Transfer(requestID string, to crypto.Address, amount, fee *big.Int) error
}

// PendingKind discriminates the in-flight operation a transfer settles.
type PendingKind uint8

const (
	PendingClaim PendingKind = iota + 1
	PendingWithdraw
	PendingRestake
)

// WithdrawalDescriptor records everything the reconcile step needs for one
// jar: the amount leaving it, the fee retained and the liquid prefix to sweep.
type WithdrawalDescriptor struct {
	ProductID ProductID
	Amount    *big.Int
	Fee       *big.Int
	Partition int
}

// RestakeDescriptor carries the deferred half of a restake with a withdrawal
// component: where the retained principal lands once the transfer settles.
type RestakeDescriptor struct {
	TargetProduct ProductID
	DepositAmount *big.Int
	BumpNonce     bool
	Sources       []WithdrawalDescriptor
}

// PendingTransfer is the persisted continuation for an in-flight token
// transfer: enough state to either finalize or roll back the operation when
// the collaborator reports the outcome. It doubles as the rollback record
// the spec calls a companion.
type PendingTransfer struct {
	ID          string
	Kind        PendingKind
	Account     crypto.Address
	Net         *big.Int
	Companion   *AccountCompanion
	Withdrawals []WithdrawalDescriptor
	Restake     *RestakeDescriptor
	Bulk        bool
	Detailed    bool
	Claimed     map[ProductID]*big.Int
	CreatedAt   int64
}

// Engine orchestrates deposits, claims, withdrawals and restakes over the
// persisted jar ledger and the external token collaborator.
type Engine struct {
	state        engineState
	transferer   TokenTransferer
	emitter      events.Emitter
	contract     crypto.Address
	scoreToAPY   ScoreToAPY
	nowFn        func() int64
	newRequestID func() string
}

// NewEngine constructs an engine identified by the module's own address,
// which anchors ticket material so signatures cannot travel between
// deployments.
func NewEngine(contract crypto.Address) *Engine {
	return &Engine{
		emitter:      events.NoopEmitter{},
		contract:     contract,
		scoreToAPY:   DefaultScoreToAPY,
		nowFn:        func() int64 { return time.Now().UnixMilli() },
		newRequestID: uuid.NewString,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTransferer wires the token collaborator.
func (e *Engine) SetTransferer(t TokenTransferer) { e.transferer = t }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source (milliseconds). Primarily for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().UnixMilli() }
		return
	}
	e.nowFn = now
}

// SetScoreToAPY installs the score conversion curve for score-based products.
func (e *Engine) SetScoreToAPY(fn ScoreToAPY) {
	if fn == nil {
		e.scoreToAPY = DefaultScoreToAPY
		return
	}
	e.scoreToAPY = fn
}

// SetRequestIDFunc overrides pending-transfer id generation for tests.
func (e *Engine) SetRequestIDFunc(fn func() string) {
	if fn == nil {
		e.newRequestID = uuid.NewString
		return
	}
	e.newRequestID = fn
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().UnixMilli()
	}
	return e.nowFn()
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) checkWired() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nil
}

func (e *Engine) loadAccount(addr crypto.Address) (*Account, error) {
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

func (e *Engine) ensureAccount(addr crypto.Address) (*Account, error) {
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct = NewAccount()
	}
	return acct, nil
}

func (e *Engine) product(id ProductID) (*Product, error) {
	product, err := e.state.GetProduct(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (e *Engine) accrueFee(fee *big.Int) error {
	if fee == nil || fee.Sign() == 0 {
		return nil
	}
	pool, err := e.state.FeePool()
	if err != nil {
		return err
	}
	if pool == nil {
		pool = big.NewInt(0)
	}
	return e.state.PutFeePool(new(big.Int).Add(pool, fee))
}

// beginTransfer persists the continuation and asks the collaborator to move
// tokens. A synchronous refusal unwinds the persisted record so a validation
// failure in the collaborator never strands a lock.
func (e *Engine) beginTransfer(pending *PendingTransfer, to crypto.Address, undo func() error) error {
	if e.transferer == nil {
		return ErrNilTransferer
	}
	if err := e.state.PutPendingTransfer(pending); err != nil {
		return err
	}
	var fee *big.Int
	for _, d := range pending.Withdrawals {
		if d.Fee != nil && d.Fee.Sign() > 0 {
			if fee == nil {
				fee = big.NewInt(0)
			}
			fee.Add(fee, d.Fee)
		}
	}
	if pending.Restake != nil {
		for _, d := range pending.Restake.Sources {
			if d.Fee != nil && d.Fee.Sign() > 0 {
				if fee == nil {
					fee = big.NewInt(0)
				}
				fee.Add(fee, d.Fee)
			}
		}
	}
	if err := e.transferer.Transfer(pending.ID, to, pending.Net, fee); err != nil {
		_ = e.state.DeletePendingTransfer(pending.ID)
		if undo != nil {
			if undoErr := undo(); undoErr != nil {
				return undoErr
			}
		}
		return err
	}
	return nil
}
