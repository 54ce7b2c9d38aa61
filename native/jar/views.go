package jar

import "math/big"

// ClaimedAmountView is the claim result in the shape the caller requested:
// Detailed is populated per product only when asked for.
type ClaimedAmountView struct {
	Total    *big.Int
	Detailed map[ProductID]*big.Int
}

// ZeroClaimedAmountView builds an empty view matching the requested shape.
func ZeroClaimedAmountView(detailed bool) *ClaimedAmountView {
	view := &ClaimedAmountView{Total: big.NewInt(0)}
	if detailed {
		view.Detailed = make(map[ProductID]*big.Int)
	}
	return view
}

// WithdrawView reports the outcome of a single-product withdrawal.
type WithdrawView struct {
	Withdrawn *big.Int
	Fee       *big.Int
}

func ZeroWithdrawView() *WithdrawView {
	return &WithdrawView{Withdrawn: big.NewInt(0), Fee: big.NewInt(0)}
}

// BulkWithdrawView reports a withdraw_all outcome per product plus totals.
type BulkWithdrawView struct {
	Withdrawals    map[ProductID]*WithdrawView
	TotalWithdrawn *big.Int
	TotalFee       *big.Int
}

func ZeroBulkWithdrawView() *BulkWithdrawView {
	return &BulkWithdrawView{
		Withdrawals:    make(map[ProductID]*WithdrawView),
		TotalWithdrawn: big.NewInt(0),
		TotalFee:       big.NewInt(0),
	}
}

// RestakeView reports how a restake split the matured principal.
type RestakeView struct {
	Deposited *big.Int
	Withdrawn *big.Int
	Fee       *big.Int
}

func ZeroRestakeView() *RestakeView {
	return &RestakeView{Deposited: big.NewInt(0), Withdrawn: big.NewInt(0), Fee: big.NewInt(0)}
}

// JarView is the read-model for one jar exposed to RPC consumers.
type JarView struct {
	ProductID       ProductID
	Principal       *big.Int
	DepositCount    int
	PendingWithdraw bool
	Claimed         *big.Int
	CachedInterest  *big.Int
}

// InterestView aggregates accrued interest per product at a point in time.
type InterestView struct {
	Total     *big.Int
	ByProduct map[ProductID]*big.Int
}

// Outcome ties an entry point's provisional view to the pending transfer it
// spawned. RequestID is empty when the operation settled synchronously.
type Outcome struct {
	RequestID string
	Claim     *ClaimedAmountView
	Withdraw  *WithdrawView
	Bulk      *BulkWithdrawView
	Restake   *RestakeView
}

// TransferResolution is what the callback entry point returns once the
// collaborator reports the transfer outcome.
type TransferResolution struct {
	Kind     PendingKind
	Success  bool
	Claim    *ClaimedAmountView
	Withdraw *WithdrawView
	Bulk     *BulkWithdrawView
	Restake  *RestakeView
}
