package rpc

import (
	"math/big"

	"jarvault/native/jar"
)

type statusResult struct {
	Status string `json:"status"`
}

type depositResult struct {
	ProductID string `json:"productId"`
	Amount    string `json:"amount"`
}

type recordScoreResult struct {
	Submitted int `json:"submitted"`
}

type jarEntryResult struct {
	ProductID       string `json:"productId"`
	Principal       string `json:"principal"`
	DepositCount    int    `json:"depositCount"`
	PendingWithdraw bool   `json:"pendingWithdraw"`
	Claimed         string `json:"claimed"`
	CachedInterest  string `json:"cachedInterest"`
}

type interestResult struct {
	Total     string            `json:"total"`
	ByProduct map[string]string `json:"byProduct"`
}

type productResult struct {
	ID                    string `json:"id"`
	Enabled               bool   `json:"enabled"`
	CapMin                string `json:"capMin"`
	CapMax                string `json:"capMax"`
	Kind                  string `json:"kind"`
	RequiresAuthorization bool   `json:"requiresAuthorization"`
}

type claimResult struct {
	Total    string            `json:"total"`
	Detailed map[string]string `json:"detailed,omitempty"`
}

type withdrawResult struct {
	Withdrawn string `json:"withdrawn"`
	Fee       string `json:"fee"`
}

type bulkWithdrawResult struct {
	Withdrawals    map[string]withdrawResult `json:"withdrawals"`
	TotalWithdrawn string                    `json:"totalWithdrawn"`
	TotalFee       string                    `json:"totalFee"`
}

type restakeResult struct {
	Deposited string `json:"deposited"`
	Withdrawn string `json:"withdrawn"`
	Fee       string `json:"fee"`
}

// outcomeResult is the wire form of an operation outcome. Pending reports
// whether a token transfer is still in flight under RequestID.
type outcomeResult struct {
	RequestID string              `json:"requestId,omitempty"`
	Pending   bool                `json:"pending"`
	Claim     *claimResult        `json:"claim,omitempty"`
	Withdraw  *withdrawResult     `json:"withdraw,omitempty"`
	Bulk      *bulkWithdrawResult `json:"bulk,omitempty"`
	Restake   *restakeResult      `json:"restake,omitempty"`
}

type resolutionResult struct {
	Kind     string              `json:"kind"`
	Success  bool                `json:"success"`
	Claim    *claimResult        `json:"claim,omitempty"`
	Withdraw *withdrawResult     `json:"withdraw,omitempty"`
	Bulk     *bulkWithdrawResult `json:"bulk,omitempty"`
	Restake  *restakeResult      `json:"restake,omitempty"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func claimResultFrom(v *jar.ClaimedAmountView) *claimResult {
	if v == nil {
		return nil
	}
	out := &claimResult{Total: bigString(v.Total)}
	if v.Detailed != nil {
		out.Detailed = make(map[string]string, len(v.Detailed))
		for id, amount := range v.Detailed {
			out.Detailed[string(id)] = bigString(amount)
		}
	}
	return out
}

func withdrawResultFrom(v *jar.WithdrawView) *withdrawResult {
	if v == nil {
		return nil
	}
	return &withdrawResult{Withdrawn: bigString(v.Withdrawn), Fee: bigString(v.Fee)}
}

func bulkWithdrawResultFrom(v *jar.BulkWithdrawView) *bulkWithdrawResult {
	if v == nil {
		return nil
	}
	out := &bulkWithdrawResult{
		Withdrawals:    make(map[string]withdrawResult, len(v.Withdrawals)),
		TotalWithdrawn: bigString(v.TotalWithdrawn),
		TotalFee:       bigString(v.TotalFee),
	}
	for id, w := range v.Withdrawals {
		if w == nil {
			continue
		}
		out.Withdrawals[string(id)] = withdrawResult{Withdrawn: bigString(w.Withdrawn), Fee: bigString(w.Fee)}
	}
	return out
}

func restakeResultFrom(v *jar.RestakeView) *restakeResult {
	if v == nil {
		return nil
	}
	return &restakeResult{
		Deposited: bigString(v.Deposited),
		Withdrawn: bigString(v.Withdrawn),
		Fee:       bigString(v.Fee),
	}
}

func outcomeResultFrom(o *jar.Outcome) outcomeResult {
	if o == nil {
		return outcomeResult{}
	}
	return outcomeResult{
		RequestID: o.RequestID,
		Pending:   o.RequestID != "",
		Claim:     claimResultFrom(o.Claim),
		Withdraw:  withdrawResultFrom(o.Withdraw),
		Bulk:      bulkWithdrawResultFrom(o.Bulk),
		Restake:   restakeResultFrom(o.Restake),
	}
}

func resolutionResultFrom(r *jar.TransferResolution) resolutionResult {
	if r == nil {
		return resolutionResult{}
	}
	return resolutionResult{
		Kind:     kindLabel(r.Kind),
		Success:  r.Success,
		Claim:    claimResultFrom(r.Claim),
		Withdraw: withdrawResultFrom(r.Withdraw),
		Bulk:     bulkWithdrawResultFrom(r.Bulk),
		Restake:  restakeResultFrom(r.Restake),
	}
}

func kindLabel(k jar.PendingKind) string {
	switch k {
	case jar.PendingClaim:
		return "claim"
	case jar.PendingWithdraw:
		return "withdraw"
	case jar.PendingRestake:
		return "restake"
	default:
		return "unknown"
	}
}

func productResultFrom(p *jar.Product) productResult {
	out := productResult{
		ID:                    string(p.ID),
		Enabled:               p.Enabled,
		CapMin:                bigString(p.Cap.Min),
		CapMax:                bigString(p.Cap.Max),
		RequiresAuthorization: p.RequiresAuthorization(),
	}
	switch p.Terms.(type) {
	case jar.FixedTerms:
		out.Kind = "fixed"
	case jar.FlexibleTerms:
		out.Kind = "flexible"
	case jar.ScoreBasedTerms:
		out.Kind = "score_based"
	}
	return out
}
