package rpc

import (
	"net/http"
	"testing"

	"jarvault/config"
)

func registerFlexible(t *testing.T, env *testEnv, id string, apyBps uint64) {
	t.Helper()
	params := registerProductParams{Product: config.GenesisProduct{
		ID:      id,
		Enabled: true,
		CapMin:  "1",
		CapMax:  "1000000000000",
		Terms:   config.GenesisTerms{Kind: "flexible", ApyBps: apyBps},
	}}
	_, rpcErr := env.call(t, "jar_registerProduct", params, testToken)
	if rpcErr != nil {
		t.Fatalf("register %s: %+v", id, rpcErr)
	}
}

func deposit(t *testing.T, env *testEnv, caller, productID, amount string) {
	t.Helper()
	_, rpcErr := env.call(t, "jar_deposit", depositParams{
		Caller:    caller,
		ProductID: productID,
		Amount:    amount,
	}, "")
	if rpcErr != nil {
		t.Fatalf("deposit: %+v", rpcErr)
	}
}

func getJars(t *testing.T, env *testEnv, address string) []jarEntryResult {
	t.Helper()
	raw, rpcErr := env.call(t, "jar_getJars", addressParams{Address: address}, "")
	if rpcErr != nil {
		t.Fatalf("getJars: %+v", rpcErr)
	}
	var jars []jarEntryResult
	unmarshalResult(t, raw, &jars)
	return jars
}

func TestDepositAndListFlow(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "flex", 1200)
	caller := testBech32(0x11)

	raw, rpcErr := env.call(t, "jar_listProducts", nil, "")
	if rpcErr != nil {
		t.Fatalf("listProducts: %+v", rpcErr)
	}
	var products []productResult
	unmarshalResult(t, raw, &products)
	if len(products) != 1 || products[0].ID != "flex" || products[0].Kind != "flexible" {
		t.Fatalf("products = %+v", products)
	}

	deposit(t, env, caller, "flex", "5000")

	jars := getJars(t, env, caller)
	if len(jars) != 1 {
		t.Fatalf("jars = %+v", jars)
	}
	if jars[0].ProductID != "flex" || jars[0].Principal != "5000" || jars[0].DepositCount != 1 {
		t.Fatalf("jar = %+v", jars[0])
	}
	if jars[0].PendingWithdraw {
		t.Fatal("fresh jar reported as pending withdraw")
	}

	raw, rpcErr = env.call(t, "jar_getTotalInterest", addressParams{Address: caller}, "")
	if rpcErr != nil {
		t.Fatalf("getTotalInterest: %+v", rpcErr)
	}
	var interest interestResult
	unmarshalResult(t, raw, &interest)
	if interest.Total != "0" {
		t.Fatalf("interest just after deposit = %s", interest.Total)
	}
}

func TestClaimResolveFlow(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "flex", 700)
	caller := testBech32(0x22)

	deposit(t, env, caller, "flex", "1000000000")
	env.advanceDays(365)

	raw, rpcErr := env.call(t, "jar_claimTotal", claimTotalParams{Caller: caller, Detailed: true}, "")
	if rpcErr != nil {
		t.Fatalf("claimTotal: %+v", rpcErr)
	}
	var outcome outcomeResult
	unmarshalResult(t, raw, &outcome)
	if !outcome.Pending || outcome.RequestID != "req-1" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Claim == nil || outcome.Claim.Total != "70000000" {
		t.Fatalf("claim = %+v", outcome.Claim)
	}
	if outcome.Claim.Detailed["flex"] != "70000000" {
		t.Fatalf("detailed = %+v", outcome.Claim.Detailed)
	}

	intents := env.vault.Pending()
	if len(intents) != 1 || intents[0].RequestID != "req-1" || intents[0].Amount.String() != "70000000" {
		t.Fatalf("vault intents = %+v", intents)
	}

	raw, rpcErr = env.call(t, "jar_resolveTransfer", resolveTransferParams{RequestID: "req-1", Success: true}, testToken)
	if rpcErr != nil {
		t.Fatalf("resolveTransfer: %+v", rpcErr)
	}
	var resolution resolutionResult
	unmarshalResult(t, raw, &resolution)
	if resolution.Kind != "claim" || !resolution.Success {
		t.Fatalf("resolution = %+v", resolution)
	}

	// The intent was consumed and the pending record deleted.
	if len(env.vault.Pending()) != 0 {
		t.Fatal("vault intent survived settlement")
	}
	rec := env.post(t, mustRequestBody(t, "jar_resolveTransfer", resolveTransferParams{RequestID: "req-1", Success: true}), testToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second resolve status = %d, want 404", rec.Code)
	}
}

func TestWithdrawResolveFlow(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "flex0", 0)
	caller := testBech32(0x33)

	deposit(t, env, caller, "flex0", "1000")

	raw, rpcErr := env.call(t, "jar_withdraw", withdrawParams{Caller: caller, ProductID: "flex0"}, "")
	if rpcErr != nil {
		t.Fatalf("withdraw: %+v", rpcErr)
	}
	var outcome outcomeResult
	unmarshalResult(t, raw, &outcome)
	if !outcome.Pending || outcome.Withdraw == nil {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Withdraw.Withdrawn != "1000" || outcome.Withdraw.Fee != "0" {
		t.Fatalf("withdraw view = %+v", outcome.Withdraw)
	}

	jars := getJars(t, env, caller)
	if len(jars) != 1 || !jars[0].PendingWithdraw {
		t.Fatalf("jars while in flight = %+v", jars)
	}

	raw, rpcErr = env.call(t, "jar_resolveTransfer", resolveTransferParams{RequestID: outcome.RequestID, Success: true}, testToken)
	if rpcErr != nil {
		t.Fatalf("resolveTransfer: %+v", rpcErr)
	}
	var resolution resolutionResult
	unmarshalResult(t, raw, &resolution)
	if resolution.Kind != "withdraw" || !resolution.Success {
		t.Fatalf("resolution = %+v", resolution)
	}
	if resolution.Withdraw == nil || resolution.Withdraw.Withdrawn != "1000" {
		t.Fatalf("resolution view = %+v", resolution.Withdraw)
	}

	if jars := getJars(t, env, caller); len(jars) != 0 {
		t.Fatalf("jars after settlement = %+v", jars)
	}
}

func TestRestakeOverRPC(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "dst", 0)
	registerFlexible(t, env, "src", 0)
	caller := testBech32(0x44)

	deposit(t, env, caller, "src", "1000")

	// Moving the full amount needs no token transfer and settles in place.
	raw, rpcErr := env.call(t, "jar_restakeAll", restakeParams{
		Caller: caller,
		Amount: "1000",
		Ticket: &ticketParam{
			Receiver:   caller,
			ProductID:  "dst",
			Amount:     "1000",
			ValidUntil: env.now + ticketGrace,
		},
	}, "")
	if rpcErr != nil {
		t.Fatalf("restakeAll: %+v", rpcErr)
	}
	var outcome outcomeResult
	unmarshalResult(t, raw, &outcome)
	if outcome.Pending || outcome.RequestID != "" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Restake == nil || outcome.Restake.Deposited != "1000" || outcome.Restake.Withdrawn != "0" {
		t.Fatalf("restake view = %+v", outcome.Restake)
	}

	jars := getJars(t, env, caller)
	if len(jars) != 1 || jars[0].ProductID != "dst" || jars[0].Principal != "1000" {
		t.Fatalf("jars after restake = %+v", jars)
	}
}

func TestRestakeAmountDefaultsToEverythingMature(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "dst", 0)
	registerFlexible(t, env, "src", 0)
	caller := testBech32(0x77)

	deposit(t, env, caller, "src", "1000")

	// Omitting the amount sweeps the full matured total into the target.
	raw, rpcErr := env.call(t, "jar_restakeAll", restakeParams{
		Caller: caller,
		Ticket: &ticketParam{
			Receiver:   caller,
			ProductID:  "dst",
			Amount:     "1000",
			ValidUntil: env.now + ticketGrace,
		},
	}, "")
	if rpcErr != nil {
		t.Fatalf("restakeAll: %+v", rpcErr)
	}
	var outcome outcomeResult
	unmarshalResult(t, raw, &outcome)
	if outcome.Restake == nil || outcome.Restake.Deposited != "1000" || outcome.Restake.Withdrawn != "0" {
		t.Fatalf("restake view = %+v", outcome.Restake)
	}
	jars := getJars(t, env, caller)
	if len(jars) != 1 || jars[0].ProductID != "dst" || jars[0].Principal != "1000" {
		t.Fatalf("jars after restake = %+v", jars)
	}

	// An explicit zero is a caller mistake, not a sweep.
	_, rpcErr = env.call(t, "jar_restakeAll", restakeParams{
		Caller: caller,
		Amount: "0",
		Ticket: &ticketParam{
			Receiver:   caller,
			ProductID:  "dst",
			Amount:     "0",
			ValidUntil: env.now + ticketGrace,
		},
	}, "")
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("zero amount: %+v", rpcErr)
	}
}

const ticketGrace = int64(60 * 60 * 1000)

func TestScoreAndPenaltyOverRPC(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "flex", 0)
	caller := testBech32(0x55)
	deposit(t, env, caller, "flex", "100")

	raw, rpcErr := env.call(t, "jar_recordScore", recordScoreParams{
		Address: caller,
		Entries: []scoreEntryParam{
			{Score: 10, Timestamp: env.now},
			{Score: 5, Timestamp: env.now - 1000},
		},
	}, testToken)
	if rpcErr != nil {
		t.Fatalf("recordScore: %+v", rpcErr)
	}
	var scored recordScoreResult
	unmarshalResult(t, raw, &scored)
	if scored.Submitted != 2 {
		t.Fatalf("submitted = %d", scored.Submitted)
	}

	if _, rpcErr := env.call(t, "jar_setPenalty", setPenaltyParams{Address: caller, Applied: true}, testToken); rpcErr != nil {
		t.Fatalf("setPenalty: %+v", rpcErr)
	}
}

func TestParamValidationOverRPC(t *testing.T) {
	env := newTestEnv(t)
	registerFlexible(t, env, "flex", 0)

	_, rpcErr := env.call(t, "jar_deposit", depositParams{Caller: "not-an-address", ProductID: "flex", Amount: "10"}, "")
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("bad caller: %+v", rpcErr)
	}
	_, rpcErr = env.call(t, "jar_deposit", depositParams{Caller: testBech32(0x66), ProductID: "flex", Amount: "-5"}, "")
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("negative amount: %+v", rpcErr)
	}

	rec := env.post(t, mustRequestBody(t, "jar_deposit", depositParams{
		Caller:    testBech32(0x66),
		ProductID: "ghost",
		Amount:    "10",
	}), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product status = %d, want 404", rec.Code)
	}
}
