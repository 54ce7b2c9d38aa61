package jar

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"jarvault/core/events"
)

func TestClaimTotalNothingAccrued(t *testing.T) {
	e, st, tr, _ := newTestEngine(t)
	st.products["fixed"] = fixedProduct("fixed", 365*MsInDay, 12)
	caller := testAddr(0x01)
	mustDeposit(t, e, caller, "fixed", 100_000_000)

	outcome, err := e.ClaimTotal(caller, false)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if outcome.RequestID != "" {
		t.Fatalf("zero claim spawned transfer %s", outcome.RequestID)
	}
	if outcome.Claim.Total.Sign() != 0 {
		t.Fatalf("total = %s, want 0", outcome.Claim.Total)
	}
	if len(tr.requests) != 0 || len(st.pending) != 0 {
		t.Fatal("zero claim left a pending transfer behind")
	}
	if st.accounts[caller.String()].Jars["fixed"].PendingWithdraw {
		t.Fatal("zero claim locked the jar")
	}
}

func TestClaimTotalLifecycle(t *testing.T) {
	e, st, tr, clock := newTestEngine(t)
	emitter := &events.CollectEmitter{}
	e.SetEmitter(emitter)
	st.products["fixed"] = fixedProduct("fixed", 365*MsInDay, 12)
	caller := testAddr(0x01)
	mustDeposit(t, e, caller, "fixed", 100_000_000)
	clock.now = 365 * MsInDay

	outcome, err := e.ClaimTotal(caller, true)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if outcome.RequestID == "" {
		t.Fatal("no request id")
	}
	if outcome.Claim.Total.Int64() != 12_000_000 {
		t.Fatalf("total = %s, want 12000000", outcome.Claim.Total)
	}
	if outcome.Claim.Detailed["fixed"].Int64() != 12_000_000 {
		t.Fatalf("detailed = %v", outcome.Claim.Detailed)
	}
	if len(tr.requests) != 1 || tr.requests[0].amount.Int64() != 12_000_000 {
		t.Fatalf("transfer requests = %+v", tr.requests)
	}
	persisted := st.accounts[caller.String()]
	if !persisted.Jars["fixed"].PendingWithdraw {
		t.Fatal("jar not locked while transfer is in flight")
	}
	if persisted.Jars["fixed"].Claimed.Int64() != 12_000_000 {
		t.Fatalf("claimed counter = %s", persisted.Jars["fixed"].Claimed)
	}

	resolution, err := e.ResolveTransfer(outcome.RequestID, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolution.Success || resolution.Claim.Total.Int64() != 12_000_000 {
		t.Fatalf("resolution = %+v", resolution)
	}
	persisted = st.accounts[caller.String()]
	if persisted.Jars["fixed"].PendingWithdraw {
		t.Fatal("jar still locked after successful resolve")
	}
	if len(st.pending) != 0 {
		t.Fatal("pending record not consumed")
	}

	var claimed bool
	for _, ev := range emitter.Events {
		if ev.EventType() == events.TypeJarClaimed {
			claimed = true
		}
	}
	if !claimed {
		t.Fatal("no jar.claimed event emitted")
	}

	// An immediate follow-up claim finds nothing: the cache was re-anchored.
	again, err := e.ClaimTotal(caller, false)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again.Claim.Total.Sign() != 0 || again.RequestID != "" {
		t.Fatalf("second claim = %+v, want zero no-op", again.Claim)
	}
}

func TestClaimRollbackRestoresAccount(t *testing.T) {
	e, st, _, clock := newTestEngine(t)
	st.products["fixed"] = fixedProduct("fixed", 365*MsInDay, 12)
	st.products["flex"] = flexibleProduct("flex", 7)
	caller := testAddr(0x02)
	mustDeposit(t, e, caller, "fixed", 100_000_000)
	mustDeposit(t, e, caller, "flex", 50_000_000)
	clock.now = 200 * MsInDay

	before := st.accounts[caller.String()].Clone()

	outcome, err := e.ClaimTotal(caller, false)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	resolution, err := e.ResolveTransfer(outcome.RequestID, false)
	if err != nil {
		t.Fatalf("resolve failure: %v", err)
	}
	if resolution.Success {
		t.Fatal("failed transfer reported success")
	}
	if resolution.Claim.Total.Sign() != 0 {
		t.Fatalf("rolled-back claim view = %s, want 0", resolution.Claim.Total)
	}

	after := st.accounts[caller.String()]
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rollback drifted:\nbefore %+v\nafter  %+v", before, after)
	}
	if len(st.pending) != 0 {
		t.Fatal("pending record survived rollback")
	}
}

func TestClaimSynchronousTransferRefusal(t *testing.T) {
	e, st, tr, clock := newTestEngine(t)
	st.products["fixed"] = fixedProduct("fixed", 365*MsInDay, 12)
	caller := testAddr(0x03)
	mustDeposit(t, e, caller, "fixed", 100_000_000)
	clock.now = 365 * MsInDay

	before := st.accounts[caller.String()].Clone()
	tr.err = errors.New("ledger refused")

	if _, err := e.ClaimTotal(caller, false); err == nil {
		t.Fatal("expected synchronous refusal to surface")
	}
	if len(st.pending) != 0 {
		t.Fatal("refused transfer left a pending record")
	}
	if !reflect.DeepEqual(before, st.accounts[caller.String()]) {
		t.Fatal("refused transfer left the account mutated")
	}
}

func TestClaimSkipsLockedJars(t *testing.T) {
	e, st, _, clock := newTestEngine(t)
	st.products["fixed"] = fixedProduct("fixed", 365*MsInDay, 12)
	st.products["flex"] = flexibleProduct("flex", 7)
	caller := testAddr(0x04)
	mustDeposit(t, e, caller, "fixed", 100_000_000)
	mustDeposit(t, e, caller, "flex", 100_000_000)
	clock.now = 365 * MsInDay

	acct := st.accounts[caller.String()]
	acct.Jars["fixed"].Lock()
	st.accounts[caller.String()] = acct

	outcome, err := e.ClaimTotal(caller, true)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, ok := outcome.Claim.Detailed["fixed"]; ok {
		t.Fatal("locked jar was claimed")
	}
	if _, ok := outcome.Claim.Detailed["flex"]; !ok {
		t.Fatal("unlocked jar was skipped")
	}
}

func TestClaimUnknownAccount(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	if _, err := e.ClaimTotal(testAddr(0x05), false); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestResolveUnknownRequest(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	if _, err := e.ResolveTransfer("missing", true); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("err = %v, want ErrPendingNotFound", err)
	}
}

func TestClaimAfterWithdrawSettlementPaysScoreDayOnce(t *testing.T) {
	e, st, _, clock := newTestEngine(t)
	st.products["score"] = &Product{
		ID:      "score",
		Cap:     Cap{Min: big.NewInt(1), Max: big.NewInt(1_000_000_000_000)},
		Terms:   ScoreBasedTerms{ScoreCap: 100, LockupTerm: 30 * MsInDay},
		Enabled: true,
	}
	caller := testAddr(0x07)
	mustDeposit(t, e, caller, "score", 1_000)
	clock.now = 25 * MsInDay
	mustDeposit(t, e, caller, "score", 365_000_000)
	clock.now = 40 * MsInDay

	acct := st.accounts[caller.String()]
	acct.Score = NewAccountScore(0, clock.now)
	if _, err := acct.Score.Record(ScoreEntry{Score: 60, Timestamp: clock.now}, clock.now); err != nil {
		t.Fatalf("record: %v", err)
	}
	st.accounts[caller.String()] = acct

	// The withdrawal sweeps the matured first deposit and settles the
	// locked deposit's day quantum, 6000, into the cache.
	outcome, err := e.Withdraw(caller, "score")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if outcome.Withdraw.Withdrawn.Int64() != 1_000 {
		t.Fatalf("withdrawn = %s, want 1000", outcome.Withdraw.Withdrawn)
	}
	if _, err := e.ResolveTransfer(outcome.RequestID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// The claim pays out the settled quantum exactly once, not the cache
	// plus a second quantum from the same score window.
	claim, err := e.ClaimTotal(caller, false)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.Claim.Total.Int64() != 6_000 {
		t.Fatalf("claimed = %s, want 6000", claim.Claim.Total)
	}
}

func TestClaimFlexibleAmount(t *testing.T) {
	e, st, _, clock := newTestEngine(t)
	st.products["flex"] = flexibleProduct("flex", 7)
	caller := testAddr(0x06)
	mustDeposit(t, e, caller, "flex", 100_000_000)
	clock.now = 365 * MsInDay

	outcome, err := e.ClaimTotal(caller, false)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if outcome.Claim.Total.Int64() != 7_000_000 {
		t.Fatalf("total = %s, want 7000000", outcome.Claim.Total)
	}
	if _, err := e.ResolveTransfer(outcome.RequestID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
}
