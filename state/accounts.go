package state

import (
	"fmt"
	"math/big"

	"jarvault/crypto"
	"jarvault/native/jar"
)

type storedDeposit struct {
	CreatedAt uint64
	Principal *big.Int
}

type storedCache struct {
	UpdatedAt      uint64
	ScoreSettledAt uint64
	Interest       *big.Int
}

type storedScore struct {
	Updated        uint64
	OffsetNegative bool
	OffsetMinutes  uint64
	Scores         []uint64
	History        []uint64
}

type storedJar struct {
	Deposits        []storedDeposit
	HasCache        bool
	Cache           storedCache
	PendingWithdraw bool
	ClaimRemainder  uint64
	Claimed         *big.Int
}

type storedAccountJar struct {
	ProductID string
	Jar       storedJar
}

type storedAccount struct {
	Nonce          uint32
	Jars           []storedAccountJar
	HasScore       bool
	Score          storedScore
	PenaltyApplied bool
}

func accountKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), addr.Bytes()...)
}

// GetAccount loads the account, or nil when the address never deposited.
func (m *Manager) GetAccount(addr crypto.Address) (*jar.Account, error) {
	var stored storedAccount
	ok, err := m.get(accountKey(addr), &stored)
	if err != nil {
		return nil, fmt.Errorf("state: load account %s: %w", addr, err)
	}
	if !ok {
		return nil, nil
	}
	return accountFromStored(&stored)
}

// PutAccount persists the account under its address.
func (m *Manager) PutAccount(addr crypto.Address, acct *jar.Account) error {
	if acct == nil {
		return fmt.Errorf("state: nil account for %s", addr)
	}
	if err := m.put(accountKey(addr), accountToStored(acct)); err != nil {
		return fmt.Errorf("state: store account %s: %w", addr, err)
	}
	return nil
}

func accountToStored(acct *jar.Account) *storedAccount {
	stored := &storedAccount{
		Nonce:          acct.Nonce,
		PenaltyApplied: acct.PenaltyApplied,
	}
	for _, id := range acct.SortedProductIDs() {
		stored.Jars = append(stored.Jars, storedAccountJar{
			ProductID: string(id),
			Jar:       jarToStored(acct.Jars[id]),
		})
	}
	if acct.Score != nil {
		stored.HasScore = true
		stored.Score = scoreToStored(acct.Score)
	}
	return stored
}

func accountFromStored(stored *storedAccount) (*jar.Account, error) {
	acct := jar.NewAccount()
	acct.Nonce = stored.Nonce
	acct.PenaltyApplied = stored.PenaltyApplied
	for _, entry := range stored.Jars {
		acct.Jars[jar.ProductID(entry.ProductID)] = jarFromStored(entry.Jar)
	}
	if stored.HasScore {
		score, err := scoreFromStored(stored.Score)
		if err != nil {
			return nil, err
		}
		acct.Score = score
	}
	return acct, nil
}

func jarToStored(j *jar.Jar) storedJar {
	stored := storedJar{
		PendingWithdraw: j.PendingWithdraw,
		ClaimRemainder:  j.ClaimRemainder,
		Claimed:         amountOrZero(j.Claimed),
	}
	for _, d := range j.Deposits {
		stored.Deposits = append(stored.Deposits, storedDeposit{
			CreatedAt: uint64(d.CreatedAt),
			Principal: amountOrZero(d.Principal),
		})
	}
	if j.Cache != nil {
		stored.HasCache = true
		stored.Cache = storedCache{
			UpdatedAt:      uint64(j.Cache.UpdatedAt),
			ScoreSettledAt: uint64(j.Cache.ScoreSettledAt),
			Interest:       amountOrZero(j.Cache.Interest),
		}
	}
	return stored
}

func jarFromStored(stored storedJar) *jar.Jar {
	j := &jar.Jar{
		PendingWithdraw: stored.PendingWithdraw,
		ClaimRemainder:  stored.ClaimRemainder,
		Claimed:         amountOrZero(stored.Claimed),
	}
	for _, d := range stored.Deposits {
		j.Deposits = append(j.Deposits, jar.Deposit{
			CreatedAt: int64(d.CreatedAt),
			Principal: amountOrZero(d.Principal),
		})
	}
	if stored.HasCache {
		j.Cache = &jar.JarCache{
			UpdatedAt:      int64(stored.Cache.UpdatedAt),
			ScoreSettledAt: int64(stored.Cache.ScoreSettledAt),
			Interest:       amountOrZero(stored.Cache.Interest),
		}
	}
	return j
}

func scoreToStored(s *jar.AccountScore) storedScore {
	stored := storedScore{
		Updated: uint64(s.Updated),
		Scores:  []uint64{s.Scores[0], s.Scores[1]},
		History: []uint64{s.ScoresHistory[0], s.ScoresHistory[1]},
	}
	if s.TimezoneOffset < 0 {
		stored.OffsetNegative = true
		stored.OffsetMinutes = uint64(-s.TimezoneOffset)
	} else {
		stored.OffsetMinutes = uint64(s.TimezoneOffset)
	}
	return stored
}

func scoreFromStored(stored storedScore) (*jar.AccountScore, error) {
	if len(stored.Scores) != 2 || len(stored.History) != 2 {
		return nil, fmt.Errorf("state: malformed score window")
	}
	offset := int64(stored.OffsetMinutes)
	if stored.OffsetNegative {
		offset = -offset
	}
	return &jar.AccountScore{
		Updated:        int64(stored.Updated),
		TimezoneOffset: offset,
		Scores:         [2]uint64{stored.Scores[0], stored.Scores[1]},
		ScoresHistory:  [2]uint64{stored.History[0], stored.History[1]},
	}, nil
}
