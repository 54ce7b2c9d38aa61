package state

import (
	"fmt"
	"math/big"
	"sort"

	"jarvault/crypto"
	"jarvault/native/jar"
)

type storedWithdrawal struct {
	ProductID string
	Amount    *big.Int
	Fee       *big.Int
	Partition uint32
}

type storedJarCompanion struct {
	ProductID    string
	HasPending   bool
	Pending      bool
	HasRemainder bool
	Remainder    uint64
	HasClaimed   bool
	Claimed      *big.Int
	CacheSet     bool
	HasCache     bool
	Cache        storedCache
}

type storedCompanion struct {
	Jars     []storedJarCompanion
	ScoreSet bool
	HasScore bool
	Score    storedScore
}

type storedClaimedEntry struct {
	ProductID string
	Amount    *big.Int
}

type storedRestake struct {
	TargetProduct string
	DepositAmount *big.Int
	BumpNonce     bool
	Sources       []storedWithdrawal
}

type storedPendingTransfer struct {
	ID           string
	Kind         uint8
	Account      []byte
	Net          *big.Int
	HasCompanion bool
	Companion    storedCompanion
	Withdrawals  []storedWithdrawal
	HasRestake   bool
	Restake      storedRestake
	Bulk         bool
	Detailed     bool
	Claimed      []storedClaimedEntry
	CreatedAt    uint64
}

func pendingKey(id string) []byte {
	return append(append([]byte(nil), pendingPrefix...), []byte(id)...)
}

// GetPendingTransfer loads the continuation for an in-flight transfer, or nil
// when the request id is unknown or already resolved.
func (m *Manager) GetPendingTransfer(id string) (*jar.PendingTransfer, error) {
	var stored storedPendingTransfer
	ok, err := m.get(pendingKey(id), &stored)
	if err != nil {
		return nil, fmt.Errorf("state: load pending transfer %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return pendingFromStored(&stored)
}

// PutPendingTransfer persists the continuation under its request id.
func (m *Manager) PutPendingTransfer(p *jar.PendingTransfer) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("state: pending transfer requires an id")
	}
	if err := m.put(pendingKey(p.ID), pendingToStored(p)); err != nil {
		return fmt.Errorf("state: store pending transfer %s: %w", p.ID, err)
	}
	return nil
}

// DeletePendingTransfer removes a resolved continuation.
func (m *Manager) DeletePendingTransfer(id string) error {
	return m.db.Delete(pendingKey(id))
}

func pendingToStored(p *jar.PendingTransfer) *storedPendingTransfer {
	stored := &storedPendingTransfer{
		ID:        p.ID,
		Kind:      uint8(p.Kind),
		Account:   p.Account.Bytes(),
		Net:       amountOrZero(p.Net),
		Bulk:      p.Bulk,
		Detailed:  p.Detailed,
		CreatedAt: uint64(p.CreatedAt),
	}
	if p.Companion != nil {
		stored.HasCompanion = true
		stored.Companion = companionToStored(p.Companion)
	}
	for _, d := range p.Withdrawals {
		stored.Withdrawals = append(stored.Withdrawals, withdrawalToStored(d))
	}
	if p.Restake != nil {
		stored.HasRestake = true
		stored.Restake = storedRestake{
			TargetProduct: string(p.Restake.TargetProduct),
			DepositAmount: amountOrZero(p.Restake.DepositAmount),
			BumpNonce:     p.Restake.BumpNonce,
		}
		for _, d := range p.Restake.Sources {
			stored.Restake.Sources = append(stored.Restake.Sources, withdrawalToStored(d))
		}
	}
	for _, id := range sortedClaimKeys(p.Claimed) {
		stored.Claimed = append(stored.Claimed, storedClaimedEntry{
			ProductID: string(id),
			Amount:    amountOrZero(p.Claimed[id]),
		})
	}
	return stored
}

func pendingFromStored(stored *storedPendingTransfer) (*jar.PendingTransfer, error) {
	if len(stored.Account) != 20 {
		return nil, fmt.Errorf("state: pending transfer %s has a malformed account", stored.ID)
	}
	p := &jar.PendingTransfer{
		ID:        stored.ID,
		Kind:      jar.PendingKind(stored.Kind),
		Account:   crypto.NewAddress(crypto.JarPrefix, stored.Account),
		Net:       amountOrZero(stored.Net),
		Bulk:      stored.Bulk,
		Detailed:  stored.Detailed,
		CreatedAt: int64(stored.CreatedAt),
	}
	if stored.HasCompanion {
		companion, err := companionFromStored(stored.Companion)
		if err != nil {
			return nil, fmt.Errorf("state: pending transfer %s: %w", stored.ID, err)
		}
		p.Companion = companion
	}
	for _, d := range stored.Withdrawals {
		p.Withdrawals = append(p.Withdrawals, withdrawalFromStored(d))
	}
	if stored.HasRestake {
		p.Restake = &jar.RestakeDescriptor{
			TargetProduct: jar.ProductID(stored.Restake.TargetProduct),
			DepositAmount: amountOrZero(stored.Restake.DepositAmount),
			BumpNonce:     stored.Restake.BumpNonce,
		}
		for _, d := range stored.Restake.Sources {
			p.Restake.Sources = append(p.Restake.Sources, withdrawalFromStored(d))
		}
	}
	if len(stored.Claimed) > 0 {
		p.Claimed = make(map[jar.ProductID]*big.Int, len(stored.Claimed))
		for _, entry := range stored.Claimed {
			p.Claimed[jar.ProductID(entry.ProductID)] = amountOrZero(entry.Amount)
		}
	}
	return p, nil
}

func withdrawalToStored(d jar.WithdrawalDescriptor) storedWithdrawal {
	return storedWithdrawal{
		ProductID: string(d.ProductID),
		Amount:    amountOrZero(d.Amount),
		Fee:       amountOrZero(d.Fee),
		Partition: uint32(d.Partition),
	}
}

func withdrawalFromStored(stored storedWithdrawal) jar.WithdrawalDescriptor {
	return jar.WithdrawalDescriptor{
		ProductID: jar.ProductID(stored.ProductID),
		Amount:    amountOrZero(stored.Amount),
		Fee:       amountOrZero(stored.Fee),
		Partition: int(stored.Partition),
	}
}

func companionToStored(c *jar.AccountCompanion) storedCompanion {
	stored := storedCompanion{ScoreSet: c.ScoreSet}
	for _, id := range sortedCompanionKeys(c.Jars) {
		jc := c.Jars[id]
		entry := storedJarCompanion{ProductID: string(id), CacheSet: jc.CacheSet}
		if jc.PendingWithdraw != nil {
			entry.HasPending = true
			entry.Pending = *jc.PendingWithdraw
		}
		if jc.ClaimRemainder != nil {
			entry.HasRemainder = true
			entry.Remainder = *jc.ClaimRemainder
		}
		if jc.Claimed != nil {
			entry.HasClaimed = true
			entry.Claimed = jc.Claimed
		}
		if jc.Cache != nil {
			entry.HasCache = true
			entry.Cache = storedCache{
				UpdatedAt:      uint64(jc.Cache.UpdatedAt),
				ScoreSettledAt: uint64(jc.Cache.ScoreSettledAt),
				Interest:       amountOrZero(jc.Cache.Interest),
			}
		}
		stored.Jars = append(stored.Jars, entry)
	}
	if c.ScoreSet && c.Score != nil {
		stored.HasScore = true
		stored.Score = scoreToStored(c.Score)
	}
	return stored
}

func companionFromStored(stored storedCompanion) (*jar.AccountCompanion, error) {
	c := jar.NewAccountCompanion()
	c.ScoreSet = stored.ScoreSet
	for _, entry := range stored.Jars {
		jc := &jar.JarCompanion{CacheSet: entry.CacheSet}
		if entry.HasPending {
			pending := entry.Pending
			jc.PendingWithdraw = &pending
		}
		if entry.HasRemainder {
			remainder := entry.Remainder
			jc.ClaimRemainder = &remainder
		}
		if entry.HasClaimed {
			jc.Claimed = amountOrZero(entry.Claimed)
		}
		if entry.HasCache {
			jc.Cache = &jar.JarCache{
				UpdatedAt:      int64(entry.Cache.UpdatedAt),
				ScoreSettledAt: int64(entry.Cache.ScoreSettledAt),
				Interest:       amountOrZero(entry.Cache.Interest),
			}
		}
		c.Jars[jar.ProductID(entry.ProductID)] = jc
	}
	if stored.HasScore {
		score, err := scoreFromStored(stored.Score)
		if err != nil {
			return nil, err
		}
		c.Score = score
	}
	return c, nil
}

func sortedClaimKeys(claimed map[jar.ProductID]*big.Int) []jar.ProductID {
	ids := make([]jar.ProductID, 0, len(claimed))
	for id := range claimed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	return ids
}

func sortedCompanionKeys(jars map[jar.ProductID]*jar.JarCompanion) []jar.ProductID {
	ids := make([]jar.ProductID, 0, len(jars))
	for id := range jars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	return ids
}
