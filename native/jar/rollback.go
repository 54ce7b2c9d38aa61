package jar

import "math/big"

// JarCompanion is a sparse change-set of exactly the jar fields a failed
// transfer may need to revert. Apply only touches the fields that were
// captured; everything else on the jar stays as-is.
type JarCompanion struct {
	PendingWithdraw *bool
	ClaimRemainder  *uint64
	Claimed         *big.Int
	CacheSet        bool
	Cache           *JarCache
}

// CaptureClaimCompanion snapshots the fields a claim settlement mutates. It
// must be taken before the jar is touched.
func CaptureClaimCompanion(j *Jar) *JarCompanion {
	pending := j.PendingWithdraw
	remainder := j.ClaimRemainder
	claimed := big.NewInt(0)
	if j.Claimed != nil {
		claimed = new(big.Int).Set(j.Claimed)
	}
	return &JarCompanion{
		PendingWithdraw: &pending,
		ClaimRemainder:  &remainder,
		Claimed:         claimed,
		CacheSet:        true,
		Cache:           j.Cache.Clone(),
	}
}

// Apply restores the captured fields onto the jar.
func (c *JarCompanion) Apply(j *Jar) {
	if c == nil || j == nil {
		return
	}
	if c.PendingWithdraw != nil {
		j.PendingWithdraw = *c.PendingWithdraw
	}
	if c.ClaimRemainder != nil {
		j.ClaimRemainder = *c.ClaimRemainder
	}
	if c.Claimed != nil {
		j.Claimed = new(big.Int).Set(c.Claimed)
	}
	if c.CacheSet {
		j.Cache = c.Cache.Clone()
	}
}

// AccountCompanion is the account-level rollback record for an in-flight
// claim: per-jar companions plus the pre-claim score window.
type AccountCompanion struct {
	Jars     map[ProductID]*JarCompanion
	ScoreSet bool
	Score    *AccountScore
}

func NewAccountCompanion() *AccountCompanion {
	return &AccountCompanion{Jars: make(map[ProductID]*JarCompanion)}
}

// CaptureScore snapshots the score window before ClaimScore consumes it.
func (c *AccountCompanion) CaptureScore(s *AccountScore) {
	c.ScoreSet = true
	c.Score = s.Clone()
}

// Apply restores every captured jar and, when captured, the score window.
func (c *AccountCompanion) Apply(acct *Account) {
	if c == nil || acct == nil {
		return
	}
	for id, jc := range c.Jars {
		if j := acct.Jar(id); j != nil {
			jc.Apply(j)
		}
	}
	if c.ScoreSet {
		acct.Score = c.Score.Clone()
	}
}
