package events

import (
	"math/big"
	"strconv"

	"jarvault/core/types"
	"jarvault/crypto"
)

const (
	TypeJarDepositCreated = "jar.deposit_created"
	TypeJarClaimed        = "jar.claimed"
	TypeJarWithdrawn      = "jar.withdrawn"
	TypeJarRestaked       = "jar.restaked"
	TypeJarScoreRecorded  = "jar.score_recorded"
	TypeJarScoreStale     = "jar.score_stale"
	TypeJarPenaltyUpdated = "jar.penalty_updated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}

// JarDepositCreated is emitted after a deposit lands in a jar, including
// deposits produced by a restake.
type JarDepositCreated struct {
	Account   crypto.Address
	ProductID string
	Principal *big.Int
	CreatedAt int64
}

func (JarDepositCreated) EventType() string { return TypeJarDepositCreated }

func (e JarDepositCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeJarDepositCreated,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"product":   e.ProductID,
			"principal": formatAmount(e.Principal),
			"createdAt": intToString(e.CreatedAt),
		},
	}
}

// JarClaimed is emitted once a claim transfer settles successfully.
type JarClaimed struct {
	Account crypto.Address
	Total   *big.Int
	Settled int64
}

func (JarClaimed) EventType() string { return TypeJarClaimed }

func (e JarClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeJarClaimed,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"total":   formatAmount(e.Total),
			"settled": intToString(e.Settled),
		},
	}
}

// JarWithdrawn is emitted once a withdrawal transfer settles successfully.
// Fee is the portion retained in the module fee pool.
type JarWithdrawn struct {
	Account   crypto.Address
	ProductID string
	Amount    *big.Int
	Fee       *big.Int
}

func (JarWithdrawn) EventType() string { return TypeJarWithdrawn }

func (e JarWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeJarWithdrawn,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"product": e.ProductID,
			"amount":  formatAmount(e.Amount),
			"fee":     formatAmount(e.Fee),
		},
	}
}

// JarRestaked is emitted when matured principal moves into a new deposit.
type JarRestaked struct {
	Account       crypto.Address
	TargetProduct string
	Deposited     *big.Int
	Withdrawn     *big.Int
	Fee           *big.Int
}

func (JarRestaked) EventType() string { return TypeJarRestaked }

func (e JarRestaked) Event() *types.Event {
	return &types.Event{
		Type: TypeJarRestaked,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"target":    e.TargetProduct,
			"deposited": formatAmount(e.Deposited),
			"withdrawn": formatAmount(e.Withdrawn),
			"fee":       formatAmount(e.Fee),
		},
	}
}

// JarScoreRecorded is emitted for each applied activity score batch.
type JarScoreRecorded struct {
	Account crypto.Address
	Applied uint64
}

func (JarScoreRecorded) EventType() string { return TypeJarScoreRecorded }

func (e JarScoreRecorded) Event() *types.Event {
	return &types.Event{
		Type: TypeJarScoreRecorded,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"applied": strconv.FormatUint(e.Applied, 10),
		},
	}
}

// JarScoreStale warns that a score record fell outside the 2-day window and
// was dropped without affecting the active score.
type JarScoreStale struct {
	Account   crypto.Address
	Timestamp int64
	Score     uint64
}

func (JarScoreStale) EventType() string { return TypeJarScoreStale }

func (e JarScoreStale) Event() *types.Event {
	return &types.Event{
		Type: TypeJarScoreStale,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"timestamp": intToString(e.Timestamp),
			"score":     strconv.FormatUint(e.Score, 10),
		},
	}
}

// JarPenaltyUpdated records an admin toggling the downgradable-APY penalty.
type JarPenaltyUpdated struct {
	Account crypto.Address
	Applied bool
}

func (JarPenaltyUpdated) EventType() string { return TypeJarPenaltyUpdated }

func (e JarPenaltyUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeJarPenaltyUpdated,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"applied": strconv.FormatBool(e.Applied),
		},
	}
}
