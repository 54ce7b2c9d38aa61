package jar

// ScoreEntry is one externally reported activity record.
type ScoreEntry struct {
	Score     uint64
	Timestamp int64
}

// AccountScore is a two-slot rolling window of daily activity totals, bucketed
// by local day in the account's timezone. Scores[0] accumulates "today",
// Scores[1] holds "yesterday"; anything older is outside the window.
type AccountScore struct {
	// Updated is the UTC millisecond timestamp of the last mutation; its
	// local day anchors the window.
	Updated int64
	// TimezoneOffset is the account's offset from UTC in minutes.
	TimezoneOffset int64
	Scores         [2]uint64
	ScoresHistory  [2]uint64
}

// NewAccountScore creates an empty window anchored at now for the timezone.
func NewAccountScore(offsetMinutes int64, now int64) *AccountScore {
	return &AccountScore{Updated: now, TimezoneOffset: offsetMinutes}
}

func (s *AccountScore) Clone() *AccountScore {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

func (s *AccountScore) dayNumber(ts int64) int64 {
	return (ts + s.TimezoneOffset*60_000) / MsInDay
}

// rollOver shifts the window so Scores[0] tracks the local day of now. It
// must run before every mutation.
func (s *AccountScore) rollOver(now int64) {
	delta := s.dayNumber(now) - s.dayNumber(s.Updated)
	switch {
	case delta <= 0:
	case delta == 1:
		s.Scores[1] = s.Scores[0]
		s.Scores[0] = 0
	default:
		s.Scores[0] = 0
		s.Scores[1] = 0
	}
}

// Record applies one score entry. A future-dated entry is a fatal caller
// error; an entry older than the two-day window is dropped and reported via
// the returned flag so the caller can emit a warning event.
func (s *AccountScore) Record(entry ScoreEntry, now int64) (bool, error) {
	if entry.Timestamp > now {
		return false, ErrScoreFromFuture
	}
	s.rollOver(now)
	s.Updated = now
	age := s.dayNumber(now) - s.dayNumber(entry.Timestamp)
	if age < 0 || age > 1 {
		return false, nil
	}
	s.Scores[age] += entry.Score
	return true, nil
}

// ActiveScore returns the total of the most recently completed local day.
func (s *AccountScore) ActiveScore(now int64) uint64 {
	if s == nil {
		return 0
	}
	switch s.dayNumber(now) - s.dayNumber(s.Updated) {
	case 0:
		return s.Scores[1]
	case 1:
		return s.Scores[0]
	default:
		return 0
	}
}

// ClaimableScores returns the not-yet-claimed slots still inside the window:
// both slots when the record was touched today, only the newest slot when the
// window last moved yesterday, nothing when it is fully stale.
func (s *AccountScore) ClaimableScores(now int64) []uint64 {
	if s == nil {
		return nil
	}
	switch s.dayNumber(now) - s.dayNumber(s.Updated) {
	case 0:
		return []uint64{s.Scores[0], s.Scores[1]}
	case 1:
		return []uint64{s.Scores[0]}
	default:
		return nil
	}
}

// claimableScoresAfter returns the claimable slots whose local day falls
// strictly after the local day of settledAt. A cache settlement that leaves
// the score window intact has already paid the slots visible at that instant,
// so they stay excluded until the window rolls past them. A zero settledAt
// means no such settlement happened and the full claimable set applies.
func (s *AccountScore) claimableScoresAfter(settledAt, now int64) []uint64 {
	if s == nil {
		return nil
	}
	if settledAt <= 0 {
		return s.ClaimableScores(now)
	}
	settledDay := s.dayNumber(settledAt)
	latest := s.dayNumber(s.Updated)
	switch s.dayNumber(now) - latest {
	case 0:
		// Scores[0] covers the day of latest, Scores[1] the day before.
		if latest-1 > settledDay {
			return []uint64{s.Scores[0], s.Scores[1]}
		}
		if latest > settledDay {
			return []uint64{s.Scores[0]}
		}
		return nil
	case 1:
		if latest > settledDay {
			return []uint64{s.Scores[0]}
		}
		return nil
	default:
		return nil
	}
}

// ClaimScore consumes the claimable slots, moving them into the history
// buffer, and re-anchors the window at now. It returns the raw total that was
// consumed (uncapped).
func (s *AccountScore) ClaimScore(now int64) uint64 {
	if s == nil {
		return 0
	}
	s.rollOver(now)
	total := s.Scores[0] + s.Scores[1]
	s.ScoresHistory = s.Scores
	s.Scores[0] = 0
	s.Scores[1] = 0
	s.Updated = now
	return total
}
