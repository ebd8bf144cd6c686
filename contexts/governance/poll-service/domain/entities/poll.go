package entities

import "time"

// PollStatus is the lifecycle state of a poll. Transitions move strictly
// forward: created -> voting -> ended.
type PollStatus string

const (
	PollStatusCreated PollStatus = "created"
	PollStatusVoting  PollStatus = "voting"
	PollStatusEnded   PollStatus = "ended"
)

// Poll is the aggregate root: question, immutable option list, lifecycle
// state, and the escrowed contribution total. TotalFunds is kept in the
// currency's smallest unit.
type Poll struct {
	PollID          int64
	Question        string
	Options         []string
	Status          PollStatus
	CreatorID       string
	TotalFunds      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	VotingStartedAt *time.Time
	VotingEndedAt   *time.Time
	WithdrawnAt     *time.Time
}

// OptionCount returns the number of options the poll was created with.
func (p Poll) OptionCount() int {
	return len(p.Options)
}

// HasOption reports whether index addresses one of the poll's options.
func (p Poll) HasOption(index int) bool {
	return index >= 0 && index < len(p.Options)
}

// VoterRecord is the write-once participation record for one voter on one
// poll. Contribution equals the amount this vote added to the poll's
// TotalFunds.
type VoterRecord struct {
	PollID       int64
	VoterID      string
	OptionIndex  int
	Contribution int64
	CastAt       time.Time
}

// Tally holds per-option vote counts in option order. Counts are sized to
// the poll's option count at creation and stay zero-filled for options
// nobody voted for.
type Tally struct {
	PollID int64
	Counts []int64
}

// Max returns the highest count across all options, 0 when no votes exist.
func (t Tally) Max() int64 {
	var max int64
	for _, count := range t.Counts {
		if count > max {
			max = count
		}
	}
	return max
}

// TotalVotes returns the sum of all option counts.
func (t Tally) TotalVotes() int64 {
	var total int64
	for _, count := range t.Counts {
		total += count
	}
	return total
}

// WinnerFlags marks every option whose count equals the maximum. With no
// votes every count equals the zero maximum, so all options are winners.
func (t Tally) WinnerFlags() []bool {
	max := t.Max()
	flags := make([]bool, len(t.Counts))
	for i, count := range t.Counts {
		flags[i] = count == max
	}
	return flags
}

// PollResults is the read model combining a poll with its frozen-or-live
// tally and derived winner flags.
type PollResults struct {
	PollID     int64
	Question   string
	Options    []string
	Status     PollStatus
	Counts     []int64
	Winners    []bool
	TotalVotes int64
	TotalFunds int64
}
