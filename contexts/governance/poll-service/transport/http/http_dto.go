package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type PollResponse struct {
	PollID          int64    `json:"poll_id"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	Status          string   `json:"status"`
	CreatorID       string   `json:"creator_id"`
	TotalFunds      int64    `json:"total_funds"`
	CreatedAt       string   `json:"created_at"`
	VotingStartedAt string   `json:"voting_started_at,omitempty"`
	VotingEndedAt   string   `json:"voting_ended_at,omitempty"`
	WithdrawnAt     string   `json:"withdrawn_at,omitempty"`
}

type CastVoteRequest struct {
	OptionIndex  int   `json:"option_index"`
	Contribution int64 `json:"contribution"`
}

type CastVoteResponse struct {
	PollID       int64  `json:"poll_id"`
	VoterID      string `json:"voter_id"`
	OptionIndex  int    `json:"option_index"`
	Contribution int64  `json:"contribution"`
	CastAt       string `json:"cast_at"`
}

type WithdrawFundsResponse struct {
	PollID    int64  `json:"poll_id"`
	CreatorID string `json:"creator_id"`
	Amount    int64  `json:"amount"`
}

type PollResultsResponse struct {
	PollID     int64    `json:"poll_id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Status     string   `json:"status"`
	Counts     []int64  `json:"counts"`
	Winners    []bool   `json:"winners"`
	TotalVotes int64    `json:"total_votes"`
	TotalFunds int64    `json:"total_funds"`
}

type OptionTallyResponse struct {
	PollID      int64 `json:"poll_id"`
	OptionIndex int   `json:"option_index"`
	Count       int64 `json:"count"`
}
