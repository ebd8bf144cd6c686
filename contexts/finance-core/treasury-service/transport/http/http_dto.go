package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LedgerEntryDTO struct {
	EntryID       string `json:"entry_id"`
	PollID        int64  `json:"poll_id"`
	EntryType     string `json:"entry_type"`
	ActorID       string `json:"actor_id"`
	Amount        int64  `json:"amount"`
	OccurredAt    string `json:"occurred_at"`
	SourceEventID string `json:"source_event_id,omitempty"`
}

type PollLedgerResponse struct {
	PollID            int64            `json:"poll_id"`
	Entries           []LedgerEntryDTO `json:"entries"`
	ContributionTotal int64            `json:"contribution_total"`
	PayoutTotal       int64            `json:"payout_total"`
	Outstanding       int64            `json:"outstanding"`
}

type TreasuryReportResponse struct {
	Polls             int   `json:"polls"`
	Entries           int   `json:"entries"`
	ContributionTotal int64 `json:"contribution_total"`
	PayoutTotal       int64 `json:"payout_total"`
	Outstanding       int64 `json:"outstanding"`
}
