package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"ballotbox/contexts/finance-core/treasury-service/application"
	"ballotbox/contexts/finance-core/treasury-service/ports"
	httptransport "ballotbox/contexts/finance-core/treasury-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) PollLedgerHandler(ctx context.Context, pollID int64) (httptransport.PollLedgerResponse, error) {
	ledger, err := h.Service.PollLedger(ctx, pollID)
	if err != nil {
		return httptransport.PollLedgerResponse{}, err
	}
	entries := make([]httptransport.LedgerEntryDTO, 0, len(ledger.Entries))
	for _, entry := range ledger.Entries {
		entries = append(entries, toDTO(entry))
	}
	return httptransport.PollLedgerResponse{
		PollID:            ledger.PollID,
		Entries:           entries,
		ContributionTotal: ledger.ContributionTotal,
		PayoutTotal:       ledger.PayoutTotal,
		Outstanding:       ledger.Outstanding,
	}, nil
}

func (h Handler) ReportHandler(ctx context.Context) (httptransport.TreasuryReportResponse, error) {
	report, err := h.Service.Report(ctx)
	if err != nil {
		return httptransport.TreasuryReportResponse{}, err
	}
	return httptransport.TreasuryReportResponse{
		Polls:             report.Polls,
		Entries:           report.Entries,
		ContributionTotal: report.ContributionTotal,
		PayoutTotal:       report.PayoutTotal,
		Outstanding:       report.Outstanding,
	}, nil
}

func toDTO(entry ports.LedgerEntry) httptransport.LedgerEntryDTO {
	return httptransport.LedgerEntryDTO{
		EntryID:       entry.EntryID,
		PollID:        entry.PollID,
		EntryType:     entry.EntryType,
		ActorID:       entry.ActorID,
		Amount:        entry.Amount,
		OccurredAt:    entry.OccurredAt.UTC().Format(time.RFC3339),
		SourceEventID: entry.SourceEventID,
	}
}
