package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "ballotbox/contexts/finance-core/treasury-service/domain/errors"
	"ballotbox/contexts/finance-core/treasury-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) AppendEntry(ctx context.Context, entry ports.LedgerEntry) error {
	row := ledgerEntryModel{
		EntryID:       strings.TrimSpace(entry.EntryID),
		PollID:        entry.PollID,
		EntryType:     strings.TrimSpace(entry.EntryType),
		ActorID:       strings.TrimSpace(entry.ActorID),
		Amount:        entry.Amount,
		OccurredAt:    entry.OccurredAt.UTC(),
		SourceEventID: strings.TrimSpace(entry.SourceEventID),
		RecordedAt:    entry.RecordedAt.UTC(),
	}
	if row.EntryID == "" || row.PollID <= 0 {
		return domainerrors.ErrInvalidInput
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("treasury_repo_append_entry_failed", err,
			"entry_id", row.EntryID,
			"poll_id", row.PollID,
		)
	}
	return nil
}

func (r *Repository) ListEntriesByPoll(ctx context.Context, pollID int64) ([]ports.LedgerEntry, error) {
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_entries_failed", err, "poll_id", pollID)
	}
	items := make([]ports.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntry())
	}
	return items, nil
}

func (r *Repository) BuildReport(ctx context.Context) (ports.TreasuryReport, error) {
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return ports.TreasuryReport{}, r.logError("treasury_repo_build_report_failed", err)
	}
	report := ports.TreasuryReport{}
	polls := make(map[int64]struct{})
	for _, row := range rows {
		polls[row.PollID] = struct{}{}
		report.Entries++
		switch row.EntryType {
		case ports.EntryTypeContribution:
			report.ContributionTotal += row.Amount
		case ports.EntryTypePayout:
			report.PayoutTotal += row.Amount
		}
	}
	report.Polls = len(polls)
	report.Outstanding = report.ContributionTotal - report.PayoutTotal
	return report, nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("treasury_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("treasury_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "finance-core/treasury-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("treasury repository operation failed", fields...)
	return err
}

type ledgerEntryModel struct {
	EntryID       string    `gorm:"column:entry_id;primaryKey"`
	PollID        int64     `gorm:"column:poll_id"`
	EntryType     string    `gorm:"column:entry_type"`
	ActorID       string    `gorm:"column:actor_id"`
	Amount        int64     `gorm:"column:amount"`
	OccurredAt    time.Time `gorm:"column:occurred_at"`
	SourceEventID string    `gorm:"column:source_event_id"`
	RecordedAt    time.Time `gorm:"column:recorded_at"`
}

func (ledgerEntryModel) TableName() string {
	return "treasury_ledger_entries"
}

func (m ledgerEntryModel) toEntry() ports.LedgerEntry {
	return ports.LedgerEntry{
		EntryID:       m.EntryID,
		PollID:        m.PollID,
		EntryType:     m.EntryType,
		ActorID:       m.ActorID,
		Amount:        m.Amount,
		OccurredAt:    m.OccurredAt.UTC(),
		SourceEventID: m.SourceEventID,
		RecordedAt:    m.RecordedAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "treasury_event_dedup"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.LedgerRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
