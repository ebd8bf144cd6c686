package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
	"ballotbox/contexts/governance/poll-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
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

// CreatePoll inserts the poll and one zero tally row per option in a single
// transaction. The poll id comes from the table's sequence, so ids stay
// monotonic across concurrent creators.
func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll) (int64, error) {
	row := pollModelFromEntity(poll)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		tallyRows := make([]tallyModel, 0, len(poll.Options))
		for index := range poll.Options {
			tallyRows = append(tallyRows, tallyModel{
				PollID:      row.PollID,
				OptionIndex: index,
				VoteCount:   0,
			})
		}
		if len(tallyRows) == 0 {
			return nil
		}
		return tx.Create(&tallyRows).Error
	})
	if err != nil {
		return 0, r.logError("poll_repo_create_poll_failed", err,
			"creator_id", strings.TrimSpace(poll.CreatorID),
		)
	}
	return row.PollID, nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID int64) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("poll_repo_get_poll_failed", err, "poll_id", pollID)
	}
	return row.toEntity(), nil
}

// TransitionPoll is a conditional update on the status column: the write only
// lands while the poll is still in from, so two racing transitions cannot
// both succeed.
func (r *Repository) TransitionPoll(
	ctx context.Context,
	pollID int64,
	from entities.PollStatus,
	to entities.PollStatus,
	at time.Time,
) error {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": at.UTC(),
	}
	switch to {
	case entities.PollStatusVoting:
		updates["voting_started_at"] = at.UTC()
	case entities.PollStatusEnded:
		updates["voting_ended_at"] = at.UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("poll_id = ?", pollID).
		Where("status = ?", string(from)).
		Updates(updates)
	if result.Error != nil {
		return r.logError("poll_repo_transition_poll_failed", result.Error,
			"poll_id", pollID,
			"from", string(from),
			"to", string(to),
		)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&pollModel{}).
			Where("poll_id = ?", pollID).
			Count(&count).Error; err != nil {
			return r.logError("poll_repo_transition_poll_recheck_failed", err, "poll_id", pollID)
		}
		if count == 0 {
			return domainerrors.ErrPollNotFound
		}
		return domainerrors.ErrInvalidStateTransition
	}
	return nil
}

// RecordVote locks the poll row, then writes the voter record, the tally
// increment, and the escrow increment in one transaction. The composite
// primary key on (poll_id, voter_id) turns a racing duplicate into a unique
// violation, which surfaces as ErrAlreadyVoted.
func (r *Repository) RecordVote(ctx context.Context, record entities.VoterRecord) error {
	voterID := strings.TrimSpace(record.VoterID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll pollModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("poll_id = ?", record.PollID).
			First(&poll).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPollNotFound
			}
			return err
		}
		if poll.Status != string(entities.PollStatusVoting) {
			return domainerrors.ErrInvalidStateTransition
		}
		if record.OptionIndex < 0 || record.OptionIndex >= len(poll.Options) {
			return domainerrors.ErrInvalidOption
		}

		voterRow := voterRecordModel{
			PollID:       record.PollID,
			VoterID:      voterID,
			OptionIndex:  record.OptionIndex,
			Contribution: record.Contribution,
			CastAt:       record.CastAt.UTC(),
		}
		if err := tx.Create(&voterRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyVoted
			}
			return err
		}

		tallyUpdate := tx.Model(&tallyModel{}).
			Where("poll_id = ?", record.PollID).
			Where("option_index = ?", record.OptionIndex).
			Update("vote_count", gorm.Expr("vote_count + 1"))
		if tallyUpdate.Error != nil {
			return tallyUpdate.Error
		}
		if tallyUpdate.RowsAffected == 0 {
			return domainerrors.ErrInvalidOption
		}

		return tx.Model(&pollModel{}).
			Where("poll_id = ?", record.PollID).
			Updates(map[string]any{
				"total_funds": gorm.Expr("total_funds + ?", record.Contribution),
				"updated_at":  record.CastAt.UTC(),
			}).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) ||
			errors.Is(err, domainerrors.ErrInvalidStateTransition) ||
			errors.Is(err, domainerrors.ErrInvalidOption) ||
			errors.Is(err, domainerrors.ErrAlreadyVoted) {
			return err
		}
		return r.logError("poll_repo_record_vote_failed", err,
			"poll_id", record.PollID,
			"voter_id", voterID,
		)
	}
	return nil
}

func (r *Repository) GetVoterRecord(
	ctx context.Context,
	pollID int64,
	voterID string,
) (entities.VoterRecord, bool, error) {
	var row voterRecordModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoterRecord{}, false, nil
		}
		return entities.VoterRecord{}, false, r.logError("poll_repo_get_voter_record_failed", err,
			"poll_id", pollID,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetTally(ctx context.Context, pollID int64) (entities.Tally, error) {
	var poll pollModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		First(&poll).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Tally{}, domainerrors.ErrPollNotFound
		}
		return entities.Tally{}, r.logError("poll_repo_get_tally_poll_failed", err, "poll_id", pollID)
	}

	var rows []tallyModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("option_index ASC").
		Find(&rows).Error; err != nil {
		return entities.Tally{}, r.logError("poll_repo_get_tally_failed", err, "poll_id", pollID)
	}

	counts := make([]int64, len(poll.Options))
	for _, row := range rows {
		if row.OptionIndex < 0 || row.OptionIndex >= len(counts) {
			continue
		}
		counts[row.OptionIndex] = row.VoteCount
	}
	return entities.Tally{PollID: pollID, Counts: counts}, nil
}

// DrainFunds is the first phase of withdrawal: read the balance, then zero it
// with a conditional update keyed on the value just read. A concurrent write
// between the read and the swap leaves RowsAffected at zero and the call
// fails with ErrConflict instead of double-counting.
func (r *Repository) DrainFunds(ctx context.Context, pollID int64, at time.Time) (int64, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domainerrors.ErrPollNotFound
		}
		return 0, r.logError("poll_repo_drain_funds_read_failed", err, "poll_id", pollID)
	}

	amount := row.TotalFunds
	updates := map[string]any{
		"total_funds": int64(0),
		"updated_at":  at.UTC(),
	}
	if amount > 0 {
		updates["withdrawn_at"] = at.UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("poll_id = ?", pollID).
		Where("total_funds = ?", amount).
		Updates(updates)
	if result.Error != nil {
		return 0, r.logError("poll_repo_drain_funds_swap_failed", result.Error, "poll_id", pollID)
	}
	if result.RowsAffected == 0 {
		return 0, domainerrors.ErrConflict
	}
	return amount, nil
}

func (r *Repository) RestoreFunds(ctx context.Context, pollID int64, amount int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("poll_id = ?", pollID).
		Updates(map[string]any{
			"total_funds":  gorm.Expr("total_funds + ?", amount),
			"withdrawn_at": nil,
			"updated_at":   at.UTC(),
		})
	if result.Error != nil {
		return r.logError("poll_repo_restore_funds_failed", result.Error,
			"poll_id", pollID,
			"amount", amount,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("poll_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("poll_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("poll_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("poll_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "governance/poll-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return err
}

type pollModel struct {
	PollID          int64      `gorm:"column:poll_id;primaryKey;autoIncrement"`
	Question        string     `gorm:"column:question"`
	Options         []string   `gorm:"column:options;type:text[]"`
	Status          string     `gorm:"column:status"`
	CreatorID       string     `gorm:"column:creator_id"`
	TotalFunds      int64      `gorm:"column:total_funds"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	VotingStartedAt *time.Time `gorm:"column:voting_started_at"`
	VotingEndedAt   *time.Time `gorm:"column:voting_ended_at"`
	WithdrawnAt     *time.Time `gorm:"column:withdrawn_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func pollModelFromEntity(poll entities.Poll) pollModel {
	row := pollModel{
		PollID:          poll.PollID,
		Question:        strings.TrimSpace(poll.Question),
		Options:         poll.Options,
		Status:          string(poll.Status),
		CreatorID:       strings.TrimSpace(poll.CreatorID),
		TotalFunds:      poll.TotalFunds,
		CreatedAt:       poll.CreatedAt.UTC(),
		UpdatedAt:       poll.UpdatedAt.UTC(),
		VotingStartedAt: normalizeOptionalTime(poll.VotingStartedAt),
		VotingEndedAt:   normalizeOptionalTime(poll.VotingEndedAt),
		WithdrawnAt:     normalizeOptionalTime(poll.WithdrawnAt),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m pollModel) toEntity() entities.Poll {
	return entities.Poll{
		PollID:          m.PollID,
		Question:        m.Question,
		Options:         m.Options,
		Status:          entities.PollStatus(m.Status),
		CreatorID:       m.CreatorID,
		TotalFunds:      m.TotalFunds,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		VotingStartedAt: normalizeOptionalTime(m.VotingStartedAt),
		VotingEndedAt:   normalizeOptionalTime(m.VotingEndedAt),
		WithdrawnAt:     normalizeOptionalTime(m.WithdrawnAt),
	}
}

type voterRecordModel struct {
	PollID       int64     `gorm:"column:poll_id;primaryKey"`
	VoterID      string    `gorm:"column:voter_id;primaryKey"`
	OptionIndex  int       `gorm:"column:option_index"`
	Contribution int64     `gorm:"column:contribution"`
	CastAt       time.Time `gorm:"column:cast_at"`
}

func (voterRecordModel) TableName() string {
	return "poll_voter_records"
}

func (m voterRecordModel) toEntity() entities.VoterRecord {
	return entities.VoterRecord{
		PollID:       m.PollID,
		VoterID:      m.VoterID,
		OptionIndex:  m.OptionIndex,
		Contribution: m.Contribution,
		CastAt:       m.CastAt.UTC(),
	}
}

type tallyModel struct {
	PollID      int64 `gorm:"column:poll_id;primaryKey"`
	OptionIndex int   `gorm:"column:option_index;primaryKey"`
	VoteCount   int64 `gorm:"column:vote_count"`
}

func (tallyModel) TableName() string {
	return "poll_tallies"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "poll_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PollRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
