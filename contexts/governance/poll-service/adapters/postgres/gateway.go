package postgresadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
	"ballotbox/contexts/governance/poll-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletGateway settles withdrawals by crediting the creator's wallet row.
// The upsert creates the wallet on first payout and adds to the balance on
// every later one.
type WalletGateway struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewWalletGateway(db *gorm.DB, logger *slog.Logger) *WalletGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletGateway{
		db:     db,
		logger: logger,
	}
}

func (g *WalletGateway) Transfer(ctx context.Context, destination string, amount int64) error {
	owner := strings.TrimSpace(destination)
	if owner == "" {
		return domainerrors.ErrTransferFailed
	}
	now := time.Now().UTC()
	row := walletModel{
		OwnerID:   owner,
		Balance:   amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	create := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("creator_wallets.balance + ?", amount),
			"updated_at": now,
		}),
	}).Create(&row)
	if create.Error != nil {
		g.logger.Error("wallet transfer failed",
			"event", "poll_wallet_transfer_failed",
			"module", "governance/poll-service",
			"layer", "adapter",
			"owner_id", owner,
			"amount", amount,
			"error", create.Error.Error(),
		)
		return create.Error
	}
	return nil
}

type walletModel struct {
	OwnerID   string    `gorm:"column:owner_id;primaryKey"`
	Balance   int64     `gorm:"column:balance"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (walletModel) TableName() string {
	return "creator_wallets"
}

var _ ports.FundsGateway = (*WalletGateway)(nil)
