package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"riichi-league/internal/model"
	appErr "riichi-league/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type AdminAdjustRequest struct {
	CoinDelta   int64
	TicketDelta int64
	Reason      string
}

type LedgerResult struct {
	Items []model.CoinLog
	Total int64
}

func (s *Service) GetWallet(ctx context.Context, playerID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.Wallet{PlayerID: playerID}, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// AdminAdjust applies a manual coin/ticket delta with a ledger entry and an
// audit row. Negative deltas may not take a balance below zero.
func (s *Service) AdminAdjust(ctx context.Context, adminID, playerID int64, req AdminAdjustRequest) (*model.Wallet, error) {
	if req.CoinDelta == 0 && req.TicketDelta == 0 {
		return nil, fmt.Errorf("%w: coinDelta or ticketDelta is required", appErr.ErrInvalidWalletPayload)
	}

	now := time.Now()
	var wallet model.Wallet

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("player_id = ?", playerID).
			FirstOrCreate(&wallet, model.Wallet{PlayerID: playerID}).Error; err != nil {
			return err
		}

		if wallet.Coins+req.CoinDelta < 0 || wallet.Tickets+req.TicketDelta < 0 {
			return fmt.Errorf("%w: adjustment would go negative", appErr.ErrInsufficientCoins)
		}
		wallet.Coins += req.CoinDelta
		wallet.Tickets += req.TicketDelta
		if req.CoinDelta > 0 {
			wallet.TotalEarned += req.CoinDelta
		} else {
			wallet.TotalSpent += -req.CoinDelta
		}
		wallet.UpdatedAt = now
		if err := tx.Save(&wallet).Error; err != nil {
			return err
		}

		meta := map[string]interface{}{
			"adminId":     adminID,
			"ticketDelta": req.TicketDelta,
			"reason":      req.Reason,
		}
		log := model.CoinLog{
			PlayerID:     playerID,
			Type:         "adjust",
			Delta:        req.CoinDelta,
			BalanceAfter: wallet.Coins,
			MetaJSON:     mustJSON(meta),
			CreatedAt:    now,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}

		audit := model.ActivityLog{
			ActorID:    adminID,
			Action:     "wallet_adjust",
			DetailJSON: mustJSON(map[string]interface{}{"playerId": playerID, "coinDelta": req.CoinDelta, "ticketDelta": req.TicketDelta}),
			CreatedAt:  now,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) Ledger(ctx context.Context, playerID int64, page, size int) (*LedgerResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.CoinLog{}).
		Where("player_id = ?", playerID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.CoinLog
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Model(&model.CoinLog{}).
			Where("player_id = ?", playerID).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &LedgerResult{Items: items, Total: total}, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
