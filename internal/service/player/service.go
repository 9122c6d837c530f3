package player

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"riichi-league/internal/model"
	appErr "riichi-league/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type UpdateProfileRequest struct {
	DisplayName *string
	Avatar      *string
}

type AdminListFilter struct {
	Page        int
	Size        int
	Status      string
	NameKeyword string
}

type AdminListResult struct {
	Items []model.Player
	Total int64
}

func (s *Service) GetProfile(ctx context.Context, playerID int64) (*model.Player, error) {
	var p model.Player
	if err := s.db.WithContext(ctx).First(&p, playerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, playerID int64, req UpdateProfileRequest) (*model.Player, error) {
	p, err := s.GetProfile(ctx, playerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, appErr.ErrInvalidProfile
		}
		var existing model.Player
		err := s.db.WithContext(ctx).
			Where("display_name = ? AND id <> ?", name, playerID).
			First(&existing).Error
		if err == nil {
			return nil, appErr.ErrDuplicateName
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		updates["display_name"] = name
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if len(updates) == 0 {
		return p, nil
	}
	updates["updated_at"] = time.Now()

	if err := s.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, playerID)
}

// LookupByName resolves a display name to a registered player, the
// guest-vs-registered disambiguation used when recording seats. A miss is not
// an error: the seat is a guest.
func (s *Service) LookupByName(ctx context.Context, displayName string) (*model.Player, error) {
	var p model.Player
	err := s.db.WithContext(ctx).
		Where("display_name = ?", strings.TrimSpace(displayName)).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) AdminList(ctx context.Context, filter AdminListFilter) (*AdminListResult, error) {
	page := filter.Page
	size := filter.Size
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultAdminPageSize
	}
	if size > maxAdminPageSize {
		size = maxAdminPageSize
	}

	query := s.db.WithContext(ctx).Model(&model.Player{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.NameKeyword != "" {
		query = query.Where("display_name LIKE ?", "%"+filter.NameKeyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.Player
	if total > 0 {
		offset := (page - 1) * size
		if err := query.Order("id DESC").Limit(size).Offset(offset).Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &AdminListResult{Items: items, Total: total}, nil
}

func (s *Service) AdminSetStatus(ctx context.Context, adminID, playerID int64, status, reason string) (*model.Player, error) {
	if status != "normal" && status != "banned" {
		return nil, appErr.ErrInvalidPlayerStatus
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Player{}).
			Where("id = ?", playerID).
			Updates(map[string]interface{}{"status": status, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return appErr.ErrPlayerNotFound
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"playerId": playerID,
			"status":   status,
			"reason":   reason,
		})
		audit := model.ActivityLog{
			ActorID:    adminID,
			Action:     "player_ban",
			DetailJSON: datatypes.JSON(detail),
			CreatedAt:  now,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, playerID)
}
