package badge

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

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type MutationParams struct {
	Name        string
	Icon        string
	Description string
}

type OwnedBadge struct {
	Badge     model.Badge `json:"badge"`
	RoundID   *int64      `json:"roundId,omitempty"`
	AwardedAt time.Time   `json:"awardedAt"`
}

func (s *Service) List(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (s *Service) Create(ctx context.Context, params MutationParams) (*model.Badge, error) {
	b := model.Badge{
		Name:        strings.TrimSpace(params.Name),
		Icon:        params.Icon,
		Description: strings.TrimSpace(params.Description),
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Award grants a badge once per player, optionally tied to the round that
// earned it.
func (s *Service) Award(ctx context.Context, adminID, badgeID, playerID int64, roundID *int64) (*model.PlayerBadge, error) {
	var b model.Badge
	if err := s.db.WithContext(ctx).First(&b, badgeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrBadgeNotFound
		}
		return nil, err
	}

	now := time.Now()
	grant := model.PlayerBadge{
		PlayerID:  playerID,
		BadgeID:   badgeID,
		RoundID:   roundID,
		AwardedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PlayerBadge
		err := tx.Where("player_id = ? AND badge_id = ?", playerID, badgeID).First(&existing).Error
		if err == nil {
			return appErr.ErrBadgeAlreadyOwned
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := tx.Create(&grant).Error; err != nil {
			return err
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"playerId": playerID,
			"badgeId":  badgeID,
		})
		audit := model.ActivityLog{
			ActorID:    adminID,
			Action:     "badge_award",
			DetailJSON: datatypes.JSON(detail),
			CreatedAt:  now,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *Service) ListOwned(ctx context.Context, playerID int64) ([]OwnedBadge, error) {
	var grants []model.PlayerBadge
	if err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("awarded_at ASC").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return []OwnedBadge{}, nil
	}

	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.BadgeID)
	}
	var badges []model.Badge
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&badges).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Badge, len(badges))
	for _, b := range badges {
		byID[b.ID] = b
	}

	owned := make([]OwnedBadge, 0, len(grants))
	for _, g := range grants {
		owned = append(owned, OwnedBadge{
			Badge:     byID[g.BadgeID],
			RoundID:   g.RoundID,
			AwardedAt: g.AwardedAt,
		})
	}
	return owned, nil
}
