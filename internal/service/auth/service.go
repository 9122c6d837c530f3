package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"riichi-league/internal/config"
	"riichi-league/internal/model"
	pkgAuth "riichi-league/pkg/auth"
	appErr "riichi-league/pkg/errors"
	"riichi-league/pkg/logger"
	"riichi-league/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	rdb     *redis.Client
	codeTTL time.Duration
}

type LoginResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expireAt"`
	Player   model.Player `json:"player"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	ttl := 10 * time.Minute
	if config.GlobalConfig != nil && config.GlobalConfig.League.LinkCodeTTLMinutes > 0 {
		ttl = time.Duration(config.GlobalConfig.League.LinkCodeTTLMinutes) * time.Minute
	}
	return &Service{db: db, rdb: rdb, codeTTL: ttl}
}

// IssueLinkCode creates a one-time code binding a Discord account to a web
// session. The Discord bot calls this and DMs the code to the member.
func (s *Service) IssueLinkCode(ctx context.Context, discordID, displayName string) (string, error) {
	discordID = strings.TrimSpace(discordID)
	displayName = strings.TrimSpace(displayName)
	if discordID == "" || displayName == "" {
		return "", appErr.ErrInvalidLinkCode
	}

	code := random.Code(8)
	payload := fmt.Sprintf("%s|%s", discordID, displayName)
	if err := s.rdb.Set(ctx, buildLinkKey(code), payload, s.codeTTL).Err(); err != nil {
		return "", err
	}
	logger.Log.Info("link code issued", zap.String("discordID", discordID))
	return code, nil
}

// ExchangeLinkCode swaps a code for a JWT, creating the player on first login.
func (s *Service) ExchangeLinkCode(ctx context.Context, code string) (*LoginResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, appErr.ErrInvalidLinkCode
	}

	key := buildLinkKey(code)
	payload, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, appErr.ErrLinkCodeExpired
		}
		return nil, err
	}
	s.rdb.Del(ctx, key)

	discordID, displayName, ok := strings.Cut(payload, "|")
	if !ok {
		return nil, appErr.ErrInvalidLinkCode
	}

	player, err := s.findOrCreatePlayer(ctx, discordID, displayName)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(player.Status, "banned") {
		return nil, appErr.ErrPlayerBanned
	}

	token, err := pkgAuth.GeneratePlayerToken(player.ID)
	if err != nil {
		return nil, err
	}
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	return &LoginResult{Token: token, ExpireAt: expireAt, Player: *player}, nil
}

func (s *Service) findOrCreatePlayer(ctx context.Context, discordID, displayName string) (*model.Player, error) {
	var player model.Player
	err := s.db.WithContext(ctx).Where("discord_id = ?", discordID).First(&player).Error
	if err == nil {
		return &player, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	player = model.Player{
		DiscordID:   discordID,
		DisplayName: uniqueDisplayName(s.db, ctx, displayName),
		Status:      "normal",
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

// uniqueDisplayName suffixes the Discord name until it is free; seat names
// must stay unique league-wide.
func uniqueDisplayName(db *gorm.DB, ctx context.Context, want string) string {
	name := want
	for i := 2; ; i++ {
		var count int64
		if err := db.WithContext(ctx).
			Model(&model.Player{}).
			Where("display_name = ?", name).
			Count(&count).Error; err != nil || count == 0 {
			return name
		}
		name = fmt.Sprintf("%s-%d", want, i)
	}
}

func buildLinkKey(code string) string {
	return fmt.Sprintf("auth:link:%s", code)
}
