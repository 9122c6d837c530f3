package service

import (
	"context"

	"riichi-league/internal/scoring"
	"riichi-league/internal/service/admin"
	"riichi-league/internal/service/auth"
	"riichi-league/internal/service/badge"
	"riichi-league/internal/service/leaderboard"
	"riichi-league/internal/service/notify"
	"riichi-league/internal/service/player"
	"riichi-league/internal/service/round"
	"riichi-league/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth        *auth.Service
	Admin       *admin.Service
	Player      *player.Service
	Wallet      *wallet.Service
	Round       *round.Service
	Badge       *badge.Service
	Leaderboard *leaderboard.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client, rng scoring.Rand) *Container {
	return &Container{
		Auth:        auth.NewService(db, rdb),
		Admin:       admin.NewService(db),
		Player:      player.NewService(db),
		Wallet:      wallet.NewService(db),
		Round:       round.NewService(db, notify.NewFormatter(), rng),
		Badge:       badge.NewService(db),
		Leaderboard: leaderboard.NewService(db, rdb),
	}
}

func (c *Container) Start(ctx context.Context) error {
	return c.Admin.EnsureDefaultAdmin(ctx)
}
