package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"riichi-league/internal/config"
	"riichi-league/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewService builds the leaderboard reader. rdb may be nil to disable the
// cache (tests do this).
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// Query carries all filter and sort criteria explicitly; standings are a pure
// function of it, with no module-level filter state.
type Query struct {
	Mode  int    // 3, 4, or 0 for any
	Style string // individual/team, "" for any
	From  *time.Time
	To    *time.Time
	Sort  string // total_score (default), rounds, firsts, avg_placement, coins
	Limit int
}

type Entry struct {
	PlayerID     int64   `json:"playerId"`
	DisplayName  string  `json:"displayName"`
	Rounds       int64   `json:"rounds"`
	TotalScore   float64 `json:"totalScore"`
	AvgPlacement float64 `json:"avgPlacement"`
	Firsts       int64   `json:"firsts"`
	TotalCoins   int64   `json:"totalCoins"`
}

var sortColumns = map[string]string{
	"total_score":   "total_score DESC",
	"rounds":        "rounds DESC",
	"firsts":        "firsts DESC",
	"avg_placement": "avg_placement ASC",
	"coins":         "total_coins DESC",
}

// Standings aggregates persisted seat rows into per-player totals. Guest
// seats (no player id) are excluded.
func (s *Service) Standings(ctx context.Context, q Query) ([]Entry, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	order, ok := sortColumns[q.Sort]
	if !ok {
		order = sortColumns["total_score"]
	}

	if cached, ok := s.fromCache(ctx, q); ok {
		return cached, nil
	}

	query := s.db.WithContext(ctx).
		Table("round_seats").
		Select(`round_seats.player_id,
			MAX(round_seats.display_name) AS display_name,
			COUNT(*) AS rounds,
			SUM(round_seats.final_score) AS total_score,
			AVG(round_seats.placement) AS avg_placement,
			SUM(CASE WHEN round_seats.placement = 1 THEN 1 ELSE 0 END) AS firsts,
			SUM(round_seats.coin_reward) AS total_coins`).
		Joins("JOIN rounds ON rounds.id = round_seats.round_id").
		Where("round_seats.player_id IS NOT NULL").
		Group("round_seats.player_id").
		Order(order).
		Limit(q.Limit)

	if q.Mode != 0 {
		query = query.Where("rounds.mode = ?", q.Mode)
	}
	if q.Style != "" {
		query = query.Where("rounds.style = ?", q.Style)
	}
	if q.From != nil {
		query = query.Where("rounds.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("rounds.created_at < ?", *q.To)
	}

	var entries []Entry
	if err := query.Scan(&entries).Error; err != nil {
		return nil, err
	}

	s.toCache(ctx, q, entries)
	return entries, nil
}

func (s *Service) fromCache(ctx context.Context, q Query) ([]Entry, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, cacheKey(q)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("leaderboard cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *Service) toCache(ctx context.Context, q Query, entries []Entry) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	ttl := 30 * time.Second
	if config.GlobalConfig != nil && config.GlobalConfig.League.LeaderboardCacheSecs > 0 {
		ttl = time.Duration(config.GlobalConfig.League.LeaderboardCacheSecs) * time.Second
	}
	if err := s.rdb.Set(ctx, cacheKey(q), raw, ttl).Err(); err != nil {
		logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
	}
}

func cacheKey(q Query) string {
	from, to := int64(0), int64(0)
	if q.From != nil {
		from = q.From.Unix()
	}
	if q.To != nil {
		to = q.To.Unix()
	}
	return fmt.Sprintf("leaderboard:%d:%s:%d:%d:%s:%d", q.Mode, q.Style, from, to, q.Sort, q.Limit)
}
