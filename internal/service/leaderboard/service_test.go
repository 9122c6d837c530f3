package leaderboard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"riichi-league/internal/model"
	"riichi-league/internal/service/leaderboard"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, *leaderboard.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Round{}, &model.RoundSeat{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, leaderboard.NewService(db, nil)
}

func ptr(id int64) *int64 { return &id }

func seedRound(t *testing.T, db *gorm.DB, mode int, style string, at time.Time, seats []model.RoundSeat) {
	t.Helper()
	rec := model.Round{Mode: mode, Style: style, HandCount: 8, RecorderID: 1, CreatedAt: at}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed round failed: %v", err)
	}
	for i := range seats {
		seats[i].RoundID = rec.ID
	}
	if err := db.Create(&seats).Error; err != nil {
		t.Fatalf("seed seats failed: %v", err)
	}
}

func TestStandingsAggregation(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)

	now := time.Now()
	seedRound(t, db, 4, "individual", now, []model.RoundSeat{
		{PlayerID: ptr(1), DisplayName: "mika", Placement: 1, FinalScore: 65, CoinReward: 17},
		{PlayerID: ptr(2), DisplayName: "joon", Placement: 2, FinalScore: 5, CoinReward: 9},
		{DisplayName: "guest", Placement: 3, FinalScore: -20},
		{PlayerID: ptr(3), DisplayName: "ren", Placement: 4, FinalScore: -50, CoinReward: 5},
	})
	seedRound(t, db, 4, "individual", now, []model.RoundSeat{
		{PlayerID: ptr(2), DisplayName: "joon", Placement: 1, FinalScore: 40, CoinReward: 14},
		{PlayerID: ptr(1), DisplayName: "mika", Placement: 2, FinalScore: 10, CoinReward: 9},
		{PlayerID: ptr(3), DisplayName: "ren", Placement: 3, FinalScore: -15, CoinReward: 6},
		{PlayerID: ptr(4), DisplayName: "aki", Placement: 4, FinalScore: -35, CoinReward: 5},
	})

	entries, err := svc.Standings(ctx, leaderboard.Query{})
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 players (guests excluded), got %d", len(entries))
	}

	top := entries[0]
	if top.PlayerID != 1 || top.TotalScore != 75 || top.Rounds != 2 || top.Firsts != 1 {
		t.Fatalf("unexpected leader: %+v", top)
	}
	if entries[1].PlayerID != 2 || entries[1].TotalScore != 45 {
		t.Fatalf("unexpected runner-up: %+v", entries[1])
	}
}

func TestStandingsFilters(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	seedRound(t, db, 4, "individual", old, []model.RoundSeat{
		{PlayerID: ptr(1), DisplayName: "mika", Placement: 1, FinalScore: 65},
	})
	seedRound(t, db, 3, "team", now, []model.RoundSeat{
		{PlayerID: ptr(2), DisplayName: "joon", Placement: 1, FinalScore: 45},
	})

	entries, err := svc.Standings(ctx, leaderboard.Query{Mode: 3})
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerID != 2 {
		t.Fatalf("mode filter broken: %+v", entries)
	}

	cutoff := now.Add(-time.Hour)
	entries, err = svc.Standings(ctx, leaderboard.Query{From: &cutoff})
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerID != 2 {
		t.Fatalf("time filter broken: %+v", entries)
	}

	entries, err = svc.Standings(ctx, leaderboard.Query{Style: "individual"})
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerID != 1 {
		t.Fatalf("style filter broken: %+v", entries)
	}
}

func TestStandingsSortByFirsts(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)

	now := time.Now()
	// Player 2 wins more often, player 1 scores higher overall.
	seedRound(t, db, 4, "individual", now, []model.RoundSeat{
		{PlayerID: ptr(1), DisplayName: "mika", Placement: 2, FinalScore: 80},
		{PlayerID: ptr(2), DisplayName: "joon", Placement: 1, FinalScore: 10},
	})
	seedRound(t, db, 4, "individual", now, []model.RoundSeat{
		{PlayerID: ptr(1), DisplayName: "mika", Placement: 2, FinalScore: 80},
		{PlayerID: ptr(2), DisplayName: "joon", Placement: 1, FinalScore: 10},
	})

	entries, err := svc.Standings(ctx, leaderboard.Query{Sort: "firsts"})
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if entries[0].PlayerID != 2 || entries[0].Firsts != 2 {
		t.Fatalf("expected player 2 first by wins, got %+v", entries[0])
	}

	entries, err = svc.Standings(ctx, leaderboard.Query{})
	if err != nil {
		t.Fatalf("standings failed: %v", err)
	}
	if entries[0].PlayerID != 1 {
		t.Fatalf("default sort should rank by total score, got %+v", entries[0])
	}
}
