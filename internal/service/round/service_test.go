package round_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"riichi-league/internal/model"
	"riichi-league/internal/scoring"
	"riichi-league/internal/service/notify"
	"riichi-league/internal/service/round"
	appErr "riichi-league/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixedRand struct{ v float64 }

func (f fixedRand) Float64() float64 { return f.v }

type feedRecorder struct {
	roundIDs  []int64
	summaries []string
}

func (f *feedRecorder) PublishRound(roundID int64, summary string) {
	f.roundIDs = append(f.roundIDs, roundID)
	f.summaries = append(f.summaries, summary)
}

func newService(t *testing.T, rng scoring.Rand) (*gorm.DB, *round.Service) {
	t.Helper()

	// Named per test so parallel packages and reruns never share state.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Round{},
		&model.RoundSeat{},
		&model.Wallet{},
		&model.CoinLog{},
		&model.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, round.NewService(db, notify.NewFormatter(), rng)
}

func ptr(id int64) *int64 { return &id }

func fourPlayerRequest() round.SubmitRequest {
	return round.SubmitRequest{
		Mode:       scoring.ModeFourPlayer,
		Style:      scoring.StyleIndividual,
		HandCount:  8,
		RankPolicy: scoring.RankByPoints,
		RecorderID: 1,
		Seats: []round.SeatInput{
			{PlayerID: ptr(1), DisplayName: "mika", RawPoints: 45000, WinCount: 3},
			{PlayerID: ptr(2), DisplayName: "joon", RawPoints: 25000, WinCount: 2},
			{PlayerID: ptr(3), DisplayName: "ren", RawPoints: 20000, WinCount: 1},
			{DisplayName: "guest-aki", RawPoints: 10000, WinCount: 1},
		},
	}
}

func TestSubmitPersistsRoundAndWallets(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t, fixedRand{v: 0.99}) // no tickets

	result, err := svc.Submit(ctx, fourPlayerRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.RoundID == 0 {
		t.Fatalf("expected a persisted round id")
	}

	wantScores := []float64{65, 5, -20, -50}
	for i, seat := range result.Seats {
		if seat.FinalScore != wantScores[i] {
			t.Fatalf("seat %d: expected score %.1f, got %.1f", i, wantScores[i], seat.FinalScore)
		}
	}
	// 1st: 5+7+5, 2nd: 5+1+3, 3rd: 5+0+1, 4th: 5.
	wantCoins := []int{17, 9, 6, 5}
	for i, seat := range result.Seats {
		if seat.CoinReward != wantCoins[i] {
			t.Fatalf("seat %d: expected %d coins, got %d", i, wantCoins[i], seat.CoinReward)
		}
	}

	var seatCount int64
	if err := db.Model(&model.RoundSeat{}).Where("round_id = ?", result.RoundID).Count(&seatCount).Error; err != nil {
		t.Fatalf("count seats failed: %v", err)
	}
	if seatCount != 4 {
		t.Fatalf("expected 4 seat rows, got %d", seatCount)
	}

	var wallet model.Wallet
	if err := db.Where("player_id = ?", 1).First(&wallet).Error; err != nil {
		t.Fatalf("winner wallet missing: %v", err)
	}
	if wallet.Coins != 17 || wallet.TotalEarned != 17 {
		t.Fatalf("unexpected winner wallet: %+v", wallet)
	}

	// Guests never get wallets.
	var walletCount int64
	if err := db.Model(&model.Wallet{}).Count(&walletCount).Error; err != nil {
		t.Fatalf("count wallets failed: %v", err)
	}
	if walletCount != 3 {
		t.Fatalf("expected 3 wallets, got %d", walletCount)
	}

	var logCount int64
	if err := db.Model(&model.CoinLog{}).Where("type = ?", "round_reward").Count(&logCount).Error; err != nil {
		t.Fatalf("count coin logs failed: %v", err)
	}
	if logCount != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", logCount)
	}
}

func TestSubmitRecorderTicketOdds(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t, fixedRand{v: 0.20}) // above 0.13, below 0.26

	result, err := svc.Submit(ctx, fourPlayerRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	for _, seat := range result.Seats {
		isRecorder := seat.PlayerID != nil && *seat.PlayerID == 1
		want := 0
		if isRecorder {
			want = 1
		}
		if seat.TicketReward != want {
			t.Fatalf("seat %s: expected %d tickets, got %d", seat.DisplayName, want, seat.TicketReward)
		}
	}

	var wallet model.Wallet
	if err := db.Where("player_id = ?", 1).First(&wallet).Error; err != nil {
		t.Fatalf("recorder wallet missing: %v", err)
	}
	if wallet.Tickets != 1 {
		t.Fatalf("expected recorder wallet to hold 1 ticket, got %d", wallet.Tickets)
	}
}

func TestSubmitOverrideIsAudited(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t, fixedRand{v: 0.99})

	req := fourPlayerRequest()
	req.Seats[0].RawPoints = 46000 // off by +1000
	req.AllowPointMismatch = true

	result, err := svc.Submit(ctx, req)
	if err != nil {
		t.Fatalf("override submit failed: %v", err)
	}
	if !result.Overridden {
		t.Fatalf("expected result to carry the override flag")
	}

	var audit model.ActivityLog
	if err := db.Where("action = ?", "point_sum_override").First(&audit).Error; err != nil {
		t.Fatalf("expected an audit row: %v", err)
	}
	if audit.ActorID != 1 {
		t.Fatalf("audit should name the recorder, got actor %d", audit.ActorID)
	}

	var rec model.Round
	if err := db.First(&rec, result.RoundID).Error; err != nil {
		t.Fatalf("round record missing: %v", err)
	}
	if !rec.Overridden {
		t.Fatalf("round record should be flagged overridden")
	}
}

func TestSubmitRejectsInvalidRound(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t, fixedRand{v: 0.99})

	req := fourPlayerRequest()
	req.Seats[0].RawPoints = 46000 // unbalanced, no override

	if _, err := svc.Submit(ctx, req); !errors.Is(err, appErr.ErrRoundValidation) {
		t.Fatalf("expected ErrRoundValidation, got %v", err)
	}

	var count int64
	if err := db.Model(&model.Round{}).Count(&count).Error; err != nil {
		t.Fatalf("count rounds failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected round must not be persisted, found %d", count)
	}
}

func TestPreviewDoesNotPersistOrDraw(t *testing.T) {
	db, svc := newService(t, fixedRand{v: 0.0}) // would always grant a ticket

	preview, err := svc.Preview(fourPlayerRequest())
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if preview.Seats[0].FinalScore != 65 {
		t.Fatalf("preview must use the same calculator, got %.1f", preview.Seats[0].FinalScore)
	}
	for _, seat := range preview.Seats {
		if seat.TicketReward != 0 {
			t.Fatalf("preview must not draw tickets")
		}
	}

	var count int64
	if err := db.Model(&model.Round{}).Count(&count).Error; err != nil {
		t.Fatalf("count rounds failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("preview must not persist anything, found %d rounds", count)
	}
}

func TestSubmitBroadcastsToFeed(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t, fixedRand{v: 0.99})

	feed := &feedRecorder{}
	svc.SetFeed(feed)

	result, err := svc.Submit(ctx, fourPlayerRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(feed.roundIDs) != 1 || feed.roundIDs[0] != result.RoundID {
		t.Fatalf("expected one feed publish for round %d, got %v", result.RoundID, feed.roundIDs)
	}
	if feed.summaries[0] != result.Summary || result.Summary == "" {
		t.Fatalf("published summary should match the result summary")
	}
}

func TestGetRound(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t, fixedRand{v: 0.99})

	submitted, err := svc.Submit(ctx, fourPlayerRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	detail, err := svc.GetRound(ctx, submitted.RoundID)
	if err != nil {
		t.Fatalf("get round failed: %v", err)
	}
	if len(detail.Seats) != 4 {
		t.Fatalf("expected 4 seats, got %d", len(detail.Seats))
	}
	if detail.Seats[0].Placement != 1 {
		t.Fatalf("seats should come back ordered by placement, got %d first", detail.Seats[0].Placement)
	}

	if _, err := svc.GetRound(ctx, submitted.RoundID+100); !errors.Is(err, appErr.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}
