package round

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"riichi-league/internal/config"
	"riichi-league/internal/model"
	"riichi-league/internal/scoring"
	appErr "riichi-league/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Publisher receives summaries of freshly recorded rounds (the websocket feed).
type Publisher interface {
	PublishRound(roundID int64, summary string)
}

// Formatter renders a human-readable round summary for announcements.
type Formatter interface {
	FormatRound(mode scoring.Mode, style scoring.MatchStyle, handCount int, overridden bool, seats []SeatResult) string
}

type Service struct {
	db        *gorm.DB
	formatter Formatter
	feed      Publisher

	mu  sync.Mutex
	rng scoring.Rand
}

// NewService builds the round service. rng feeds the per-seat ticket draws and
// must be injectable so tests can pin outcomes.
func NewService(db *gorm.DB, formatter Formatter, rng scoring.Rand) *Service {
	return &Service{db: db, formatter: formatter, rng: rng}
}

// SetFeed attaches the round feed. Optional; nil means no broadcasting.
func (s *Service) SetFeed(feed Publisher) {
	s.feed = feed
}

type SeatInput struct {
	PlayerID    *int64
	DisplayName string
	RawPoints   int
	WinCount    int
	DealInCount int
}

type SubmitRequest struct {
	Mode               scoring.Mode
	Style              scoring.MatchStyle
	HandCount          int
	RankPolicy         scoring.RankPolicy
	TobiEnabled        bool
	YakitoriEnabled    bool
	AllowPointMismatch bool
	RecorderID         int64
	Seats              []SeatInput
}

type SeatResult struct {
	PlayerID     *int64  `json:"playerId,omitempty"`
	DisplayName  string  `json:"displayName"`
	RawPoints    int     `json:"rawPoints"`
	WinCount     int     `json:"winCount"`
	DealInCount  int     `json:"dealInCount"`
	Placement    int     `json:"placement"`
	FinalScore   float64 `json:"finalScore"`
	CoinReward   int     `json:"coinReward"`
	TicketReward int     `json:"ticketReward"`

	Breakdown scoring.RewardBreakdown `json:"breakdown"`
}

type SubmitResult struct {
	RoundID    int64        `json:"roundId"`
	Overridden bool         `json:"overridden"`
	Seats      []SeatResult `json:"seats"`
	Summary    string       `json:"summary"`
}

type PreviewResult struct {
	Overridden bool         `json:"overridden"`
	Seats      []SeatResult `json:"seats"`
}

func (r SubmitRequest) toSubmission() scoring.RoundSubmission {
	seats := make([]scoring.SeatEntry, len(r.Seats))
	for i, in := range r.Seats {
		seats[i] = scoring.SeatEntry{
			PlayerID:    in.PlayerID,
			DisplayName: in.DisplayName,
			RawPoints:   in.RawPoints,
			WinCount:    in.WinCount,
			DealInCount: in.DealInCount,
		}
	}
	return scoring.RoundSubmission{
		Mode:  r.Mode,
		Style: r.Style,
		Options: scoring.Options{
			TobiEnabled:     r.TobiEnabled,
			YakitoriEnabled: r.YakitoriEnabled,
		}.ForStyle(r.Style),
		HandCount:          r.HandCount,
		AllowPointMismatch: r.AllowPointMismatch,
		Seats:              seats,
	}
}

// Preview runs the scoring pipeline without persisting anything or drawing
// tickets. It shares every step with Submit so preview and final figures can
// never drift apart.
func (s *Service) Preview(req SubmitRequest) (*PreviewResult, error) {
	validation, scored, err := s.score(req)
	if err != nil {
		return nil, err
	}

	seats := make([]SeatResult, len(scored))
	for i, seat := range scored {
		reward, err := scoring.ComputeRewards(seat, req.Mode, s.isRecorderSeat(seat, req.RecorderID), nil)
		if err != nil {
			return nil, err
		}
		seats[i] = newSeatResult(seat, reward)
	}
	return &PreviewResult{Overridden: validation.Overridden, Seats: seats}, nil
}

// Submit validates, ranks, scores and rewards a round, then persists the
// round record, per-seat rows, wallet deltas and ledger entries in a single
// transaction. Guests are recorded on seats but move no wallet.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	validation, scored, err := s.score(req)
	if err != nil {
		return nil, err
	}

	rng := s.rng
	if ticketDrawsDisabled() {
		rng = nil
	}

	seats := make([]SeatResult, len(scored))
	s.mu.Lock()
	for i, seat := range scored {
		reward, err := scoring.ComputeRewards(seat, req.Mode, s.isRecorderSeat(seat, req.RecorderID), rng)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		seats[i] = newSeatResult(seat, reward)
	}
	s.mu.Unlock()

	now := time.Now()
	roundRec := model.Round{
		Mode:       req.Mode.PlayerCount(),
		Style:      string(req.Style),
		HandCount:  req.HandCount,
		RecorderID: req.RecorderID,
		Tobi:       req.TobiEnabled,
		Yakitori:   req.YakitoriEnabled,
		Overridden: validation.Overridden,
		ResultJSON: mustJSON(seats),
		CreatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&roundRec).Error; err != nil {
			return err
		}

		seatRows := make([]model.RoundSeat, len(seats))
		for i, seat := range seats {
			seatRows[i] = model.RoundSeat{
				RoundID:      roundRec.ID,
				PlayerID:     seat.PlayerID,
				DisplayName:  seat.DisplayName,
				RawPoints:    seat.RawPoints,
				WinCount:     seat.WinCount,
				DealInCount:  seat.DealInCount,
				Placement:    seat.Placement,
				FinalScore:   seat.FinalScore,
				CoinReward:   int64(seat.CoinReward),
				TicketReward: int64(seat.TicketReward),
			}
		}
		if err := tx.Create(&seatRows).Error; err != nil {
			return err
		}

		wallets := newWalletBook(tx)
		coinLogs := make([]model.CoinLog, 0, len(seats))
		for _, seat := range seats {
			if seat.PlayerID == nil {
				continue
			}
			wallet, err := wallets.Ensure(*seat.PlayerID)
			if err != nil {
				return err
			}
			wallet.Coins += int64(seat.CoinReward)
			wallet.Tickets += int64(seat.TicketReward)
			wallet.TotalEarned += int64(seat.CoinReward)

			meta := map[string]interface{}{
				"roundId":    roundRec.ID,
				"placement":  seat.Placement,
				"finalScore": seat.FinalScore,
				"breakdown":  seat.Breakdown,
				"tickets":    seat.TicketReward,
			}
			coinLogs = append(coinLogs, model.CoinLog{
				PlayerID:     *seat.PlayerID,
				Type:         "round_reward",
				Delta:        int64(seat.CoinReward),
				BalanceAfter: wallet.Coins,
				RoundID:      &roundRec.ID,
				MetaJSON:     mustJSON(meta),
				CreatedAt:    now,
			})
		}

		if err := wallets.SaveAll(now); err != nil {
			return err
		}
		if len(coinLogs) > 0 {
			if err := tx.Create(&coinLogs).Error; err != nil {
				return err
			}
		}

		if validation.Overridden {
			audit := model.ActivityLog{
				ActorID: req.RecorderID,
				Action:  "point_sum_override",
				DetailJSON: mustJSON(map[string]interface{}{
					"roundId":       roundRec.ID,
					"pointSumDelta": validation.PointSumDelta,
				}),
				CreatedAt: now,
			}
			if err := tx.Create(&audit).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := ""
	if s.formatter != nil {
		summary = s.formatter.FormatRound(req.Mode, req.Style, req.HandCount, validation.Overridden, seats)
	}
	if s.feed != nil && summary != "" {
		s.feed.PublishRound(roundRec.ID, summary)
	}

	return &SubmitResult{
		RoundID:    roundRec.ID,
		Overridden: validation.Overridden,
		Seats:      seats,
		Summary:    summary,
	}, nil
}

type RoundDetail struct {
	Round model.Round       `json:"round"`
	Seats []model.RoundSeat `json:"seats"`
}

func (s *Service) GetRound(ctx context.Context, id int64) (*RoundDetail, error) {
	var rec model.Round
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrRoundNotFound
		}
		return nil, err
	}
	var seats []model.RoundSeat
	if err := s.db.WithContext(ctx).
		Where("round_id = ?", id).
		Order("placement ASC, id ASC").
		Find(&seats).Error; err != nil {
		return nil, err
	}
	return &RoundDetail{Round: rec, Seats: seats}, nil
}

// score runs validate -> rank -> score, mapping validation failures onto the
// service error space.
func (s *Service) score(req SubmitRequest) (scoring.ValidationResult, []scoring.ScoredSeat, error) {
	sub := req.toSubmission()
	validation, err := scoring.Validate(sub)
	if err != nil {
		return validation, nil, fmt.Errorf("%w: %v", appErr.ErrRoundValidation, err)
	}

	ranked := scoring.ResolveRanks(sub.Seats, req.RankPolicy)
	scored, err := scoring.ComputeScores(ranked, sub.Mode, sub.Options)
	if err != nil {
		return validation, nil, err
	}
	return validation, scored, nil
}

func (s *Service) isRecorderSeat(seat scoring.ScoredSeat, recorderID int64) bool {
	return seat.PlayerID != nil && *seat.PlayerID == recorderID
}

func newSeatResult(seat scoring.ScoredSeat, reward scoring.Reward) SeatResult {
	return SeatResult{
		PlayerID:     seat.PlayerID,
		DisplayName:  seat.DisplayName,
		RawPoints:    seat.RawPoints,
		WinCount:     seat.WinCount,
		DealInCount:  seat.DealInCount,
		Placement:    seat.Placement,
		FinalScore:   seat.FinalScore,
		CoinReward:   reward.Coins,
		TicketReward: reward.Tickets,
		Breakdown:    reward.Breakdown,
	}
}

func ticketDrawsDisabled() bool {
	return config.GlobalConfig != nil && config.GlobalConfig.League.TicketDrawsDisabled
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

// walletBook batches wallet reads and writes inside one transaction so a
// player touched twice is loaded and saved once.
type walletBook struct {
	tx      *gorm.DB
	entries map[int64]*walletEntry
}

type walletEntry struct {
	wallet *model.Wallet
	exists bool
	dirty  bool
}

func newWalletBook(tx *gorm.DB) *walletBook {
	return &walletBook{
		tx:      tx,
		entries: make(map[int64]*walletEntry),
	}
}

func (wb *walletBook) Ensure(playerID int64) (*model.Wallet, error) {
	if entry, ok := wb.entries[playerID]; ok {
		entry.dirty = true
		return entry.wallet, nil
	}

	q := wb.tx
	// sqlite (used by tests) has no FOR UPDATE
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	wallet := &model.Wallet{}
	err := q.Where("player_id = ?", playerID).First(wallet).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		wallet = &model.Wallet{PlayerID: playerID}
	}

	entry := &walletEntry{
		wallet: wallet,
		exists: err == nil,
		dirty:  true,
	}
	wb.entries[playerID] = entry
	return wallet, nil
}

func (wb *walletBook) SaveAll(now time.Time) error {
	for _, entry := range wb.entries {
		if !entry.dirty {
			continue
		}
		entry.wallet.UpdatedAt = now
		var err error
		if entry.exists {
			err = wb.tx.Save(entry.wallet).Error
		} else {
			err = wb.tx.Create(entry.wallet).Error
			if err == nil {
				entry.exists = true
			}
		}
		if err != nil {
			return err
		}
		entry.dirty = false
	}
	return nil
}
