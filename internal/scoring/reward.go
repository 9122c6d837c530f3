package scoring

import (
	"fmt"
	"math"
)

var fourPlayerRankBonus = map[int]int{1: 5, 2: 3, 3: 1, 4: 0}

// ticketChance returns the Bernoulli probability of a lottery ticket.
// Recorders (whoever submitted the round) draw at double odds.
func ticketChance(mode Mode, isRecorder bool) float64 {
	switch {
	case mode == ModeThreePlayer && isRecorder:
		return 0.20
	case mode == ModeThreePlayer:
		return 0.10
	case isRecorder:
		return 0.26
	default:
		return 0.13
	}
}

// ComputeRewards derives the coin payout and ticket draw for one scored seat.
// Coins are deterministic; only the ticket consumes entropy from rng. Passing
// rng == nil skips the draw entirely (used for previews and ops kill-switch).
func ComputeRewards(seat ScoredSeat, mode Mode, isRecorder bool, rng Rand) (Reward, error) {
	if !mode.Valid() {
		return Reward{}, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	if seat.Placement < 1 || seat.Placement > mode.PlayerCount() {
		return Reward{}, fmt.Errorf("%w: seat %q has placement %d",
			ErrPlacementOutOfRange, seat.DisplayName, seat.Placement)
	}

	breakdown := RewardBreakdown{Base: 3}
	if mode == ModeFourPlayer {
		breakdown.Base = 5
		breakdown.RankBonus = fourPlayerRankBonus[seat.Placement]
	}
	if seat.FinalScore > 0 {
		breakdown.ScoreBonus = int(math.Ceil(seat.FinalScore / 10))
	}

	reward := Reward{
		Coins:     breakdown.Base + breakdown.ScoreBonus + breakdown.RankBonus,
		Breakdown: breakdown,
	}
	if rng != nil && rng.Float64() < ticketChance(mode, isRecorder) {
		reward.Tickets = 1
	}
	return reward, nil
}
