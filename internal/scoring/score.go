package scoring

import (
	"fmt"
	"math"
)

// ComputeScores applies the mode's uma table, base-point conversion, tobi and
// yakitori penalties, and oka redistribution. The returned slice is a scored
// copy of the input; the computation is deterministic.
//
// Per seat: base = (rawPoints - returnPoints)/1000 + uma[placement], minus 10
// per triggered penalty. Every penalty feeds a pool which, together with the
// oka, goes to first place (split across tied firsts). Scores are rounded to
// one decimal, half away from zero.
func ComputeScores(seats []ScoredSeat, mode Mode, opts Options) ([]ScoredSeat, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	p := paramsByMode[mode]

	out := make([]ScoredSeat, len(seats))
	copy(out, seats)

	var poolBonus float64
	firstCount := 0
	for i := range out {
		s := &out[i]
		if s.Placement < 1 || s.Placement > mode.PlayerCount() {
			return nil, fmt.Errorf("%w: seat %q has placement %d",
				ErrPlacementOutOfRange, s.DisplayName, s.Placement)
		}
		if s.Placement == 1 {
			firstCount++
		}

		base := float64(s.RawPoints-p.returnPoints) / 1000
		base += p.uma[s.Placement] // missing key reads as 0, never fails

		var penalty float64
		if opts.TobiEnabled && s.RawPoints < 0 {
			penalty += 10
			poolBonus += 10
		}
		if opts.YakitoriEnabled && s.WinCount == 0 {
			penalty += 10
			poolBonus += 10
		}
		s.FinalScore = base - penalty
	}

	if firstCount > 0 {
		totalBonus := float64(p.okaPoints)/1000 + poolBonus
		share := totalBonus / float64(firstCount)
		for i := range out {
			if out[i].Placement == 1 {
				out[i].FinalScore += share
			}
		}
	}

	for i := range out {
		out[i].FinalScore = roundScore(out[i].FinalScore)
	}
	return out, nil
}

// roundScore rounds to one decimal place, half away from zero.
func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
