package scoring

import "sort"

// ResolveRanks assigns placements to seats and returns them as ScoredSeats
// (score still zero). The input slice is not modified.
//
// Under RankByPoints ties are skip-style: seats with equal raw points share
// the placement of the first seat of their group, and the next distinct seat
// takes its sorted position + 1. [45000, 30000, 30000, -5000] ranks 1,2,2,4.
func ResolveRanks(seats []SeatEntry, policy RankPolicy) []ScoredSeat {
	out := make([]ScoredSeat, len(seats))
	for i, seat := range seats {
		out[i] = ScoredSeat{SeatEntry: seat}
	}

	switch policy {
	case RankByPoints:
		// Stable keeps table order as the tie position within a group.
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].RawPoints > out[j].RawPoints
		})
		for i := range out {
			if i > 0 && out[i].RawPoints == out[i-1].RawPoints {
				out[i].Placement = out[i-1].Placement
				continue
			}
			out[i].Placement = i + 1
		}
	default: // RankByInputOrder
		for i := range out {
			out[i].Placement = i + 1
		}
	}
	return out
}
