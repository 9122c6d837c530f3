package notify

import (
	"fmt"
	"strings"

	"riichi-league/internal/scoring"
	"riichi-league/internal/service/round"
)

// Formatter renders recorded rounds as Discord-flavoured text. Delivery is
// someone else's job; this only builds the message.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

var ordinals = map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th"}

func (f *Formatter) FormatRound(mode scoring.Mode, style scoring.MatchStyle, handCount int, overridden bool, seats []round.SeatResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%d-player %s round** (%d hands)\n", mode.PlayerCount(), style, handCount)
	for _, seat := range seats {
		fmt.Fprintf(&b, "%s  %s — %d pts → %+.1f", ordinal(seat.Placement), seat.DisplayName, seat.RawPoints, seat.FinalScore)
		if seat.PlayerID != nil {
			fmt.Fprintf(&b, "  (+%d coins", seat.CoinReward)
			if seat.TicketReward > 0 {
				b.WriteString(", +1 ticket")
			}
			b.WriteString(")")
		} else {
			b.WriteString("  (guest)")
		}
		b.WriteString("\n")
	}
	if overridden {
		b.WriteString("⚠ point totals did not balance; submitted with override\n")
	}
	return b.String()
}

func ordinal(placement int) string {
	if s, ok := ordinals[placement]; ok {
		return s
	}
	return fmt.Sprintf("%dth", placement)
}
