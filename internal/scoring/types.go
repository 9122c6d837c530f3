// Package scoring converts raw riichi table results into ranked, uma/oka
// adjusted final scores and coin/ticket rewards. It is pure computation:
// no persistence, no I/O, no state between calls.
package scoring

// Mode is encoded as the seat count it implies.
type Mode int

const (
	ModeThreePlayer Mode = 3
	ModeFourPlayer  Mode = 4
)

func (m Mode) Valid() bool {
	return m == ModeThreePlayer || m == ModeFourPlayer
}

func (m Mode) PlayerCount() int {
	return int(m)
}

type MatchStyle string

const (
	StyleIndividual MatchStyle = "individual"
	StyleTeam       MatchStyle = "team"
)

// Options hold the per-round penalty switches.
type Options struct {
	TobiEnabled     bool
	YakitoriEnabled bool
}

// ForStyle returns the options as they apply under the given match style.
// Team rounds never carry tobi/yakitori penalties.
func (o Options) ForStyle(style MatchStyle) Options {
	if style == StyleTeam {
		return Options{}
	}
	return o
}

type RankPolicy string

const (
	// RankByInputOrder trusts the caller's seat order: seat i is placement i+1.
	RankByInputOrder RankPolicy = "input_order"
	// RankByPoints sorts by raw points descending; equal points share the
	// placement of the first seat of their group (skip-style ranking).
	RankByPoints RankPolicy = "points"
)

type SeatEntry struct {
	PlayerID    *int64 // nil for guests
	DisplayName string
	RawPoints   int
	WinCount    int
	DealInCount int
}

type RoundSubmission struct {
	Mode               Mode
	Style              MatchStyle
	Options            Options
	HandCount          int
	AllowPointMismatch bool
	Seats              []SeatEntry
}

// ScoredSeat carries a seat through ranking and scoring.
type ScoredSeat struct {
	SeatEntry
	Placement  int
	FinalScore float64
}

// RewardBreakdown itemizes a coin payout so the ledger can audit it.
type RewardBreakdown struct {
	Base       int `json:"base"`
	ScoreBonus int `json:"scoreBonus"`
	RankBonus  int `json:"rankBonus"`
}

type Reward struct {
	Coins     int             `json:"coins"`
	Tickets   int             `json:"tickets"`
	Breakdown RewardBreakdown `json:"breakdown"`
}

// Rand is the entropy source for ticket draws. *math/rand.Rand satisfies it;
// tests inject a fixed sequence.
type Rand interface {
	Float64() float64
}

type modeParams struct {
	startPoints  int
	returnPoints int
	okaPoints    int
	uma          map[int]float64
}

var paramsByMode = map[Mode]modeParams{
	ModeThreePlayer: {
		startPoints:  35000,
		returnPoints: 40000,
		okaPoints:    15000,
		uma:          map[int]float64{1: 20, 2: 0, 3: -20},
	},
	ModeFourPlayer: {
		startPoints:  25000,
		returnPoints: 30000,
		okaPoints:    20000,
		uma:          map[int]float64{1: 30, 2: 10, 3: -10, 4: -30},
	},
}

// PointSumTarget is the raw-point total a balanced round must conserve.
func PointSumTarget(mode Mode) int {
	p := paramsByMode[mode]
	return p.startPoints * mode.PlayerCount()
}
