package scoring

import (
	"errors"
	"fmt"
)

// Validation failures are typed so callers can surface them verbatim.
var (
	ErrInvalidMode             = errors.New("invalid mode")
	ErrInvalidSeatCount        = errors.New("invalid seat count")
	ErrDuplicateIdentity       = errors.New("duplicate identity")
	ErrMissingDisplayName      = errors.New("missing display name")
	ErrInvalidPointGranularity = errors.New("raw points not a multiple of 100")
	ErrMissingHandCount        = errors.New("missing hand count")
	ErrPointSumMismatch        = errors.New("raw points do not sum to the mode total")

	// ErrPlacementOutOfRange marks an internal invariant violation, not a
	// user input problem: ranks handed to the calculator were out of range.
	ErrPlacementOutOfRange = errors.New("placement out of range")
)

// ValidationResult reports what a passing submission looked like. Overridden
// is set when a point-sum mismatch was allowed through; downstream auditing
// must record it.
type ValidationResult struct {
	Overridden    bool
	PointSumDelta int
}

// Validate checks the structural invariants of a submission. It is pure and
// never mutates the input.
func Validate(sub RoundSubmission) (ValidationResult, error) {
	if !sub.Mode.Valid() {
		return ValidationResult{}, fmt.Errorf("%w: %d", ErrInvalidMode, sub.Mode)
	}
	if len(sub.Seats) != sub.Mode.PlayerCount() {
		return ValidationResult{}, fmt.Errorf("%w: got %d seats, want %d",
			ErrInvalidSeatCount, len(sub.Seats), sub.Mode.PlayerCount())
	}
	if sub.HandCount <= 0 {
		return ValidationResult{}, ErrMissingHandCount
	}

	names := make(map[string]struct{}, len(sub.Seats))
	ids := make(map[int64]struct{}, len(sub.Seats))
	sum := 0
	for i, seat := range sub.Seats {
		if seat.DisplayName == "" {
			return ValidationResult{}, fmt.Errorf("%w: seat %d", ErrMissingDisplayName, i+1)
		}
		if _, ok := names[seat.DisplayName]; ok {
			return ValidationResult{}, fmt.Errorf("%w: name %q", ErrDuplicateIdentity, seat.DisplayName)
		}
		names[seat.DisplayName] = struct{}{}

		if seat.PlayerID != nil {
			if _, ok := ids[*seat.PlayerID]; ok {
				return ValidationResult{}, fmt.Errorf("%w: player %d", ErrDuplicateIdentity, *seat.PlayerID)
			}
			ids[*seat.PlayerID] = struct{}{}
		}

		if seat.RawPoints%100 != 0 {
			return ValidationResult{}, fmt.Errorf("%w: seat %d has %d",
				ErrInvalidPointGranularity, i+1, seat.RawPoints)
		}
		sum += seat.RawPoints
	}

	if target := PointSumTarget(sub.Mode); sum != target {
		if !sub.AllowPointMismatch {
			return ValidationResult{}, fmt.Errorf("%w: got %d, want %d",
				ErrPointSumMismatch, sum, target)
		}
		return ValidationResult{Overridden: true, PointSumDelta: sum - target}, nil
	}
	return ValidationResult{}, nil
}
