// Package gaps finds ticks missing from a sampled log and computes the loss ratio
package gaps

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInsufficientSamples is returned when fewer than two ticks are available to infer a step
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrDegenerateStep is returned when the inferred step is zero or negative
	ErrDegenerateStep = errors.New("degenerate tick step")

	// ErrTickRange is returned when a tick is not finite or does not fit in an int64
	ErrTickRange = errors.New("tick out of range")
)

// maxTick is 2^63, the first float64 above the int64 range
const maxTick = float64(1 << 63)

// StepMode selects how the nominal tick spacing is inferred
type StepMode string

const (
	// StepFirst uses tick[1] - tick[0] in decoded order
	StepFirst StepMode = "first"

	// StepMedian uses the median of consecutive deltas in decoded order.
	// A burst of lost samples at the start of a log does not skew it, but it
	// changes which ticks count as missing compared to StepFirst.
	StepMedian StepMode = "median"
)

// ParseStepMode converts a configuration string into a StepMode
func ParseStepMode(s string) (StepMode, error) {
	switch StepMode(s) {
	case "", StepFirst:
		return StepFirst, nil
	case StepMedian:
		return StepMedian, nil
	default:
		return "", fmt.Errorf("invalid step mode: %s (must be 'first' or 'median')", s)
	}
}

// Report describes the ticks absent from an observed tick sequence
type Report struct {
	First    int64   `json:"first"`    // Smallest observed tick
	Last     int64   `json:"last"`     // Largest observed tick
	Step     int64   `json:"step"`     // Nominal spacing used for the progression
	Observed int     `json:"observed"` // Number of unique observed ticks
	Missing  []int64 `json:"missing"`  // Expected ticks not observed, ascending
	Ratio    float64 `json:"ratio"`    // len(Missing) / Observed
}

// Percent returns the loss ratio as a percentage
func (r *Report) Percent() float64 {
	return r.Ratio * 100
}

// Detect runs gap detection with the step taken from the first two ticks
func Detect(ticks []int64) (*Report, error) {
	return DetectWithMode(ticks, StepFirst)
}

// DetectWithMode walks the progression min, min+step, ..., max and collects
// every value that was not observed. Duplicate ticks collapse.
func DetectWithMode(ticks []int64, mode StepMode) (*Report, error) {
	if len(ticks) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 ticks, got %d", ErrInsufficientSamples, len(ticks))
	}

	step, err := inferStep(ticks, mode)
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %d", ErrDegenerateStep, step)
	}

	observed := make(map[int64]struct{}, len(ticks))
	first, last := ticks[0], ticks[0]
	for _, t := range ticks {
		observed[t] = struct{}{}
		if t < first {
			first = t
		}
		if t > last {
			last = t
		}
	}

	missing := []int64{}
	for t := first; ; t += step {
		if _, ok := observed[t]; !ok {
			missing = append(missing, t)
		}
		// t+step would pass last, possibly by wrapping around
		if uint64(last-t) < uint64(step) {
			break
		}
	}

	return &Report{
		First:    first,
		Last:     last,
		Step:     step,
		Observed: len(observed),
		Missing:  missing,
		Ratio:    float64(len(missing)) / float64(len(observed)),
	}, nil
}

func inferStep(ticks []int64, mode StepMode) (int64, error) {
	switch mode {
	case "", StepFirst:
		return delta(ticks[0], ticks[1]), nil
	case StepMedian:
		deltas := make([]int64, len(ticks)-1)
		for i := 1; i < len(ticks); i++ {
			deltas[i-1] = delta(ticks[i-1], ticks[i])
		}
		sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
		// lower median keeps the step integral for even counts
		return deltas[(len(deltas)-1)/2], nil
	default:
		return 0, fmt.Errorf("unknown step mode %q", mode)
	}
}

// delta returns b-a, or -1 when b is smaller than a so that a wrapped
// subtraction never yields a positive step
func delta(a, b int64) int64 {
	if b < a {
		return -1
	}
	return b - a
}

// TicksFromFloats converts a decoded tick column to integers, truncating
// toward zero. NaN, infinities and values outside the int64 range are
// rejected with ErrTickRange.
func TicksFromFloats(values []float64) ([]int64, error) {
	ticks := make([]int64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || v >= maxTick || v < -maxTick {
			return nil, fmt.Errorf("%w: sample %d has tick %v", ErrTickRange, i, v)
		}
		ticks[i] = int64(v)
	}
	return ticks, nil
}
