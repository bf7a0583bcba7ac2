// Package pattern computes the pure, testable shape of the three
// temporal patterns (persistent, burst, degradation): how many
// enable/disable steps a window produces, and at what intensity,
// independent of actually executing any command. The Link and Node
// Injectors drive their loops from these helpers so properties like
// burst count and degradation monotonicity can be checked directly
// against pure functions.
package pattern

import (
	"fmt"
	"strconv"
	"time"
)

// BurstArgs is (duration_ms, period_ms).
type BurstArgs struct {
	Duration time.Duration
	Period   time.Duration
}

// ParseBurstArgs parses pattern_args for the burst pattern.
func ParseBurstArgs(args []string) (BurstArgs, error) {
	if len(args) < 2 {
		return BurstArgs{}, fmt.Errorf("burst pattern requires pattern_args[0] (duration_ms) and [1] (period_ms)")
	}
	durationMS, err := strconv.Atoi(args[0])
	if err != nil {
		return BurstArgs{}, fmt.Errorf("invalid burst duration_ms %q: %w", args[0], err)
	}
	periodMS, err := strconv.Atoi(args[1])
	if err != nil {
		return BurstArgs{}, fmt.Errorf("invalid burst period_ms %q: %w", args[1], err)
	}
	return BurstArgs{
		Duration: time.Duration(durationMS) * time.Millisecond,
		Period:   time.Duration(periodMS) * time.Millisecond,
	}, nil
}

// BurstCount returns n = floor(active / period), the number of
// enable/disable pairs a burst window produces.
func BurstCount(active time.Duration, args BurstArgs) int {
	if args.Period <= 0 {
		return 0
	}
	return int(active / args.Period)
}

// DegradationArgs is (step_size, step_ms, start, end) with defaults
// 5, 1000, 0, 100.
type DegradationArgs struct {
	StepSize int
	StepTime time.Duration
	Start    int
	End      int
}

// ParseDegradationArgs parses pattern_args for the degradation pattern,
// applying the documented defaults for any suffix the caller omitted.
func ParseDegradationArgs(args []string) (DegradationArgs, error) {
	out := DegradationArgs{StepSize: 5, StepTime: 1000 * time.Millisecond, Start: 0, End: 100}

	if len(args) >= 1 && args[0] != "" {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return out, fmt.Errorf("invalid degradation step_size %q: %w", args[0], err)
		}
		out.StepSize = v
	}
	if len(args) >= 2 && args[1] != "" {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return out, fmt.Errorf("invalid degradation step_ms %q: %w", args[1], err)
		}
		out.StepTime = time.Duration(v) * time.Millisecond
	}
	if len(args) >= 3 && args[2] != "" {
		v, err := strconv.Atoi(args[2])
		if err != nil {
			return out, fmt.Errorf("invalid degradation start %q: %w", args[2], err)
		}
		out.Start = v
	}
	if len(args) >= 4 && args[3] != "" {
		v, err := strconv.Atoi(args[3])
		if err != nil {
			return out, fmt.Errorf("invalid degradation end %q: %w", args[3], err)
		}
		out.End = v
	}
	return out, nil
}

// DegradationSteps returns the number of steps a degradation window
// produces: floor(active / step).
func DegradationSteps(active time.Duration, args DegradationArgs) int {
	if args.StepTime <= 0 {
		return 0
	}
	return int(active / args.StepTime)
}

// DegradationSequence returns the full sequence of intensity values a
// degradation run applies, in order. The sequence increments before
// each enable (first value is Start+StepSize, not Start). A
// (step=10, step_ms=500, start=0, end=40) run over a 2s window enables
// at 10%, 20%, 30%, 40%, never at a bare "0%" step.
func DegradationSequence(active time.Duration, args DegradationArgs) []int {
	n := DegradationSteps(active, args)
	values := make([]int, 0, n)
	v := args.Start
	for i := 0; i < n; i++ {
		v += args.StepSize
		if v > args.End {
			v = args.End
		}
		values = append(values, v)
	}
	return values
}
