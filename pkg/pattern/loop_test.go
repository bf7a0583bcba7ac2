package pattern

import (
	"testing"
	"time"
)

func TestBurstCountScenario(t *testing.T) {
	args, err := ParseBurstArgs([]string{"200", "1000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := BurstCount(3*time.Second, args)
	if n != 3 {
		t.Fatalf("expected 3 burst pairs, got %d", n)
	}
}

func TestDegradationSequenceScenario(t *testing.T) {
	args, err := ParseDegradationArgs([]string{"10", "500", "0", "40"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := DegradationSequence(2*time.Second, args)
	want := []int{10, 20, 30, 40}
	if len(seq) != len(want) {
		t.Fatalf("expected %d steps, got %d (%v)", len(want), len(seq), seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("step %d: got %d want %d (%v)", i, seq[i], want[i], seq)
		}
	}
}

func TestDegradationMonotonicNonDecreasingClampedAtEnd(t *testing.T) {
	args := DegradationArgs{StepSize: 30, StepTime: 100 * time.Millisecond, Start: 0, End: 50}
	seq := DegradationSequence(500*time.Millisecond, args)
	prev := -1
	for _, v := range seq {
		if v < prev {
			t.Fatalf("sequence not monotonic: %v", seq)
		}
		if v > args.End {
			t.Fatalf("value %d exceeds end %d", v, args.End)
		}
		prev = v
	}
}

func TestActiveZeroProducesNoSteps(t *testing.T) {
	burstArgs, _ := ParseBurstArgs([]string{"200", "1000"})
	if n := BurstCount(0, burstArgs); n != 0 {
		t.Fatalf("expected 0 burst steps for active=0, got %d", n)
	}

	degArgs, _ := ParseDegradationArgs(nil)
	if n := DegradationSteps(0, degArgs); n != 0 {
		t.Fatalf("expected 0 degradation steps for active=0, got %d", n)
	}
}

func TestDegradationDefaults(t *testing.T) {
	args, err := ParseDegradationArgs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.StepSize != 5 || args.StepTime != time.Second || args.Start != 0 || args.End != 100 {
		t.Fatalf("unexpected defaults: %+v", args)
	}
}
