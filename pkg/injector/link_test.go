package injector

import (
	"context"
	"testing"
	"time"

	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/registry"
)

func TestLinkInjectorPersistentPairsEnableDisable(t *testing.T) {
	reg := registry.New(nil)
	spec := faultspec.Spec{
		Tag:           "h1->s1",
		Kind:          faultspec.KindLink,
		Target:        faultspec.Target{IfName: "eth0", Label: "h1->s1"},
		LinkType:      faultspec.LinkDown,
		Pattern:       faultspec.PatternPersistent,
		ActiveSeconds: 0,
	}
	li := NewLinkInjector(spec, reg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := li.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected registry to be empty after paired disable, got %d entries", reg.Len())
	}
}

func TestLinkInjectorBurstWithZeroActiveLeavesRegistryEmpty(t *testing.T) {
	reg := registry.New(nil)
	spec := faultspec.Spec{
		Tag:           "h1->s1",
		Kind:          faultspec.KindLink,
		Target:        faultspec.Target{IfName: "eth0", Label: "h1->s1"},
		LinkType:      faultspec.LinkLoss,
		Pattern:       faultspec.PatternBurst,
		PatternArgs:   []string{"5", "10"},
		ActiveSeconds: 0, // period/duration in ms are tiny, active in whole seconds is 0 -> no steps
	}
	li := NewLinkInjector(spec, reg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := li.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no leftover active entries, got %d", reg.Len())
	}
}

func TestLinkInjectorCancellationStillDisables(t *testing.T) {
	reg := registry.New(nil)
	spec := faultspec.Spec{
		Tag:           "h1->s1",
		Kind:          faultspec.KindLink,
		Target:        faultspec.Target{IfName: "eth0", Label: "h1->s1"},
		LinkType:      faultspec.LinkDown,
		Pattern:       faultspec.PatternPersistent,
		ActiveSeconds: 3600, // long enough that only cancellation ends the window
	}
	li := NewLinkInjector(spec, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- li.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if reg.Len() != 0 {
		t.Fatalf("expected registry to be empty after cancellation-triggered disable, got %d entries", reg.Len())
	}
}

func TestLinkInjectorDegradationRejectsRedirect(t *testing.T) {
	reg := registry.New(nil)
	spec := faultspec.Spec{
		Tag:           "h1->s1",
		Kind:          faultspec.KindLink,
		Target:        faultspec.Target{IfName: "eth0", Label: "h1->s1"},
		LinkType:      faultspec.LinkRedirect,
		RedirectDst:   "eth1",
		Pattern:       faultspec.PatternDegradation,
		ActiveSeconds: 0,
	}
	li := NewLinkInjector(spec, reg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// runDegradation's redirect guard returns an error internally, which
	// Run logs and swallows rather than surfacing; the visible contract
	// is that no entry is ever recorded (nothing is ever enabled).
	if err := li.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no entries for a rejected degradation+redirect combination, got %d", reg.Len())
	}
}
