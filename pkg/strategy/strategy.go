// Package strategy implements the three Controller Strategies: policies
// that decide which injectors to instantiate and in what sequence.
// ConfigFile enumerates an explicit fault-spec list; RandomLinks and
// MostUsedLink resolve a shared candidate-link set up front and choose
// from it iteration by iteration. Grounded on RandomLinkFaultController,
// MostUsedLinkFaultController, and ConfigFileFaultController in
// original_source/mininet/fault_controllers/, with the asyncio
// gather-and-wait per iteration translated to a goroutine+WaitGroup
// fan-out, matching pkg/injector's own translation of the same pattern.
package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/injector"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/topology"
)

// Mode controls when an iteration-based strategy advances to its next
// iteration. automatic never waits; manual and repeating wait for an
// external Advance() call (the IPC "next run" signal) or deactivation.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
	ModeRepeating Mode = "repeating"
)

// Strategy is any of the three controller policies. Run blocks until
// every injector this strategy spawns has completed, or ctx is
// cancelled.
type Strategy interface {
	Run(ctx context.Context) error
}

// LinkEndpoint is one side of a candidate link, carrying everything a
// Link Injector needs to target it.
type LinkEndpoint struct {
	NodeLabel string
	IfName    string
	PID       *int
}

// CandidateLink is one link a random/traffic-weighted strategy may
// choose to inject faults on.
type CandidateLink struct {
	A, B LinkEndpoint
}

// CandidateLinks resolves snapshot's links into the strategy-agnostic
// tuple shape RandomLinks/MostUsedLink operate over, excluding any link
// that touches a blacklisted node. Grounded on
// RandomLinkFaultControllerStarter.make_controller_config /
// MostUsedLinkFaultControllerStarter.make_controller_config, which both
// build this exact "links touching a blacklisted node are never
// candidates" list at config-resolution time.
func CandidateLinks(snapshot topology.Snapshot, blacklist []string) []CandidateLink {
	blocked := make(map[string]bool, len(blacklist))
	for _, b := range blacklist {
		blocked[b] = true
	}

	out := make([]CandidateLink, 0, len(snapshot.Links))
	for _, link := range snapshot.Links {
		if blocked[link.A.NodeLabel] || blocked[link.B.NodeLabel] {
			continue
		}
		out = append(out, CandidateLink{
			A: endpointOf(snapshot, link.A),
			B: endpointOf(snapshot, link.B),
		})
	}
	return out
}

func endpointOf(snapshot topology.Snapshot, ep topology.Endpoint) LinkEndpoint {
	out := LinkEndpoint{NodeLabel: ep.NodeLabel, IfName: ep.IfName}
	if node, ok := snapshot.NodeByLabel(ep.NodeLabel); ok && node.HasPID() {
		pid := node.PID
		out.PID = &pid
	}
	return out
}

// specsForLink builds the mirrored pair of link fault specs for both
// directions of a candidate link, from a shared template (fault type,
// filter, pattern, and args already resolved; Kind/Target/Tag/durations
// are filled in here). Grounded on
// RandomLinkFaultController._get_injectors_for_link /
// MostUsedLinkFaultController._get_injectors_for_link, which build the
// identical mirrored-tag pair.
func specsForLink(link CandidateLink, template faultspec.Spec, injectionSeconds int) (faultspec.Spec, faultspec.Spec) {
	a := template
	a.Kind = faultspec.KindLink
	a.Target = faultspec.Target{PID: link.A.PID, IfName: link.A.IfName, Label: link.A.NodeLabel}
	a.Tag = fmt.Sprintf("%s:%s->%s:%s", link.A.NodeLabel, link.A.IfName, link.B.NodeLabel, link.B.IfName)
	a.PreSeconds, a.ActiveSeconds, a.PostSeconds = 0, injectionSeconds, 0

	b := template
	b.Kind = faultspec.KindLink
	b.Target = faultspec.Target{PID: link.B.PID, IfName: link.B.IfName, Label: link.B.NodeLabel}
	b.Tag = fmt.Sprintf("%s:%s->%s:%s", link.B.NodeLabel, link.B.IfName, link.A.NodeLabel, link.A.IfName)
	b.PreSeconds, b.ActiveSeconds, b.PostSeconds = 0, injectionSeconds, 0

	return a, b
}

// runSpec dispatches a resolved fault spec to the matching injector type
// and runs it to completion. Shared by all three strategies so the
// Kind-to-injector mapping lives in exactly one place.
func runSpec(ctx context.Context, spec faultspec.Spec, reg *registry.Registry, logger *logging.Logger) {
	if spec.IsNode() {
		injector.NewNodeInjector(spec, reg, logger).Run(ctx)
		return
	}
	injector.NewLinkInjector(spec, reg, logger).Run(ctx)
}

// runAll launches one goroutine per spec and blocks until all complete.
func runAll(ctx context.Context, specs []faultspec.Spec, reg *registry.Registry, logger *logging.Logger) {
	var wg sync.WaitGroup
	for _, s := range specs {
		wg.Add(1)
		go func(spec faultspec.Spec) {
			defer wg.Done()
			runSpec(ctx, spec, reg, logger)
		}(s)
	}
	wg.Wait()
}
