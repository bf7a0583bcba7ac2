package strategy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/netfault/faultctl/pkg/command"
	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/shellexec"
)

// MostUsedLink shares RandomLinks' iteration/wait template but picks,
// each iteration, the not-yet-injected candidate whose RX+TX packet
// count grew the most since it was last measured, and re-installs every
// link chosen so far. Grounded on MostUsedLinkFaultController.go /
// MostUsedLinkFaultController._do_next_iteration in
// original_source/mininet/fault_controllers/MostUsedLinkFaultController.py.
//
// Traffic is measured on only the first-listed endpoint (A) of each
// candidate — the original's own comment notes this is "not an issue,
// since for this controller we only check faultless links."
type MostUsedLink struct {
	EndLinks         int
	InjectionSeconds int
	Mode             Mode
	Template         faultspec.Spec
	Candidates       []CandidateLink
	Registry         *registry.Registry
	Logger           *logging.Logger

	advance         chan struct{}
	previousTraffic []int
	chosenIdx       []int
	chosen          map[int]bool
}

// NewMostUsedLink constructs a MostUsedLink strategy with its internal
// bookkeeping initialized.
func NewMostUsedLink() *MostUsedLink {
	return &MostUsedLink{advance: make(chan struct{}, 1), chosen: make(map[int]bool)}
}

// Advance signals a pending manual/repeating-mode wait to proceed.
func (m *MostUsedLink) Advance() {
	if m.advance == nil {
		return
	}
	select {
	case m.advance <- struct{}{}:
	default:
	}
}

// Run implements Strategy.
func (m *MostUsedLink) Run(ctx context.Context) error {
	if m.advance == nil {
		m.advance = make(chan struct{}, 1)
	}
	if m.chosen == nil {
		m.chosen = make(map[int]bool)
	}
	if m.previousTraffic == nil {
		m.previousTraffic = make([]int, len(m.Candidates))
	}

	end := m.EndLinks
	if end > len(m.Candidates) {
		end = len(m.Candidates)
	}

	for {
		for i := 0; i < end; i++ {
			if !m.waitForNextRun(ctx) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			m.doIteration(ctx)
		}
		if m.Mode != ModeRepeating || ctx.Err() != nil {
			break
		}
	}
	return nil
}

func (m *MostUsedLink) waitForNextRun(ctx context.Context) bool {
	switch m.Mode {
	case ModeAutomatic, "":
		return true
	case ModeManual, ModeRepeating:
		select {
		case <-ctx.Done():
			return false
		case <-m.advance:
			return true
		}
	default:
		if m.Logger != nil {
			m.Logger.Error("strategy running in unknown mode", "mode", string(m.Mode))
		}
		return false
	}
}

func (m *MostUsedLink) doIteration(ctx context.Context) {
	mostTrafficked := -1
	maxDelta := -1

	for i, link := range m.Candidates {
		if m.chosen[i] {
			continue
		}
		traffic, err := m.trafficOnLink(ctx, link)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("failed to read link traffic", "link", linkLabel(link), "error", err.Error())
			}
			continue
		}
		delta := traffic - m.previousTraffic[i]
		m.previousTraffic[i] = traffic
		if delta > maxDelta {
			maxDelta = delta
			mostTrafficked = i
		}
	}

	if mostTrafficked >= 0 {
		m.chosen[mostTrafficked] = true
		m.chosenIdx = append(m.chosenIdx, mostTrafficked)
	}

	if m.Logger != nil {
		m.Logger.Info(fmt.Sprintf("Injecting faults on %d links", len(m.chosenIdx)))
	}

	var specs []faultspec.Spec
	for _, idx := range m.chosenIdx {
		a, b := specsForLink(m.Candidates[idx], m.Template, m.InjectionSeconds)
		specs = append(specs, a, b)
	}
	runAll(ctx, specs, m.Registry, m.Logger)
}

// trafficOnLink shells out to ifconfig on the candidate's first
// endpoint and sums RX+TX packet counts, the way
// MostUsedLinkFaultController._get_traffic_on_link does via two
// separate `nsenter ... ifconfig | grep ... | awk` pipelines.
func (m *MostUsedLink) trafficOnLink(ctx context.Context, link CandidateLink) (int, error) {
	rx, err := m.packetCount(ctx, link, "RX packets")
	if err != nil {
		return 0, err
	}
	tx, err := m.packetCount(ctx, link, "TX packets")
	if err != nil {
		return 0, err
	}
	return rx + tx, nil
}

func (m *MostUsedLink) packetCount(ctx context.Context, link CandidateLink, field string) (int, error) {
	script := fmt.Sprintf(`ifconfig %s | grep "%s" | awk '{print $3}'`, link.A.IfName, field)
	cmd := append(command.NsenterFull(link.A.PID), "sh", "-c", script)

	res := shellexec.Run(ctx, m.Logger, cmd)
	if res.Err != nil {
		return 0, res.Err
	}
	out := strings.TrimSpace(res.CombinedOutput)
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("could not parse packet count from %q: %w", out, err)
	}
	return n, nil
}

func linkLabel(link CandidateLink) string {
	return fmt.Sprintf("%s->%s", link.A.NodeLabel, link.B.NodeLabel)
}
