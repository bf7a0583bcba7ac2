package starter

import (
	"testing"

	"github.com/netfault/faultctl/pkg/config"
	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/topology"
)

func testSnapshot() topology.Snapshot {
	return topology.Snapshot{
		Nodes: []topology.Node{
			{Label: "h1", PID: 101, Kind: topology.KindHost},
			{Label: "h2", PID: 102, Kind: topology.KindHost},
			{Label: "s1", PID: 0, Kind: topology.KindSwitch},
		},
		Links: []topology.Link{
			{
				A: topology.Endpoint{NodeLabel: "h1", IfName: "h1-eth0"},
				B: topology.Endpoint{NodeLabel: "s1", IfName: "s1-eth0"},
			},
			{
				A: topology.Endpoint{NodeLabel: "h2", IfName: "h2-eth0"},
				B: topology.Endpoint{NodeLabel: "s1", IfName: "s1-eth1"},
			},
		},
	}
}

func TestResolveLinkFaultTagsPerIdentifier(t *testing.T) {
	cfg := &config.ConfigFileConfig{
		Faults: []config.FaultEntry{
			{LinkFault: &config.LinkFault{
				Type:          "delay",
				TypeArgs:      []string{"100ms"},
				Identifiers:   []string{"h1->s1", "h2->s1"},
				Tag:           "net-delay",
				InjectionTime: 10,
			}},
		},
	}

	specs := resolveConfigFile(cfg, testSnapshot(), nil)
	if len(specs) != 2 {
		t.Fatalf("expected one spec per identifier, got %d", len(specs))
	}
	if specs[0].Tag != "net-delay@h1->s1" {
		t.Fatalf("expected tagged spec, got %q", specs[0].Tag)
	}
	if specs[0].Target.IfName != "h1-eth0" {
		t.Fatalf("expected resolved interface, got %q", specs[0].Target.IfName)
	}
}

func TestResolveLinkFaultGeneratesTagWhenMissing(t *testing.T) {
	cfg := &config.ConfigFileConfig{
		Faults: []config.FaultEntry{
			{LinkFault: &config.LinkFault{
				Type:          "loss",
				TypeArgs:      []string{"10%"},
				Identifiers:   []string{"h1->s1"},
				InjectionTime: 5,
			}},
		},
	}

	specs := resolveConfigFile(cfg, testSnapshot(), nil)
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if specs[0].Tag == "@h1->s1" || specs[0].Tag == "" {
		t.Fatalf("expected a generated base tag, got %q", specs[0].Tag)
	}
}

func TestResolveNodeFault(t *testing.T) {
	cfg := &config.ConfigFileConfig{
		Faults: []config.FaultEntry{
			{NodeFault: &config.NodeFault{
				Type:          "stress_cpu",
				FaultArgs:     []string{"80", "10"},
				Identifiers:   []string{"h1"},
				Tag:           "cpu-hog",
				InjectionTime: 10,
			}},
		},
	}

	specs := resolveConfigFile(cfg, testSnapshot(), nil)
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if !specs[0].IsNode() {
		t.Fatalf("expected a node spec, got %+v", specs[0])
	}
	if specs[0].Target.PID == nil || *specs[0].Target.PID != 101 {
		t.Fatalf("expected h1's pid resolved, got %+v", specs[0].Target)
	}
}

func TestParseFaultType(t *testing.T) {
	linkType, err := parseFaultType("link_fault:delay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if linkType != faultspec.LinkDelay {
		t.Fatalf("expected delay, got %q", linkType)
	}

	if _, err := parseFaultType("delay"); err == nil {
		t.Fatal("expected an error for a fault_type missing the link_fault: prefix")
	}
}

func TestResolveIterativeExcludesBlacklistedNodes(t *testing.T) {
	cfg := &config.IterativeConfig{
		FaultType:      "link_fault:loss",
		TypeArgs:       []string{"5%"},
		InjectionTime:  10,
		EndLinks:       1,
		Mode:           "automatic",
		NodesBlacklist: []string{"h2"},
	}

	_, candidates, err := resolveIterative(cfg, testSnapshot(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range candidates {
		if c.A.NodeLabel == "h2" || c.B.NodeLabel == "h2" {
			t.Fatalf("expected h2's links excluded, got %+v", c)
		}
	}
	if len(candidates) != 1 {
		t.Fatalf("expected only the h1-s1 link to remain, got %d", len(candidates))
	}
}
