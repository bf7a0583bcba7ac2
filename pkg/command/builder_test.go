package command

import (
	"strconv"
	"strings"
	"testing"

	"github.com/netfault/faultctl/pkg/faultspec"
)

func pidOf(v int) *int { return &v }

func TestRenderLinkEnablePersistentLoss(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkLoss,
		Target:   faultspec.Target{PID: pidOf(1234), IfName: "h1-eth0"},
		TypeArgs: []string{"30%"},
	}
	got, err := RenderLinkEnable(spec, Persistent, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	want := "nsenter --target 1234 --net tc qdisc add dev h1-eth0 root netem loss 30%"
	if joined != want {
		t.Fatalf("got %q, want %q", joined, want)
	}
}

func TestRenderLinkEnableLossDefaultsTo100Percent(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkLoss,
		Target:   faultspec.Target{IfName: "h1-eth0"},
	}
	got, err := RenderLinkEnable(spec, Persistent, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	if !strings.HasSuffix(joined, "netem loss 100%") {
		t.Fatalf("expected default 100%%, got %q", joined)
	}
	if strings.Contains(joined, "nsenter") {
		t.Fatalf("expected no nsenter prefix for nil pid, got %q", joined)
	}
}

func TestRenderLinkDegradationUsesRandomForm(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkLoss,
		Target:   faultspec.Target{IfName: "h1-eth0"},
	}
	got, err := RenderLinkEnable(spec, Random, "20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	if !strings.HasSuffix(joined, "netem loss 20%") {
		t.Fatalf("expected loss 20%%, got %q", joined)
	}
}

func TestRenderLinkDelayRandomAddsReorder(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkDelay,
		Target:   faultspec.Target{IfName: "h1-eth0"},
		TypeArgs: []string{"50ms"},
	}
	got, err := RenderLinkEnable(spec, Random, "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	want := "tc qdisc add dev h1-eth0 root netem delay 50ms reorder 70%"
	if joined != want {
		t.Fatalf("got %q, want %q", joined, want)
	}
}

func TestRenderRedirectUsesIngressHandle(t *testing.T) {
	spec := faultspec.Spec{
		LinkType:    faultspec.LinkRedirect,
		Target:      faultspec.Target{IfName: "h1-eth0"},
		RedirectDst: "s1-eth3",
	}
	enable, err := RenderLinkEnable(spec, Persistent, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(enable, " ")
	if !strings.Contains(joined, "ingress") || !strings.Contains(joined, "handle ffff:") {
		t.Fatalf("expected ingress/ffff: handle, got %q", joined)
	}
	if !strings.Contains(joined, "mirred egress redirect dev s1-eth3") {
		t.Fatalf("expected mirred action, got %q", joined)
	}

	disable, err := RenderLinkDisable(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	djoined := strings.Join(disable, " ")
	if !strings.Contains(djoined, "qdisc del dev h1-eth0 ingress") {
		t.Fatalf("expected ingress qdisc deletion, got %q", djoined)
	}
}

func TestRenderRandomRedirectRejected(t *testing.T) {
	spec := faultspec.Spec{
		LinkType:    faultspec.LinkRedirect,
		Target:      faultspec.Target{IfName: "h1-eth0"},
		RedirectDst: "s1-eth3",
	}
	if _, err := RenderLinkEnable(spec, Random, "10"); err == nil {
		t.Fatalf("expected random+redirect to be rejected")
	}
}

func TestRenderFilteredProtocolNumber(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkRedirect,
		Target:   faultspec.Target{IfName: "h1-eth0"},
		Filter:   faultspec.TrafficFilter{Protocol: faultspec.ProtocolICMP},
		RedirectDst: "s1-eth3",
	}
	got, err := RenderLinkEnable(spec, Persistent, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	wantProto := "match ip protocol " + strconv.Itoa(faultspec.ProtocolNumbers[faultspec.ProtocolICMP]) + " 0xff"
	if !strings.Contains(joined, wantProto) {
		t.Fatalf("expected %q in %q", wantProto, joined)
	}
	if !strings.Contains(joined, "parent ffff:") {
		t.Fatalf("expected filtered redirect to use parent ffff:, got %q", joined)
	}
}

func TestRenderFilteredCreatesParentBeforeChild(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkLoss,
		Target:   faultspec.Target{IfName: "h1-eth0"},
		Filter:   faultspec.TrafficFilter{Protocol: faultspec.ProtocolTCP},
		TypeArgs: []string{"30%"},
	}
	got, err := RenderLinkEnable(spec, Persistent, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	parentIdx := strings.Index(joined, "handle 1: prio")
	childIdx := strings.Index(joined, "handle 2: netem")
	if parentIdx == -1 || childIdx == -1 || parentIdx > childIdx {
		t.Fatalf("expected parent qdisc before child qdisc, got %q", joined)
	}
}

func TestRenderDown(t *testing.T) {
	spec := faultspec.Spec{LinkType: faultspec.LinkDown, Target: faultspec.Target{IfName: "h1-eth0"}}
	enable, _ := RenderLinkEnable(spec, Persistent, "")
	disable, _ := RenderLinkDisable(spec)
	if !strings.HasSuffix(strings.Join(enable, " "), "ifconfig h1-eth0 down") {
		t.Fatalf("expected down command, got %v", enable)
	}
	if !strings.HasSuffix(strings.Join(disable, " "), "ifconfig h1-eth0 up") {
		t.Fatalf("expected up command, got %v", disable)
	}
}

func TestRenderBottleneckDefaults(t *testing.T) {
	spec := faultspec.Spec{
		LinkType: faultspec.LinkBottleneck,
		Target:   faultspec.Target{IfName: "h1-eth0"},
		TypeArgs: []string{"100"},
	}
	got, err := RenderLinkEnable(spec, Persistent, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(got, " ")
	if !strings.Contains(joined, "tbf rate 100kbit burst 1600 limit 3000") {
		t.Fatalf("expected default burst/limit, got %q", joined)
	}
}
