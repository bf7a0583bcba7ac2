package faultspec

import "testing"

func TestTrafficFilterNormalize(t *testing.T) {
	f := TrafficFilter{}
	got := f.Normalize()
	if got.Protocol != ProtocolAny {
		t.Fatalf("expected empty protocol normalized to ProtocolAny, got %q", got.Protocol)
	}

	tcp := TrafficFilter{Protocol: ProtocolTCP}
	if got := tcp.Normalize(); got.Protocol != ProtocolTCP {
		t.Fatalf("expected explicit protocol preserved, got %q", got.Protocol)
	}
}

func TestTrafficFilterFiltered(t *testing.T) {
	if (TrafficFilter{}).Filtered() {
		t.Fatal("expected an empty filter to report unfiltered")
	}
	if (TrafficFilter{Protocol: ProtocolAny}).Filtered() {
		t.Fatal("expected ProtocolAny to report unfiltered")
	}
	if !(TrafficFilter{Protocol: ProtocolUDP}).Filtered() {
		t.Fatal("expected a concrete protocol to report filtered")
	}
}

func TestSpecIsLinkIsNode(t *testing.T) {
	link := Spec{Kind: KindLink}
	if !link.IsLink() || link.IsNode() {
		t.Fatalf("expected link spec to report IsLink, got %+v", link)
	}

	node := Spec{Kind: KindNode}
	if !node.IsNode() || node.IsLink() {
		t.Fatalf("expected node spec to report IsNode, got %+v", node)
	}
}

func TestProtocolNumbersCoversTrafficProtocols(t *testing.T) {
	for _, p := range []Protocol{ProtocolICMP, ProtocolIGMP, ProtocolIP, ProtocolTCP, ProtocolUDP, ProtocolIPv6, ProtocolIPv6ICMP} {
		if _, ok := ProtocolNumbers[p]; !ok {
			t.Fatalf("expected ProtocolNumbers to carry an entry for %q", p)
		}
	}
	if _, ok := ProtocolNumbers[ProtocolAny]; ok {
		t.Fatal("expected ProtocolAny to have no protocol number entry")
	}
}
