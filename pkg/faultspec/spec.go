// Package faultspec defines the declarative shape of a single fault:
// its kind, type, temporal pattern, and optional traffic filter. These
// types are shared between the Starter-side YAML configuration and the
// resolved configuration handed across the pipe to the injector
// process, which is why every field that crosses that boundary is a
// plain value (no pointers into topology objects).
package faultspec

// Kind distinguishes a fault that targets a network interface from one
// that targets a process/cgroup.
type Kind string

const (
	KindLink Kind = "link"
	KindNode Kind = "node"
)

// LinkType enumerates the link fault types this module renders commands
// for.
type LinkType string

const (
	LinkDelay      LinkType = "delay"
	LinkLoss       LinkType = "loss"
	LinkCorrupt    LinkType = "corrupt"
	LinkDuplicate  LinkType = "duplicate"
	LinkReorder    LinkType = "reorder"
	LinkRate       LinkType = "rate"
	LinkLimit      LinkType = "limit"
	LinkSlot       LinkType = "slot"
	LinkBottleneck LinkType = "bottleneck"
	LinkDown       LinkType = "down"
	LinkRedirect   LinkType = "redirect"
)

// NodeType enumerates the node fault types.
type NodeType string

const (
	NodeStressCPU NodeType = "stress_cpu"
	NodeCustom    NodeType = "custom"
)

// Pattern is the temporal shape of a fault within its active window.
type Pattern string

const (
	PatternPersistent  Pattern = "persistent"
	PatternBurst       Pattern = "burst"
	PatternDegradation Pattern = "degradation"
)

// Protocol is a traffic filter's transport/network protocol. "any"
// means no filter is applied at all — the unfiltered rendering rules of
// the command builder apply.
type Protocol string

const (
	ProtocolAny      Protocol = "any"
	ProtocolICMP     Protocol = "ICMP"
	ProtocolIGMP     Protocol = "IGMP"
	ProtocolIP       Protocol = "IP"
	ProtocolTCP      Protocol = "TCP"
	ProtocolUDP      Protocol = "UDP"
	ProtocolIPv6     Protocol = "IPv6"
	ProtocolIPv6ICMP Protocol = "IPv6-ICMP"
)

// ProtocolNumbers is the IANA protocol-number table the command builder
// renders into `match ip protocol N 0xff`.
var ProtocolNumbers = map[Protocol]int{
	ProtocolICMP:     1,
	ProtocolIGMP:     2,
	ProtocolIP:       4,
	ProtocolTCP:      6,
	ProtocolUDP:      17,
	ProtocolIPv6:     41,
	ProtocolIPv6ICMP: 58,
}

// TrafficFilter narrows a link fault to a protocol and optional port
// pair. A nil Protocol (zero value "") is normalized to ProtocolAny by
// Normalize. SrcPort/DstPort are nil when unset: a port value of 0 in
// the source YAML is treated as unset, not port zero.
type TrafficFilter struct {
	Protocol Protocol
	SrcPort  *uint16
	DstPort  *uint16
}

// Filtered reports whether this filter narrows traffic at all.
func (f TrafficFilter) Filtered() bool {
	return f.Protocol != "" && f.Protocol != ProtocolAny
}

// Normalize returns f with an empty Protocol coerced to ProtocolAny, so
// callers can compare Protocol values without special-casing "".
func (f TrafficFilter) Normalize() TrafficFilter {
	if f.Protocol == "" {
		f.Protocol = ProtocolAny
	}
	return f
}

// Target identifies where a fault applies, as produced by the
// Identifier Resolver. PID is nil for the host root namespace, IfName
// is empty for node-scoped targets.
type Target struct {
	PID    *int
	IfName string
	Label  string
}

// Spec is a single fault specification: one resolved target's complete
// instruction set. ConfigFile strategy builds one Spec per resolved
// identifier directly from YAML; RandomLinks/MostUsedLink build Specs
// programmatically from a shared template plus a chosen candidate link.
type Spec struct {
	Tag    string
	Kind   Kind
	Target Target

	// RedirectDst is only meaningful for Kind == KindLink && Type ==
	// LinkRedirect: the resolved destination interface for the mirred
	// action. Empty when resolution of the destination interface failed.
	RedirectDst string

	LinkType LinkType
	NodeType NodeType

	Filter TrafficFilter

	Pattern     Pattern
	TypeArgs    []string
	PatternArgs []string
	FaultArgs   []string // node custom command pair: [start, end?]

	PreSeconds    int
	ActiveSeconds int
	PostSeconds   int
}

// IsLink reports whether this spec targets a link.
func (s Spec) IsLink() bool { return s.Kind == KindLink }

// IsNode reports whether this spec targets a node.
func (s Spec) IsNode() bool { return s.Kind == KindNode }
