// Package topology holds the read-only topology snapshot the core
// consumes from the external network emulator: nodes and links with
// interface endpoints and process ids. Nothing in this package mutates
// a Snapshot; it is built once by the emulator (or by the optional
// pkg/topology/docker adapter) and handed to the Identifier Resolver.
package topology

// NodeKind distinguishes a topology participant's role: an addressable
// host, a plain switch, or the controller node itself.
type NodeKind string

const (
	KindHost       NodeKind = "host"
	KindSwitch     NodeKind = "switch"
	KindController NodeKind = "controller"
)

// Node is one topology participant.
type Node struct {
	Label string
	PID   int // 0 when the node has no dedicated process (e.g. a switch in the root namespace)
	Kind  NodeKind
}

// HasPID reports whether this node has a namespace-entering PID. Nodes
// without one (most switches) are treated as living in the host root
// namespace.
func (n Node) HasPID() bool { return n.PID != 0 }

// Endpoint is one side of a link: a node label and the interface name
// on that node facing the link.
type Endpoint struct {
	NodeLabel string
	IfName    string
}

// Link is an unordered pair of endpoints.
type Link struct {
	A, B Endpoint
}

// Snapshot is the full, read-only topology the core resolves identifiers
// against.
type Snapshot struct {
	Nodes []Node
	Links []Link
}

// NodeByLabel looks up a node by its label.
func (s Snapshot) NodeByLabel(label string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.Label == label {
			return n, true
		}
	}
	return Node{}, false
}
