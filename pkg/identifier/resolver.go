// Package identifier resolves the symbolic topology identifiers used in
// configuration (`h1`, `h1->s1`, `h1->s1:eth0`) against a topology
// snapshot into OS-level (pid, ifname, label) tuples. Grounded on
// BaseFaultControllerStarter._get_mininet_agnostic_identifiers_from_identifier_string
// and its regexes (implicit_link_regex, explicit_link_regex) in
// mininet/fault_controllers/BaseFaultController.py. Resolution happens
// once, in the Starter; the injector process never sees a Snapshot,
// only the resolved faultspec.Target tuples.
package identifier

import (
	"fmt"
	"regexp"

	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/topology"
)

var (
	implicitLinkRe = regexp.MustCompile(`^(\w+)->(\w+)$`)
	explicitLinkRe = regexp.MustCompile(`^(\w+)->(\w+):([\w-]+)$`)
)

// Resolve parses identifier and resolves it against snapshot. ok is
// false when resolution failed to find any match — the caller (the
// Starter's config-resolution step) still receives a Target (with a nil
// PID and empty IfName) rather than an error, matching the original's
// "pass a nil-equivalent through" behavior.
func Resolve(snapshot topology.Snapshot, ident string, logger *logging.Logger) (faultspec.Target, bool) {
	if m := explicitLinkRe.FindStringSubmatch(ident); m != nil {
		return resolveLink(snapshot, m[1], m[2], m[3], ident, logger)
	}
	if m := implicitLinkRe.FindStringSubmatch(ident); m != nil {
		return resolveLink(snapshot, m[1], m[2], "", ident, logger)
	}
	return resolveNode(snapshot, ident, logger)
}

// resolveNode implements rule 1: form `A`.
func resolveNode(snapshot topology.Snapshot, label string, logger *logging.Logger) (faultspec.Target, bool) {
	node, ok := snapshot.NodeByLabel(label)
	if ok && node.HasPID() {
		pid := node.PID
		return faultspec.Target{PID: &pid, Label: label}, true
	}
	// Not found among hosts with a pid (e.g. a switch, or genuinely
	// absent) and no interface requested: resolves to the host root
	// namespace, still under the given label.
	return faultspec.Target{Label: label}, true
}

// resolveLink implements rule 2: forms `A->B` and `A->B:IF`.
func resolveLink(snapshot topology.Snapshot, a, b, ifName, original string, logger *logging.Logger) (faultspec.Target, bool) {
	for _, link := range snapshot.Links {
		if target, ok := matchLinkEndpoint(link, a, b, ifName, snapshot); ok {
			return target, true
		}
		// Links are unordered; also try the endpoints swapped so "A->B"
		// matches a link stored as (B, A).
		if target, ok := matchLinkEndpoint(swap(link), a, b, ifName, snapshot); ok {
			return target, true
		}
	}
	if logger != nil {
		logger.Warn("identifier did not resolve to any link", "identifier", original)
	}
	return faultspec.Target{Label: original}, false
}

func swap(l topology.Link) topology.Link {
	return topology.Link{A: l.B, B: l.A}
}

func matchLinkEndpoint(link topology.Link, a, b, ifName string, snapshot topology.Snapshot) (faultspec.Target, bool) {
	if link.A.NodeLabel != a || link.B.NodeLabel != b {
		return faultspec.Target{}, false
	}
	if ifName != "" && link.A.IfName != ifName {
		// Exact match required when an interface was requested;
		// resolution continues searching other links on failure.
		return faultspec.Target{}, false
	}

	node, ok := snapshot.NodeByLabel(a)
	label := fmt.Sprintf("%s->%s", a, b)
	if !ok || !node.HasPID() {
		return faultspec.Target{IfName: link.A.IfName, Label: label}, true
	}
	pid := node.PID
	return faultspec.Target{PID: &pid, IfName: link.A.IfName, Label: label}, true
}
