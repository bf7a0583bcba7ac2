// Package command renders the exact tc/ifconfig/stress-ng command lines
// the Link and Node Injectors execute. Every function here is pure: it
// takes a faultspec.Spec (plus, for the random/degradation render form,
// the current step's intensity) and returns a command as a token slice,
// the way buildTCNetemCommand in the l3l4 package builds a tc
// invocation as a []string rather than a hand-joined string.
// Nothing in this package touches a process, a file, or the network.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/netfault/faultctl/pkg/faultspec"
)

// Form selects which of the two link-fault rendering rule sets applies.
// Persistent pattern and every burst step render with Persistent;
// degradation steps render with Random.
type Form int

const (
	Persistent Form = iota
	Random
)

// qdiscHandles are the fixed handles the rendering rules use.
const (
	filterParentHandle = "1:"
	filterClassID      = "1:1"
	childHandle         = "2:"
	ingressHandle       = "ffff:"
)

// NsenterNet returns the nsenter prefix that enters only the target's
// network namespace, or nil when pid is nil (host root namespace).
func NsenterNet(pid *int) []string {
	if pid == nil {
		return nil
	}
	return []string{"nsenter", "--target", strconv.Itoa(*pid), "--net"}
}

// NsenterFull returns the nsenter prefix that enters the target's
// network, pid, and mount/ipc/uts namespaces, used for node faults
// that run arbitrary commands inside the target process's world.
func NsenterFull(pid *int) []string {
	if pid == nil {
		return nil
	}
	return []string{"nsenter", "--target", strconv.Itoa(*pid), "--net", "--pid", "--all"}
}

// tcPrefix returns "[nsenter --target <pid> --net] tc".
func tcPrefix(pid *int) []string {
	return append(NsenterNet(pid), "tc")
}

// RenderLinkEnable builds the enable-side command for a link fault.
// intensity is only consulted for Form == Random; it is the current
// step's pattern_args[0] override (a degradation step value, formatted
// by the caller as it would appear in config, e.g. "30").
func RenderLinkEnable(spec faultspec.Spec, form Form, intensity string) ([]string, error) {
	return renderLink(spec, "add", form, intensity)
}

// RenderLinkDisable builds the matching disable-side command. The
// rendering rules guarantee the install/uninstall pair share handle
// semantics (e.g. both target `ffff:` for redirect), which is why
// disable takes no form/intensity: only the operation verb differs.
func RenderLinkDisable(spec faultspec.Spec) ([]string, error) {
	return renderLink(spec, "del", Persistent, "")
}

func renderLink(spec faultspec.Spec, op string, form Form, intensity string) ([]string, error) {
	if spec.LinkType == faultspec.LinkDown {
		return renderDown(spec, op), nil
	}
	if spec.LinkType == faultspec.LinkRedirect {
		if form == Random {
			return nil, fmt.Errorf("unsupported combination: random pattern with redirect fault type")
		}
		return renderRedirect(spec, op)
	}
	if spec.LinkType == faultspec.LinkBottleneck {
		return renderBottleneck(spec, op)
	}
	return renderNetem(spec, op, form, intensity)
}

func renderDown(spec faultspec.Spec, op string) []string {
	verb := "down"
	if op == "del" {
		verb = "up"
	}
	cmd := append(NsenterNet(spec.Target.PID), "ifconfig", spec.Target.IfName, verb)
	return cmd
}

// renderNetem renders every netem-backed link type (delay, loss,
// corrupt, duplicate, reorder, rate, limit, slot), filtered or not.
func renderNetem(spec faultspec.Spec, op string, form Form, intensity string) ([]string, error) {
	netemArgs, err := netemTypeArgs(spec, form, intensity)
	if err != nil {
		return nil, err
	}

	if !spec.Filter.Filtered() {
		cmd := append(tcPrefix(spec.Target.PID),
			"qdisc", op, "dev", spec.Target.IfName, "root", "netem")
		cmd = append(cmd, netemArgs...)
		return cmd, nil
	}

	return renderFiltered(spec, op, "netem", netemArgs)
}

// netemTypeArgs returns the trailing netem arguments (the type name
// plus its value), following the persistent/random rendering rules.
func netemTypeArgs(spec faultspec.Spec, form Form, intensity string) ([]string, error) {
	t := string(spec.LinkType)

	if spec.LinkType == faultspec.LinkDelay {
		if form == Persistent {
			return []string{"delay", arg0(spec.TypeArgs, "")}, nil
		}
		pct := intensity
		reorderPct, err := invert(pct)
		if err != nil {
			return nil, err
		}
		return []string{"delay", arg0(spec.TypeArgs, ""), "reorder", reorderPct + "%"}, nil
	}

	if form == Persistent {
		if len(spec.TypeArgs) > 0 {
			return []string{t, spec.TypeArgs[0]}, nil
		}
		return []string{t, "100%"}, nil
	}
	return []string{t, intensity + "%"}, nil
}

func invert(percentStr string) (string, error) {
	percentStr = strings.TrimSuffix(percentStr, "%")
	v, err := strconv.Atoi(percentStr)
	if err != nil {
		return "", fmt.Errorf("invalid pattern intensity %q: %w", percentStr, err)
	}
	return strconv.Itoa(100 - v), nil
}

func arg0(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

// renderBottleneck renders the tbf-backed bottleneck fault.
func renderBottleneck(spec faultspec.Spec, op string) ([]string, error) {
	if len(spec.TypeArgs) < 1 {
		return nil, fmt.Errorf("bottleneck fault requires type_args[0] (rate)")
	}
	burst := arg0(spec.TypeArgs[1:], "1600")
	limit := "3000"
	if len(spec.TypeArgs) > 2 {
		limit = spec.TypeArgs[2]
	}

	tbfArgs := []string{"tbf", "rate", spec.TypeArgs[0] + "kbit", "burst", burst, "limit", limit}

	if !spec.Filter.Filtered() {
		cmd := append(tcPrefix(spec.Target.PID), "qdisc", op, "dev", spec.Target.IfName, "root")
		cmd = append(cmd, tbfArgs...)
		return cmd, nil
	}
	return renderFiltered(spec, op, "tbf", tbfArgs)
}

// renderFiltered wraps a netem/tbf child qdisc behind a prio parent
// qdisc and a u32 protocol/port filter, per the filtered-install
// invariant: the parent qdisc and its filter are created before the
// child qdisc is attached.
func renderFiltered(spec faultspec.Spec, op string, childKind string, childArgs []string) ([]string, error) {
	protoNum, ok := faultspec.ProtocolNumbers[spec.Filter.Protocol]
	if !ok {
		return nil, fmt.Errorf("unknown protocol for filtered install: %q", spec.Filter.Protocol)
	}

	pid := spec.Target.PID
	ifn := spec.Target.IfName

	if op == "del" {
		// Disabling a filtered install removes the child qdisc at its
		// own handle; the parent prio qdisc and filter are left in
		// place for the duration of the window (only one child fault
		// runs per (pid, ifname, tag) at a time, so there is nothing
		// else attached to it).
		cmd := append(tcPrefix(pid), "qdisc", "del", "dev", ifn, "parent", filterClassID, "handle", childHandle, childKind)
		return cmd, nil
	}

	prefix := tcPrefix(pid)
	var cmds [][]string
	cmds = append(cmds, append(append([]string{}, prefix...), "qdisc", "add", "dev", ifn, "root", "handle", filterParentHandle, "prio"))

	filterCmd := append(append([]string{}, prefix...),
		"filter", "add", "dev", ifn, "parent", filterParentHandle+"0",
		"protocol", "ip", "prio", "1", "u32",
		"match", "ip", "protocol", strconv.Itoa(protoNum), "0xff")
	filterCmd = appendPortMatch(filterCmd, spec.Filter)
	filterCmd = append(filterCmd, "flowid", filterClassID)
	cmds = append(cmds, filterCmd)

	childCmd := append(append([]string{}, prefix...),
		"qdisc", "add", "dev", ifn, "parent", filterClassID, "handle", childHandle, childKind)
	childCmd = append(childCmd, childArgs...)
	cmds = append(cmds, childCmd)

	return joinShellCommands(cmds), nil
}

func appendPortMatch(filterCmd []string, filter faultspec.TrafficFilter) []string {
	if filter.SrcPort != nil {
		filterCmd = append(filterCmd, "match", "ip", "sport", strconv.Itoa(int(*filter.SrcPort)), "0xffff")
	}
	if filter.DstPort != nil {
		filterCmd = append(filterCmd, "match", "ip", "dport", strconv.Itoa(int(*filter.DstPort)), "0xffff")
	}
	return filterCmd
}

// renderRedirect renders the ingress-qdisc redirect/mirror fault, with
// or without a traffic filter.
func renderRedirect(spec faultspec.Spec, op string) ([]string, error) {
	pid := spec.Target.PID
	ifn := spec.Target.IfName
	prefix := tcPrefix(pid)

	mode := arg0(spec.TypeArgs, "redirect")
	if mode == "" {
		mode = "redirect"
	}

	if op == "del" {
		cmd := append(append([]string{}, prefix...), "qdisc", "del", "dev", ifn, "ingress")
		return cmd, nil
	}

	if !spec.Filter.Filtered() {
		qdiscCmd := append(append([]string{}, prefix...), "qdisc", "add", "dev", ifn, "handle", ingressHandle, "ingress")
		filterCmd := append(append([]string{}, prefix...),
			"filter", "add", "dev", ifn, "parent", ingressHandle, "matchall",
			"action", "mirred", "egress", mode, "dev", spec.RedirectDst)
		return joinShellCommands([][]string{qdiscCmd, filterCmd}), nil
	}

	protoNum, ok := faultspec.ProtocolNumbers[spec.Filter.Protocol]
	if !ok {
		return nil, fmt.Errorf("unknown protocol for filtered redirect: %q", spec.Filter.Protocol)
	}

	qdiscCmd := append(append([]string{}, prefix...), "qdisc", "add", "dev", ifn, "handle", ingressHandle, "ingress")
	filterCmd := append(append([]string{}, prefix...),
		"filter", "add", "dev", ifn, "parent", ingressHandle,
		"protocol", "ip", "prio", "1", "u32",
		"match", "ip", "protocol", strconv.Itoa(protoNum), "0xff")
	filterCmd = appendPortMatch(filterCmd, spec.Filter)
	filterCmd = append(filterCmd, "action", "mirred", "egress", mode, "dev", spec.RedirectDst)

	return joinShellCommands([][]string{qdiscCmd, filterCmd}), nil
}

// joinShellCommands renders a sequence of tc invocations as a single
// shell line joined by " ; ", the way a multi-step install is executed
// as one shellexec call.
func joinShellCommands(cmds [][]string) []string {
	joined := make([]string, 0, len(cmds))
	for _, c := range cmds {
		joined = append(joined, strings.Join(c, " "))
	}
	return []string{"sh", "-c", strings.Join(joined, " ; ")}
}
