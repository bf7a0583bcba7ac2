package starter

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/netfault/faultctl/pkg/config"
	"github.com/netfault/faultctl/pkg/faultlog"
	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/identifier"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/strategy"
	"github.com/netfault/faultctl/pkg/topology"
)

// resolveConfigFile turns a ConfigFileConfig into the concrete fault
// spec list the ConfigFile strategy runs, resolving every identifier
// against snapshot. Grounded on ConfigFileFaultControllerStarter's
// make_controller_config / ConfigFileFaultController._configByFile:
// one Spec per identifier, tagged "<tag>@<node_string_reference>".
func resolveConfigFile(cfg *config.ConfigFileConfig, snapshot topology.Snapshot, logger *logging.Logger) []faultspec.Spec {
	var specs []faultspec.Spec
	for _, entry := range cfg.Faults {
		switch {
		case entry.LinkFault != nil:
			specs = append(specs, resolveLinkFault(entry.LinkFault, snapshot, logger)...)
		case entry.NodeFault != nil:
			specs = append(specs, resolveNodeFault(entry.NodeFault, snapshot, logger)...)
		default:
			if logger != nil {
				logger.Warn("faults entry has neither link_fault nor node_fault, skipping")
			}
		}
	}
	return specs
}

func resolveLinkFault(f *config.LinkFault, snapshot topology.Snapshot, logger *logging.Logger) []faultspec.Spec {
	if err := f.Validate(); err != nil {
		if logger != nil {
			logger.Warn("invalid link_fault entry, skipping", "error", err.Error())
		}
		return nil
	}

	baseTag := f.Tag
	if baseTag == "" {
		baseTag = uuid.NewString()
	}

	typeArgs := append([]string{}, f.TypeArgs...)
	var redirectDst string
	if faultspec.LinkType(f.Type) == faultspec.LinkRedirect && len(typeArgs) > 0 {
		dst, ok := identifier.Resolve(snapshot, typeArgs[0], logger)
		if !ok && logger != nil {
			logger.Warn("redirect destination identifier did not resolve", "identifier", typeArgs[0])
		}
		redirectDst = dst.IfName
		typeArgs = typeArgs[1:]
	}

	filter := traficFilterOf(f.TargetTraffic)

	specs := make([]faultspec.Spec, 0, len(f.Identifiers))
	for _, ident := range f.Identifiers {
		target, ok := identifier.Resolve(snapshot, ident, logger)
		if !ok && logger != nil {
			logger.Warn("link_fault identifier did not resolve to any link", "identifier", ident)
		}
		specs = append(specs, faultspec.Spec{
			Tag:           fmt.Sprintf("%s@%s", baseTag, target.Label),
			Kind:          faultspec.KindLink,
			Target:        target,
			RedirectDst:   redirectDst,
			LinkType:      faultspec.LinkType(f.Type),
			Filter:        filter,
			Pattern:       patternOf(f.Pattern),
			TypeArgs:      typeArgs,
			PatternArgs:   f.PatternArgs,
			PreSeconds:    f.PreInjectionTime,
			ActiveSeconds: f.InjectionTime,
			PostSeconds:   f.PostInjectionTime,
		})
	}
	return specs
}

func resolveNodeFault(f *config.NodeFault, snapshot topology.Snapshot, logger *logging.Logger) []faultspec.Spec {
	if err := f.Validate(); err != nil {
		if logger != nil {
			logger.Warn("invalid node_fault entry, skipping", "error", err.Error())
		}
		return nil
	}

	baseTag := f.Tag
	if baseTag == "" {
		baseTag = uuid.NewString()
	}

	specs := make([]faultspec.Spec, 0, len(f.Identifiers))
	for _, ident := range f.Identifiers {
		target, ok := identifier.Resolve(snapshot, ident, logger)
		if !ok && logger != nil {
			logger.Warn("node_fault identifier did not resolve", "identifier", ident)
		}
		specs = append(specs, faultspec.Spec{
			Tag:           fmt.Sprintf("%s@%s", baseTag, target.Label),
			Kind:          faultspec.KindNode,
			Target:        target,
			NodeType:      faultspec.NodeType(f.Type),
			Pattern:       patternOf(f.Pattern),
			PatternArgs:   f.PatternArgs,
			FaultArgs:     f.FaultArgs,
			PreSeconds:    f.PreInjectionTime,
			ActiveSeconds: f.InjectionTime,
			PostSeconds:   f.PostInjectionTime,
		})
	}
	return specs
}

// resolveIterative builds the shared template and candidate-link set
// RandomLinks/MostUsedLink operate over. Grounded on
// RandomLinkFaultControllerStarter.make_controller_config /
// MostUsedLinkFaultControllerStarter.make_controller_config: both
// resolve the entire candidate link set up front, excluding any link
// touching a blacklisted node.
func resolveIterative(cfg *config.IterativeConfig, snapshot topology.Snapshot, logger *logging.Logger) (faultspec.Spec, []strategy.CandidateLink, error) {
	if err := cfg.Validate(); err != nil {
		return faultspec.Spec{}, nil, err
	}

	linkType, err := parseFaultType(cfg.FaultType)
	if err != nil {
		return faultspec.Spec{}, nil, err
	}

	template := faultspec.Spec{
		Kind:        faultspec.KindLink,
		LinkType:    linkType,
		Filter:      traficFilterOf(cfg.TargetTraffic),
		Pattern:     patternOf(cfg.Pattern),
		TypeArgs:    cfg.TypeArgs,
		PatternArgs: cfg.PatternArgs,
	}

	candidates := strategy.CandidateLinks(snapshot, cfg.NodesBlacklist)
	return template, candidates, nil
}

// parseFaultType accepts the "link_fault:<type>" form named for
// fault_type in the iterative config shape and returns the bare link
// type.
func parseFaultType(raw string) (faultspec.LinkType, error) {
	const prefix = "link_fault:"
	if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
		return "", fmt.Errorf("fault_type must have the form %q, got %q", prefix+"<type>", raw)
	}
	return faultspec.LinkType(raw[len(prefix):]), nil
}

func patternOf(p string) faultspec.Pattern {
	if p == "" {
		return faultspec.PatternPersistent
	}
	return faultspec.Pattern(p)
}

func traficFilterOf(t *config.TargetTraffic) faultspec.TrafficFilter {
	if t == nil {
		return faultspec.TrafficFilter{Protocol: faultspec.ProtocolAny}
	}
	return faultspec.TrafficFilter{
		Protocol: faultspec.Protocol(t.Protocol),
		SrcPort:  portOf(t.SrcPort),
		DstPort:  portOf(t.DstPort),
	}.Normalize()
}

// portOf implements the resolved rule that a present-but-zero port
// value means "unset", not port zero.
func portOf(v *int) *uint16 {
	if v == nil || *v == 0 {
		return nil
	}
	p := uint16(*v)
	return &p
}

// resolveDebugCommands resolves the optional `log:` block's commands
// into faultlog.DebugCommand values, resolving each `host` identifier
// to a pid via the Identifier Resolver the same way fault targets are
// resolved.
func resolveDebugCommands(cmds []config.DebugCommand, snapshot topology.Snapshot, logger *logging.Logger) []faultlog.DebugCommand {
	out := make([]faultlog.DebugCommand, 0, len(cmds))
	for _, c := range cmds {
		tag := c.Tag
		if tag == "" {
			tag = uuid.NewString()
		}
		var host *int
		if c.Host != "" {
			target, ok := identifier.Resolve(snapshot, c.Host, logger)
			if !ok && logger != nil {
				logger.Warn("debug command host identifier did not resolve", "identifier", c.Host)
			}
			host = target.PID
		}
		out = append(out, faultlog.DebugCommand{Tag: tag, Host: host, Command: c.Command})
	}
	return out
}
