// Package docker discovers a Docker Compose emulated topology and
// builds a topology.Snapshot from it: containers stand in for
// namespaced hosts the way Mininet hosts do, labeled with the node's
// role and its links' interface names. Grounded on
// pkg/discovery/docker/client.go's Client wrapper, used here as a
// topology-snapshot producer instead of a chaos-target discovery
// mechanism.
package docker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/netfault/faultctl/pkg/topology"
)

// Label keys a container must carry for Discover to place it in the
// snapshot. faultctl.kind is one of "host", "switch", "controller".
// faultctl.links is a comma-separated list of "ifname:peerLabel:peerIfname"
// triples, one per link this container terminates; Discover dedupes the
// two label entries a link produces (one from each side) into one
// topology.Link.
const (
	LabelKind  = "faultctl.kind"
	LabelLinks = "faultctl.links"
)

// Client wraps the Docker API client this adapter needs: listing
// containers and inspecting each one's PID. Topology discovery only
// ever reads, so the surface is narrower than a general-purpose Docker
// wrapper would need.
type Client struct {
	cli *client.Client
}

// New creates a Docker client from the environment the way
// pkg/discovery/docker.New does.
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

// Close closes the underlying Docker API client.
func (c *Client) Close() error {
	if c.cli == nil {
		return nil
	}
	return c.cli.Close()
}

// Discover lists every container labeled with LabelKind under the given
// compose project and assembles a topology.Snapshot: one Node per
// container (its name as Label, its LabelKind value as Kind, its
// container PID), and one Link per unique pair named in LabelLinks.
func (c *Client) Discover(ctx context.Context, project string) (topology.Snapshot, error) {
	f := filters.NewArgs()
	if project != "" {
		f.Add("label", "com.docker.compose.project="+project)
	}
	f.Add("label", LabelKind)

	containers, err := c.cli.ContainerList(ctx, types.ContainerListOptions{Filters: f})
	if err != nil {
		return topology.Snapshot{}, fmt.Errorf("failed to list containers: %w", err)
	}

	var snap topology.Snapshot
	seenLinks := make(map[string]bool)

	for _, ctr := range containers {
		name := containerName(ctr)
		kind := topology.NodeKind(ctr.Labels[LabelKind])

		inspect, err := c.cli.ContainerInspect(ctx, ctr.ID)
		if err != nil {
			return topology.Snapshot{}, fmt.Errorf("failed to inspect container %s: %w", name, err)
		}

		snap.Nodes = append(snap.Nodes, topology.Node{
			Label: name,
			PID:   inspect.State.Pid,
			Kind:  kind,
		})

		for _, link := range parseLinks(name, ctr.Labels[LabelLinks]) {
			key := linkKey(link)
			if seenLinks[key] {
				continue
			}
			seenLinks[key] = true
			snap.Links = append(snap.Links, link)
		}
	}

	return snap, nil
}

func containerName(ctr types.Container) string {
	if len(ctr.Names) == 0 {
		return strconv.Quote(ctr.ID[:12])
	}
	return strings.TrimPrefix(ctr.Names[0], "/")
}

// parseLinks parses one container's LabelLinks value,
// "ifname:peerLabel:peerIfname,...", into Links anchored at
// selfLabel.
func parseLinks(selfLabel, raw string) []topology.Link {
	if raw == "" {
		return nil
	}
	var links []topology.Link
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			continue
		}
		ifName, peerLabel, peerIfName := parts[0], parts[1], parts[2]
		links = append(links, topology.Link{
			A: topology.Endpoint{NodeLabel: selfLabel, IfName: ifName},
			B: topology.Endpoint{NodeLabel: peerLabel, IfName: peerIfName},
		})
	}
	return links
}

// linkKey is order-independent so the same physical link named from
// both sides collapses to one entry.
func linkKey(l topology.Link) string {
	a := l.A.NodeLabel + ":" + l.A.IfName
	b := l.B.NodeLabel + ":" + l.B.IfName
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
