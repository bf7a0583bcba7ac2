package topology

import (
	"path/filepath"
	"testing"
)

func TestSaveAndLoadSnapshotRoundTrip(t *testing.T) {
	snap := Snapshot{
		Nodes: []Node{
			{Label: "h1", PID: 101, Kind: KindHost},
			{Label: "s1", PID: 0, Kind: KindSwitch},
		},
		Links: []Link{
			{
				A: Endpoint{NodeLabel: "h1", IfName: "h1-eth0"},
				B: Endpoint{NodeLabel: "s1", IfName: "s1-eth0"},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Nodes) != 2 || len(got.Links) != 1 {
		t.Fatalf("expected round-tripped snapshot to match, got %+v", got)
	}
	node, ok := got.NodeByLabel("h1")
	if !ok || node.PID != 101 || !node.HasPID() {
		t.Fatalf("expected h1 to round-trip with its pid, got %+v", node)
	}
	if got.Links[0].A.IfName != "h1-eth0" {
		t.Fatalf("expected link endpoint to round-trip, got %+v", got.Links[0])
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	if _, err := LoadSnapshot("/tmp/faultctl-no-such-snapshot.json"); err == nil {
		t.Fatal("expected an error loading a missing snapshot file")
	}
}

func TestNodeByLabelMiss(t *testing.T) {
	snap := Snapshot{Nodes: []Node{{Label: "h1", Kind: KindHost}}}
	if _, ok := snap.NodeByLabel("h2"); ok {
		t.Fatal("expected NodeByLabel to report false for an unknown label")
	}
}
