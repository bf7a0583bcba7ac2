package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadConfigFileExpandsEnvVars(t *testing.T) {
	t.Setenv("FAULT_TAG", "net-delay")
	path := writeConfig(t, `
faults:
  - link_fault:
      type: delay
      type_args: ["100ms"]
      pattern: persistent
      identifiers: ["h1->s1"]
      tag: ${FAULT_TAG}
      injection_time: 10
log:
  interval: 500
  path: /tmp/fault.log
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Faults) != 1 || cfg.Faults[0].LinkFault == nil {
		t.Fatalf("expected one link_fault entry, got %+v", cfg.Faults)
	}
	if cfg.Faults[0].LinkFault.Tag != "net-delay" {
		t.Fatalf("expected env var expanded tag, got %q", cfg.Faults[0].LinkFault.Tag)
	}
	if cfg.Log == nil || cfg.Log.IntervalMS != 500 {
		t.Fatalf("expected log block to decode, got %+v", cfg.Log)
	}
}

func TestLoadConfigFileMissingPath(t *testing.T) {
	if _, err := LoadConfigFile(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
	if _, err := LoadConfigFile("/tmp/faultctl-no-such-config.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadIterative(t *testing.T) {
	path := writeConfig(t, `
fault_type: "link_fault:loss"
type_args: ["5%"]
pattern: persistent
injection_time: 30
start_links: 1
end_links: 3
mode: automatic
nodes_blacklist: ["h3"]
`)

	cfg, err := LoadIterative(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FaultType != "link_fault:loss" || cfg.EndLinks != 3 {
		t.Fatalf("expected decoded iterative config, got %+v", cfg)
	}
	if len(cfg.NodesBlacklist) != 1 || cfg.NodesBlacklist[0] != "h3" {
		t.Fatalf("expected nodes_blacklist to decode, got %+v", cfg.NodesBlacklist)
	}
}

func TestLinkFaultValidate(t *testing.T) {
	f := &LinkFault{Type: "delay", Pattern: "persistent", Identifiers: []string{"h1->s1"}}
	if err := f.Validate(); err != nil {
		t.Fatalf("expected a valid link fault to pass, got %v", err)
	}

	missing := &LinkFault{Pattern: "persistent", Identifiers: []string{"h1->s1"}}
	if err := missing.Validate(); err == nil {
		t.Fatal("expected an error for a link fault missing 'type'")
	}
}

func TestNodeFaultValidate(t *testing.T) {
	f := &NodeFault{Type: "stress_cpu", Pattern: "burst", Identifiers: []string{"h1"}}
	if err := f.Validate(); err != nil {
		t.Fatalf("expected a valid node fault to pass, got %v", err)
	}

	missing := &NodeFault{Type: "stress_cpu", Pattern: "burst"}
	if err := missing.Validate(); err == nil {
		t.Fatal("expected an error for a node fault missing 'identifiers'")
	}
}

func TestIterativeConfigValidate(t *testing.T) {
	cfg := &IterativeConfig{FaultType: "link_fault:loss", Pattern: "persistent", InjectionTime: 10}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a valid iterative config to pass, got %v", err)
	}

	zeroTime := &IterativeConfig{FaultType: "link_fault:loss", Pattern: "persistent"}
	if err := zeroTime.Validate(); err == nil {
		t.Fatal("expected an error for a non-positive injection_time")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := &ConfigFileConfig{
		Faults: []FaultEntry{{LinkFault: &LinkFault{Type: "delay", Pattern: "persistent", Identifiers: []string{"h1->s1"}}}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Faults) != 1 || loaded.Faults[0].LinkFault.Type != "delay" {
		t.Fatalf("expected saved config to round-trip, got %+v", loaded)
	}
}
