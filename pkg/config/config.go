// Package config decodes the YAML configuration files the Starter
// reads: the explicit fault list consumed by the ConfigFile strategy,
// and the flat iteration parameters shared by RandomLinks and
// MostUsedLink. Grounded on this repository's original config.go
// Load/Save/env-var-expansion shape, retargeted at the fault-injection
// schema instead of the Kurtosis/Prometheus/reporting schema it
// previously described.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetTraffic is the optional protocol/port filter block shared by
// every fault kind.
type TargetTraffic struct {
	Protocol string `yaml:"protocol"`
	SrcPort  *int   `yaml:"src_port"`
	DstPort  *int   `yaml:"dst_port"`
}

// LinkFault is one `link_fault:` entry under `faults:`.
type LinkFault struct {
	Type              string         `yaml:"type"`
	TypeArgs          []string       `yaml:"type_args"`
	Pattern           string         `yaml:"pattern"`
	PatternArgs       []string       `yaml:"pattern_args"`
	Identifiers       []string       `yaml:"identifiers"`
	TargetTraffic     *TargetTraffic `yaml:"target_traffic"`
	PreInjectionTime  int            `yaml:"pre_injection_time"`
	InjectionTime     int            `yaml:"injection_time"`
	PostInjectionTime int            `yaml:"post_injection_time"`
	Tag               string         `yaml:"tag"`
}

// NodeFault is one `node_fault:` entry under `faults:`.
type NodeFault struct {
	Type              string   `yaml:"type"` // stress_cpu | custom
	FaultArgs         []string `yaml:"fault_args"`
	Pattern           string   `yaml:"pattern"`
	PatternArgs       []string `yaml:"pattern_args"`
	Identifiers       []string `yaml:"identifiers"`
	PreInjectionTime  int      `yaml:"pre_injection_time"`
	InjectionTime     int      `yaml:"injection_time"`
	PostInjectionTime int      `yaml:"post_injection_time"`
	Tag               string   `yaml:"tag"`
}

// FaultEntry is one object in the `faults:` list: exactly one of
// LinkFault/NodeFault should be set.
type FaultEntry struct {
	LinkFault *LinkFault `yaml:"link_fault"`
	NodeFault *NodeFault `yaml:"node_fault"`
}

// DebugCommand is one entry of `log.commands`.
type DebugCommand struct {
	Tag     string `yaml:"tag"`
	Host    string `yaml:"host"`
	Command string `yaml:"command"`
}

// LogConfig is the optional `log:` block. An empty `log: {}` block
// (LogConfig zero value) still enables logging with DefaultLogConfig.
type LogConfig struct {
	IntervalMS int            `yaml:"interval"`
	Path       string         `yaml:"path"`
	Commands   []DebugCommand `yaml:"commands"`
}

// ConfigFileConfig is the root shape the ConfigFile strategy reads.
type ConfigFileConfig struct {
	Faults []FaultEntry `yaml:"faults"`
	Log    *LogConfig   `yaml:"log"`
}

// IterativeConfig is the root shape RandomLinks and MostUsedLink share.
// Links is never present in a user-authored file; the Starter fills it
// in from the topology snapshot at config-resolution time.
type IterativeConfig struct {
	FaultType      string         `yaml:"fault_type"` // "link_fault:<type>"
	TypeArgs       []string       `yaml:"type_args"`
	Pattern        string         `yaml:"pattern"`
	PatternArgs    []string       `yaml:"pattern_args"`
	InjectionTime  int            `yaml:"injection_time"`
	StartLinks     int            `yaml:"start_links"`
	EndLinks       int            `yaml:"end_links"`
	Mode           string         `yaml:"mode"`
	NodesBlacklist []string       `yaml:"nodes_blacklist"`
	TargetTraffic  *TargetTraffic `yaml:"target_traffic"`
	Log            *LogConfig     `yaml:"log"`
}

// DefaultLogConfig returns the defaults applied when a `log:` key is
// present but carries no fields of its own.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		IntervalMS: 1000,
		Path:       "faultynet_faultlogfile.json",
	}
}

// LoadConfigFile reads and decodes a ConfigFile-strategy YAML file,
// expanding environment variables in the raw text first.
func LoadConfigFile(path string) (*ConfigFileConfig, error) {
	data, err := readExpanded(path)
	if err != nil {
		return nil, err
	}
	cfg := &ConfigFileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadIterative reads and decodes a RandomLinks/MostUsedLink-strategy
// YAML file.
func LoadIterative(path string) (*IterativeConfig, error) {
	data, err := readExpanded(path)
	if err != nil {
		return nil, err
	}
	cfg := &IterativeConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func readExpanded(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return []byte(os.ExpandEnv(string(data))), nil
}

// Save writes cfg back to path as YAML.
func Save(path string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the required fields of a single link_fault entry.
// The caller is expected to warn and skip an invalid entry rather than
// abort the whole run.
func (f *LinkFault) Validate() error {
	if f.Type == "" {
		return fmt.Errorf("link_fault is missing required field 'type'")
	}
	if len(f.Identifiers) == 0 {
		return fmt.Errorf("link_fault is missing required field 'identifiers'")
	}
	return nil
}

// Validate checks the required fields of a single node_fault entry.
func (f *NodeFault) Validate() error {
	if f.Type == "" {
		return fmt.Errorf("node_fault is missing required field 'type'")
	}
	if len(f.Identifiers) == 0 {
		return fmt.Errorf("node_fault is missing required field 'identifiers'")
	}
	return nil
}

// Validate checks the required fields of an iterative (RandomLinks /
// MostUsedLink) configuration.
func (c *IterativeConfig) Validate() error {
	if c.FaultType == "" {
		return fmt.Errorf("iterative config is missing required field 'fault_type'")
	}
	if c.InjectionTime <= 0 {
		return fmt.Errorf("iterative config requires a positive 'injection_time'")
	}
	return nil
}
