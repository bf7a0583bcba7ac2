// Package faultlog implements the Fault Logger: a periodic task that
// snapshots the Active-Fault Registry and samples configured diagnostic
// commands into an in-memory FIFO, flushed to a single JSON array file
// on Stop. Grounded on mininet/faultlogger.py's FaultLogger class,
// translated from its asyncio periodic-task/queue.Queue shape to a
// time.Ticker-driven goroutine writing into a mutex-protected slice —
// the same translation the concurrency model applies to every other
// cooperative task in this module.
package faultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/netfault/faultctl/pkg/command"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/shellexec"
)

// DefaultInterval and DefaultPath mirror the original's literal
// defaults (1000ms, "faultynet_faultlogfile.json").
const (
	DefaultInterval = 1000 * time.Millisecond
	DefaultPath     = "faultynet_faultlogfile.json"
)

// DebugCommand is one configured diagnostic sample. Host is the pid to
// nsenter into before running Command; nil runs Command bare in the
// controller's own namespace.
type DebugCommand struct {
	Tag     string
	Host    *int
	Command string
}

// ActiveFaultRecord is one active-fault entry as it appears in a log
// record.
type ActiveFaultRecord struct {
	FaultTag  string `json:"fault_tag"`
	FaultType string `json:"fault_type"`
	Command   string `json:"command"`
	Retcode   int    `json:"retcode"`
}

// CommandSample is one diagnostic command's captured output.
type CommandSample struct {
	Tag     string `json:"tag"`
	Command string `json:"command"`
	Output  string `json:"output"`
}

// Record is one log tick's entry.
type Record struct {
	TimeMS           int64               `json:"time_ms"`
	TimeSinceStartMS int64               `json:"time_since_start_ms"`
	ActiveFaults     []ActiveFaultRecord `json:"active_faults"`
	Commands         []CommandSample     `json:"commands"`
}

// Config configures a Logger.
type Config struct {
	Interval time.Duration
	Path     string
	Commands []DebugCommand
	Registry *registry.Registry
	Logger   *logging.Logger
}

// Logger is the Fault Logger.
type Logger struct {
	interval time.Duration
	path     string
	commands []DebugCommand
	registry *registry.Registry
	logger   *logging.Logger

	mu        sync.Mutex
	records   []Record
	startedAt time.Time
	active    bool

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Logger, applying the original's defaults when unset.
func New(cfg Config) *Logger {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	return &Logger{
		interval: cfg.Interval,
		path:     cfg.Path,
		commands: cfg.Commands,
		registry: cfg.Registry,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}
}

// Run starts the periodic sampling loop. It blocks until ctx is
// cancelled or Stop is called, then performs a final flush to disk
// before returning — mirroring `go()` ending its loop and calling
// `write_log_to_file` in the original.
func (l *Logger) Run(ctx context.Context) {
	l.mu.Lock()
	l.startedAt = time.Now()
	l.active = true
	l.mu.Unlock()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.flush()
			return
		case <-l.done:
			l.flush()
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// Stop flips the logger inactive, ending Run's loop at its next
// selection and triggering the final flush. Safe to call more than
// once.
func (l *Logger) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *Logger) tick(ctx context.Context) {
	l.mu.Lock()
	startedAt := l.startedAt
	l.mu.Unlock()

	now := time.Now()
	record := Record{
		TimeMS:           now.UnixMilli(),
		TimeSinceStartMS: now.Sub(startedAt).Milliseconds(),
	}

	if l.registry != nil {
		for _, e := range l.registry.Snapshot() {
			record.ActiveFaults = append(record.ActiveFaults, ActiveFaultRecord{
				FaultTag:  e.Tag,
				FaultType: e.Type,
				Command:   e.LastCommand,
				Retcode:   e.LastReturnCode,
			})
		}
	}

	for _, dc := range l.commands {
		record.Commands = append(record.Commands, l.sample(ctx, dc))
	}

	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
}

func (l *Logger) sample(ctx context.Context, dc DebugCommand) CommandSample {
	argv := []string{"sh", "-c", dc.Command}
	if dc.Host != nil {
		prefix := command.NsenterFull(dc.Host)
		joined := append(append([]string{}, prefix...), dc.Command)
		argv = []string{"sh", "-c", joinArgs(joined)}
	}

	res := shellexec.Run(ctx, l.logger, argv)
	return CommandSample{Tag: dc.Tag, Command: dc.Command, Output: res.CombinedOutput}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// WriteLogToFile flushes the currently enqueued records to Path as a
// single pretty-printed JSON array. It is idempotent: calling it twice
// without intervening ticks overwrites the file with the same content;
// a later call after more ticks have run includes the newly enqueued
// records, matching the original's `write_log_to_file` contract.
func (l *Logger) WriteLogToFile() error {
	l.mu.Lock()
	records := make([]Record, len(l.records))
	copy(records, l.records)
	l.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal fault log records: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write fault log to %s: %w", l.path, err)
	}
	return nil
}

func (l *Logger) flush() {
	if err := l.WriteLogToFile(); err != nil && l.logger != nil {
		l.logger.Error("failed to flush fault log", "error", err.Error(), "path", l.path)
	}
}
