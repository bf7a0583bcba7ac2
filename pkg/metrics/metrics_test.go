package metrics

import (
	"testing"
	"time"

	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/shellexec"
)

func gaugeValue(t *testing.T, g interface{ Write(*io_prometheus_client.Metric) error }) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("unexpected error reading metric: %v", err)
	}
	if m.Gauge != nil {
		return m.Gauge.GetValue()
	}
	return m.Counter.GetValue()
}

func TestEnableRecordedIncrementsCounter(t *testing.T) {
	r := NewRegistry()
	r.EnableRecorded()
	r.EnableRecorded()

	if got := gaugeValue(t, r.EnableTotal); got != 2 {
		t.Fatalf("expected enable total 2, got %v", got)
	}
}

func TestActiveCountChangedSetsGauge(t *testing.T) {
	r := NewRegistry()
	r.ActiveCountChanged(3)

	if got := gaugeValue(t, r.ActiveFaults); got != 3 {
		t.Fatalf("expected active faults gauge 3, got %v", got)
	}

	r.ActiveCountChanged(0)
	if got := gaugeValue(t, r.ActiveFaults); got != 0 {
		t.Fatalf("expected active faults gauge 0, got %v", got)
	}
}

func TestObserveShellRecordsSlowCommands(t *testing.T) {
	r := NewRegistry()
	r.ObserveShell(50*time.Millisecond, 100*time.Millisecond)
	if got := gaugeValue(t, r.ShellSlowTotal); got != 0 {
		t.Fatalf("expected no slow commands recorded yet, got %v", got)
	}

	r.ObserveShell(200*time.Millisecond, 100*time.Millisecond)
	if got := gaugeValue(t, r.ShellSlowTotal); got != 1 {
		t.Fatalf("expected one slow command recorded, got %v", got)
	}
}

func TestInstallWiresRegistryAndShellexec(t *testing.T) {
	m := NewRegistry()
	reg := registry.New(nil)
	m.Install(reg)
	defer func() { shellexec.ShellObserver = nil }()

	reg.SetActive("tag-1", "delay", "tc qdisc add", 0)
	if got := gaugeValue(t, m.EnableTotal); got != 1 {
		t.Fatalf("expected enable total 1 after SetActive, got %v", got)
	}
	if got := gaugeValue(t, m.ActiveFaults); got != 1 {
		t.Fatalf("expected active faults 1 after SetActive, got %v", got)
	}

	reg.SetInactive("tag-1")
	if got := gaugeValue(t, m.ActiveFaults); got != 0 {
		t.Fatalf("expected active faults 0 after SetInactive, got %v", got)
	}

	if shellexec.ShellObserver == nil {
		t.Fatal("expected Install to wire shellexec.ShellObserver")
	}
}
