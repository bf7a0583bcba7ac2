package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/netfault/faultctl/pkg/faultspec"
)

// RenderStressCPU builds the backgrounded stress-ng invocation for a
// stress_cpu node fault. pct is the already cgroup-fraction-normalized
// percentage (round(requested_percent * frac)); durationSeconds is the
// active window for this step (burst/degradation steps pass their own
// step duration, clamped to a 1s minimum by the caller).
func RenderStressCPU(spec faultspec.Spec, pct int, durationSeconds int) []string {
	inner := fmt.Sprintf("stress-ng -l %d -t %d --cpu 1 --cpu-method decimal64&", pct, durationSeconds)
	full := append(append([]string{}, NsenterFull(spec.Target.PID)...), inner)
	return []string{"sh", "-c", strings.Join(full, " ")}
}

// RenderStressCPUStop returns the disable-side command for a stress_cpu
// fault: there is no paired tc-style teardown, stress-ng exits on its
// own timer, so disable is a harmless no-op probe that also serves to
// keep the enable/disable pairing invariant observable in logs.
func RenderStressCPUStop(spec faultspec.Spec) []string {
	full := append(append([]string{}, NsenterFull(spec.Target.PID)...), "true")
	return []string{"sh", "-c", strings.Join(full, " ")}
}

// RenderCustomStart renders the start command of a custom node fault.
// When pattern is degradation, startCmd may contain exactly one "{}"
// placeholder substituted with intensity; more than one placeholder is
// an error.
func RenderCustomStart(spec faultspec.Spec, intensity string) ([]string, error) {
	if len(spec.FaultArgs) < 1 {
		return nil, fmt.Errorf("custom node fault requires fault_args[0] (start command)")
	}
	start, err := substitutePlaceholder(spec.FaultArgs[0], intensity)
	if err != nil {
		return nil, err
	}
	full := append(append([]string{}, NsenterFull(spec.Target.PID)...), start)
	return []string{"sh", "-c", strings.Join(full, " ")}, nil
}

// RenderCustomEnd renders the end command of a custom node fault, if
// any was configured.
func RenderCustomEnd(spec faultspec.Spec) ([]string, bool) {
	if len(spec.FaultArgs) < 2 || spec.FaultArgs[1] == "" {
		return nil, false
	}
	full := append(append([]string{}, NsenterFull(spec.Target.PID)...), spec.FaultArgs[1])
	return []string{"sh", "-c", strings.Join(full, " ")}, true
}

func substitutePlaceholder(cmd string, intensity string) (string, error) {
	count := strings.Count(cmd, "{}")
	if count == 0 {
		return cmd, nil
	}
	if count > 1 {
		return "", fmt.Errorf("custom start command contains %d placeholders, exactly one is allowed", count)
	}
	return strings.Replace(cmd, "{}", intensity, 1), nil
}

// FormatIntensity renders a degradation intensity value the way it is
// substituted into commands and pattern_args[0] (a bare integer
// string).
func FormatIntensity(v int) string {
	return strconv.Itoa(v)
}
