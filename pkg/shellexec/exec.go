// Package shellexec is the single choke point every injector, strategy,
// and the fault logger funnels shell invocations through. It exists so
// the 2-second slow-invocation warning required by the concurrency
// model is implemented exactly once, correctly — the Python original
// this module descends from computed `time_after - time_after`, a
// self-subtraction that always evaluates to zero and so never actually
// warned; this package measures real elapsed wall time instead.
package shellexec

import (
	"context"
	"os/exec"
	"time"

	"github.com/netfault/faultctl/pkg/logging"
)

// SlowThreshold is the wall-time threshold past which Run logs a
// warning, per the concurrency model's requirement that any shell
// invocation exceeding 2s be flagged (a common symptom of an operator
// supplying a blocking command, which stalls the whole scheduler).
const SlowThreshold = 2 * time.Second

// ShellObserver receives every Run call's elapsed duration, for a
// caller (pkg/metrics) that wants to mirror shell timing into
// faultinjector_shell_duration_seconds / faultinjector_shell_slow_total
// without this package importing anything metrics-shaped. Nil by
// default.
var ShellObserver func(elapsed, slowThreshold time.Duration)

// Result is the outcome of a single shell invocation.
type Result struct {
	Command         []string
	CombinedOutput  string
	ExitCode        int
	Elapsed         time.Duration
	Err             error
}

// Run executes cmd (argv form, cmd[0] is the binary) and returns its
// combined stdout+stderr, exit code, and elapsed wall time. A non-zero
// exit is reported via ExitCode, not via Err — per the error-handling
// design, a non-zero shell exit is logged and the caller still performs
// its paired disable; Err is reserved for failures to even start the
// process (missing binary, etc).
func Run(ctx context.Context, logger *logging.Logger, cmd []string) Result {
	start := time.Now()

	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	out, runErr := c.CombinedOutput()
	elapsed := time.Since(start)

	result := Result{
		Command:        cmd,
		CombinedOutput: string(out),
		Elapsed:        elapsed,
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Err = runErr
		}
	}

	if elapsed > SlowThreshold && logger != nil {
		logger.Warn("shell invocation exceeded slow threshold",
			"command", cmd,
			"elapsed_ms", elapsed.Milliseconds(),
			"threshold_ms", SlowThreshold.Milliseconds())
	}

	if ShellObserver != nil {
		ShellObserver(elapsed, SlowThreshold)
	}

	return result
}
