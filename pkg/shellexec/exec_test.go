package shellexec

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/netfault/faultctl/pkg/logging"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	res := Run(context.Background(), nil, []string{"sh", "-c", "echo hi; exit 3"})
	if res.Err != nil {
		t.Fatalf("unexpected start error: %v", res.Err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", res.ExitCode)
	}
	if res.CombinedOutput != "hi\n" {
		t.Fatalf("expected captured output, got %q", res.CombinedOutput)
	}
}

func TestRunDoesNotWarnOnFastInvocation(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON, Output: &buf})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := Run(ctx, logger, []string{"sh", "-c", "sleep 0"})
	if res.Elapsed >= SlowThreshold {
		t.Fatalf("sanity: expected a fast command, took %v", res.Elapsed)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no slow warning for a fast command, got %q", buf.String())
	}
}
