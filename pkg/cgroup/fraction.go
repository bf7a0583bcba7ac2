// Package cgroup computes a process's CPU cgroup share, used to
// normalize a requested stress percentage against the slice of a CPU
// the target process is actually entitled to. Grounded on
// NodeInjector._get_cgroup_name / _get_cgroup_size in
// mininet/fault_injectors.py: read /proc/<pid>/cgroup for the
// cpu,cpuacct controller's slice name, then read that slice's
// cpu.cfs_period_us/cpu.cfs_quota_us via cgget.
package cgroup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var cgroupLineRe = regexp.MustCompile(`^\d*:cpu,cpuacct:(.*)$`)

// Name reads /proc/<pid>/cgroup and returns the cpu,cpuacct controller's
// slice path (e.g. "/docker/abcdef" or "/user.slice").
func Name(pid int) (string, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/cgroup", pid))
	if err != nil {
		return "", fmt.Errorf("failed to open cgroup file for pid %d: %w", pid, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := cgroupLineRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan cgroup file for pid %d: %w", pid, err)
	}
	return "", fmt.Errorf("no cpu,cpuacct entry found in cgroup file for pid %d", pid)
}

var (
	periodRe = regexp.MustCompile(`cpu\.cfs_period_us:\s*(\d+)`)
	quotaRe  = regexp.MustCompile(`cpu\.cfs_quota_us:\s*(-?\d+)`)
)

// Fraction returns quota/period for the named cgroup, i.e. the share of
// a single CPU the cgroup is entitled to. A quota of -1 (unlimited)
// yields a fraction of 1.0.
func Fraction(ctx context.Context, name string) (float64, error) {
	cmd := exec.CommandContext(ctx, "cgget", "-g", "cpu", name)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("cgget -g cpu %s failed: %w (output: %s)", name, err, strings.TrimSpace(string(out)))
	}

	periodMatch := periodRe.FindStringSubmatch(string(out))
	quotaMatch := quotaRe.FindStringSubmatch(string(out))
	if periodMatch == nil || quotaMatch == nil {
		return 0, fmt.Errorf("could not parse cpu.cfs_period_us/cpu.cfs_quota_us from cgget output for %s", name)
	}

	period, err := strconv.ParseFloat(periodMatch[1], 64)
	if err != nil || period == 0 {
		return 0, fmt.Errorf("invalid cpu.cfs_period_us %q for %s", periodMatch[1], name)
	}
	quota, err := strconv.ParseFloat(quotaMatch[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu.cfs_quota_us %q for %s", quotaMatch[1], name)
	}
	if quota < 0 {
		return 1.0, nil
	}
	return quota / period, nil
}

// FractionForPID is the convenience composition of Name and Fraction
// for a target process.
func FractionForPID(ctx context.Context, pid int) (float64, error) {
	name, err := Name(pid)
	if err != nil {
		return 0, err
	}
	return Fraction(ctx, name)
}
