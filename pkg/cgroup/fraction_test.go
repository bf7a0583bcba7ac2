package cgroup

import (
	"strconv"
	"strings"
	"testing"
)

func TestCgroupLineRegexMatchesCPUAcctEntry(t *testing.T) {
	content := "12:pids:/docker/abcdef\n11:cpu,cpuacct:/docker/abcdef\n10:memory:/docker/abcdef\n"

	var slice string
	for _, l := range strings.Split(content, "\n") {
		if m := cgroupLineRe.FindStringSubmatch(l); m != nil {
			slice = m[1]
			break
		}
	}
	if slice != "/docker/abcdef" {
		t.Fatalf("expected cgroup slice /docker/abcdef, got %q", slice)
	}
}

func TestNameMissingPID(t *testing.T) {
	if _, err := Name(-1); err == nil {
		t.Fatal("expected an error reading a nonexistent pid's cgroup file")
	}
}

func TestPeriodAndQuotaRegexes(t *testing.T) {
	out := "cpu.cfs_period_us: 100000\ncpu.cfs_quota_us: 50000\n"

	periodMatch := periodRe.FindStringSubmatch(out)
	quotaMatch := quotaRe.FindStringSubmatch(out)
	if periodMatch == nil || quotaMatch == nil {
		t.Fatalf("expected both period and quota to match, got %+v %+v", periodMatch, quotaMatch)
	}

	period, err := strconv.ParseFloat(periodMatch[1], 64)
	if err != nil || period != 100000 {
		t.Fatalf("expected period 100000, got %v (err %v)", period, err)
	}
	quota, err := strconv.ParseFloat(quotaMatch[1], 64)
	if err != nil || quota != 50000 {
		t.Fatalf("expected quota 50000, got %v (err %v)", quota, err)
	}
	if quota/period != 0.5 {
		t.Fatalf("expected fraction 0.5, got %v", quota/period)
	}
}

func TestQuotaRegexHandlesUnlimited(t *testing.T) {
	out := "cpu.cfs_period_us: 100000\ncpu.cfs_quota_us: -1\n"
	quotaMatch := quotaRe.FindStringSubmatch(out)
	if quotaMatch == nil || quotaMatch[1] != "-1" {
		t.Fatalf("expected quota regex to capture -1, got %+v", quotaMatch)
	}
}
