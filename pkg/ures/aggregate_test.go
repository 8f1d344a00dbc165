package ures

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/srodi/ures/pkg/types"
)

func cpu(id int) *int { return &id }

func sampleProfiles() []types.ProcessMemoryProfile {
	return []types.ProcessMemoryProfile{
		{Process: types.Process{PID: 1, User: "root", Comm: "init", LastCPU: cpu(0), UserTicks: 5}, URESBytes: 1500, TotalRSSBytes: 4000},
		{Process: types.Process{PID: 20, User: "alice", Comm: "worker", LastCPU: cpu(1), UserTicks: 1, SystemTicks: 2}, URESBytes: 100, TotalRSSBytes: 900},
		{Process: types.Process{PID: 21, User: "alice", Comm: "worker", LastCPU: cpu(1)}, URESBytes: 200, TotalRSSBytes: 950},
		{Process: types.Process{PID: 22, User: "bob", Comm: "worker", LastCPU: cpu(3), SystemTicks: 9}, URESBytes: 300, TotalRSSBytes: 1000},
		{Process: types.Process{PID: 30, UID: 1001, Comm: "sleepy", LastCPU: cpu(3)}},
	}
}

func TestAggregateByCommandWorkerScenario(t *testing.T) {
	groups, err := AggregateBy(sampleProfiles(), types.ByCommand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	worker, ok := groups["worker"]
	if !ok {
		t.Fatalf("missing worker group: %+v", groups)
	}
	want := types.GroupSummary{Key: "worker", MemberCount: 3, TotalURESBytes: 600, TotalRSSBytes: 2850, UserTicks: 1, SystemTicks: 11}
	if diff := cmp.Diff(want, worker); diff != "" {
		t.Fatalf("worker group mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateByUserConservesURES(t *testing.T) {
	profiles := sampleProfiles()
	groups, err := AggregateBy(profiles, types.ByUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fromProfiles, fromGroups uint64
	members := 0
	for _, p := range profiles {
		fromProfiles += p.URESBytes
	}
	for _, g := range groups {
		fromGroups += g.TotalURESBytes
		members += g.MemberCount
	}
	if fromGroups != fromProfiles {
		t.Fatalf("URES not conserved: groups %d, profiles %d", fromGroups, fromProfiles)
	}
	if members != len(profiles) {
		t.Fatalf("expected %d members, got %d", len(profiles), members)
	}
	if g := groups["1001"]; g.MemberCount != 1 || g.TotalURESBytes != 0 {
		t.Fatalf("expected zero-memory process grouped under its uid, got %+v", g)
	}
}

func TestAggregateByIsOrderIndependent(t *testing.T) {
	profiles := sampleProfiles()
	reversed := make([]types.ProcessMemoryProfile, len(profiles))
	for i, p := range profiles {
		reversed[len(profiles)-1-i] = p
	}
	for _, key := range []types.GroupKey{types.ByUser, types.ByCommand, types.ByCPU} {
		a, err := AggregateBy(profiles, key)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", key, err)
		}
		b, err := AggregateBy(reversed, key)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", key, err)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("%s: order changed result (-forward +reversed):\n%s", key, diff)
		}
	}
}

func TestAggregateByCPUSkipsMissing(t *testing.T) {
	profiles := sampleProfiles()
	profiles = append(profiles, types.ProcessMemoryProfile{Process: types.Process{PID: 40, Comm: "nocpu"}, URESBytes: 50})
	groups, err := AggregateBy(profiles, types.ByCPU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected cpus 0, 1 and 3, got %+v", groups)
	}
	if groups["1"].TotalURESBytes != 300 || groups["3"].MemberCount != 2 {
		t.Fatalf("unexpected cpu groups: %+v", groups)
	}
}

func TestAggregateByUnknownKey(t *testing.T) {
	if _, err := AggregateBy(sampleProfiles(), types.GroupKey(42)); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestHasCPUData(t *testing.T) {
	cases := []struct {
		name     string
		profiles []types.ProcessMemoryProfile
		expected bool
	}{
		{"none", []types.ProcessMemoryProfile{{Process: types.Process{PID: 1}}}, false},
		{"allZero", []types.ProcessMemoryProfile{{Process: types.Process{PID: 1, LastCPU: cpu(0)}}}, false},
		{"someNonZero", sampleProfiles(), true},
	}
	for _, tc := range cases {
		if got := HasCPUData(tc.profiles); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}
