package ures

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/srodi/ures/pkg/types"
)

func TestComputeProfilesSharedRegionScenario(t *testing.T) {
	procs := []types.Process{{PID: 1, Comm: "a"}, {PID: 2, Comm: "b"}}
	mappings := map[int][]types.MappingRecord{
		1: {{PID: 1, SizeBytes: 1000, ShareCount: 1}, {PID: 1, SizeBytes: 2000, ShareCount: 2}},
		2: {{PID: 2, SizeBytes: 1000, ShareCount: 1}, {PID: 2, SizeBytes: 2000, ShareCount: 2}},
	}

	profiles, err := ComputeProfiles(procs, mappings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	for _, p := range profiles {
		if p.URESBytes != 2000 {
			t.Fatalf("pid %d: expected URES 2000, got %d", p.PID, p.URESBytes)
		}
		if p.TotalRSSBytes != 3000 {
			t.Fatalf("pid %d: expected RSS 3000, got %d", p.PID, p.TotalRSSBytes)
		}
		if p.Mappings != 2 {
			t.Fatalf("pid %d: expected 2 mappings, got %d", p.PID, p.Mappings)
		}
	}
}

func TestContributionPrivateEqualsRSS(t *testing.T) {
	for _, size := range []uint64{0, 1, 4096, 1 << 40} {
		rec := types.MappingRecord{PID: 1, SizeBytes: size, ShareCount: 1}
		if got := Contribution(rec); got != float64(size) {
			t.Fatalf("size %d: expected %d, got %f", size, size, got)
		}
	}
}

func TestContributionSharedReconstructsSize(t *testing.T) {
	cases := []struct {
		size  uint64
		share uint32
	}{
		{2000, 2},
		{1000, 3},
		{4096, 7},
		{123457, 64},
	}
	for _, tc := range cases {
		rec := types.MappingRecord{PID: 1, SizeBytes: tc.size, ShareCount: tc.share}
		part := Contribution(rec)
		if math.Abs(part-float64(tc.size)/float64(tc.share)) > 1e-9 {
			t.Fatalf("size %d/%d: unexpected contribution %f", tc.size, tc.share, part)
		}
		var total float64
		for i := uint32(0); i < tc.share; i++ {
			total += part
		}
		if math.Abs(total-float64(tc.size)) > 1e-6 {
			t.Fatalf("size %d/%d: %d sharers sum to %f", tc.size, tc.share, tc.share, total)
		}
	}
}

func TestComputeProfilesKeepsFractionsUntilRounding(t *testing.T) {
	// 3 mappings of 1000 bytes shared 3 ways: 333.33 each, 1000 in total.
	procs := []types.Process{{PID: 7}}
	mappings := map[int][]types.MappingRecord{7: {
		{PID: 7, SizeBytes: 1000, ShareCount: 3},
		{PID: 7, SizeBytes: 1000, ShareCount: 3},
		{PID: 7, SizeBytes: 1000, ShareCount: 3},
	}}
	profiles, err := ComputeProfiles(procs, mappings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profiles[0].URESBytes != 1000 {
		t.Fatalf("expected 1000 after rounding once, got %d", profiles[0].URESBytes)
	}
}

func TestComputeProfilesZeroMappings(t *testing.T) {
	profiles, err := ComputeProfiles([]types.Process{{PID: 3, Comm: "idle"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected the empty process to be kept, got %d profiles", len(profiles))
	}
	if profiles[0].URESBytes != 0 || profiles[0].TotalRSSBytes != 0 {
		t.Fatalf("expected zero memory, got %+v", profiles[0])
	}
}

func TestComputeProfilesNoData(t *testing.T) {
	profiles, err := ComputeProfiles(nil, map[int][]types.MappingRecord{1: {{PID: 1, SizeBytes: 1, ShareCount: 1}}})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if profiles != nil {
		t.Fatalf("expected nil profiles, got %+v", profiles)
	}
}

func TestComputeProfilesSkipsInvalidRecords(t *testing.T) {
	procs := []types.Process{{PID: 10}, {PID: 11}}
	mappings := map[int][]types.MappingRecord{
		10: {
			{PID: 10, SizeBytes: 500, ShareCount: 1},
			{PID: 10, SizeBytes: 800, ShareCount: 0, Name: "[heap]"},
			{PID: 0, SizeBytes: 900, ShareCount: 1},
		},
		11: {
			{PID: 12, SizeBytes: 100, ShareCount: 1},
			{PID: 11, SizeBytes: 300, ShareCount: 3},
		},
		99: {{PID: 99, SizeBytes: 1, ShareCount: 1}},
	}

	profiles, err := ComputeProfiles(procs, mappings)
	if err == nil {
		t.Fatalf("expected skipped records to be reported")
	}
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	skipped := multierr.Errors(err)
	if len(skipped) != 4 {
		t.Fatalf("expected 4 skipped records, got %d: %v", len(skipped), skipped)
	}
	var rec *InvalidRecordError
	if !errors.As(skipped[0], &rec) || rec.PID != 10 || rec.Index != 1 {
		t.Fatalf("unexpected first skipped record: %v", skipped[0])
	}

	want := []types.ProcessMemoryProfile{
		{Process: types.Process{PID: 10}, TotalRSSBytes: 500, URESBytes: 500, Mappings: 1},
		{Process: types.Process{PID: 11}, TotalRSSBytes: 300, URESBytes: 100, Mappings: 1},
	}
	if diff := cmp.Diff(want, profiles); diff != "" {
		t.Fatalf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeProfilesIdempotent(t *testing.T) {
	procs := []types.Process{{PID: 1, User: "root"}, {PID: 2, User: "bob"}, {PID: 3, User: "bob"}}
	mappings := map[int][]types.MappingRecord{
		1: {{PID: 1, SizeBytes: 4096, ShareCount: 3}, {PID: 1, SizeBytes: 12288, ShareCount: 1}},
		2: {{PID: 2, SizeBytes: 4096, ShareCount: 3}},
		3: {{PID: 3, SizeBytes: 4096, ShareCount: 3}, {PID: 3, SizeBytes: 777, ShareCount: 5}},
	}
	first, err := ComputeProfiles(procs, mappings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ComputeProfiles(procs, mappings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestAccumulatorCompensates(t *testing.T) {
	var acc accumulator
	acc.add(1e16)
	for i := 0; i < 1000; i++ {
		acc.add(1)
	}
	acc.add(-1e16)
	if acc.value() != 1000 {
		t.Fatalf("expected 1000, got %f", acc.value())
	}
}
