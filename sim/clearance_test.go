// sim/clearance_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/util"
)

func TestClearanceMonotonicity(t *testing.T) {
	cp := NewClearanceProtocol(DefaultClearanceDelays(), 1, 0, makeTestLogger())
	ac := cp.Add("TST101")

	want := defaultClearanceDelay.Total()
	prev := av.ClearanceUnrequested
	for i := range 30 {
		now := testStart.Add(time.Duration(i) * time.Second)
		got := cp.Check(ac, av.ClearancePushback, now)

		expect := util.Select(now.Sub(testStart) >= want, av.ClearanceGranted, av.ClearancePending)
		if got != expect {
			t.Errorf("%s: got %s, want %s", now.Sub(testStart), got, expect)
		}
		if prev == av.ClearanceGranted && got != av.ClearanceGranted {
			t.Errorf("%s: granted clearance went back to %s", now.Sub(testStart), got)
		}
		prev = got
	}

	rec := cp.Record(ac, av.ClearancePushback)
	if !rec.Requested.Equal(testStart) || !rec.Decided.Equal(testStart.Add(want)) || rec.Delay != want {
		t.Errorf("record %+v, want requested %s decided %s", rec, testStart, testStart.Add(want))
	}
	if r := cp.Record(ac, av.ClearanceTakeoff); r.Decision != av.ClearanceUnrequested {
		t.Errorf("unrelated clearance is %s", r.Decision)
	}
}

func TestClearanceDelayOverrides(t *testing.T) {
	delays := DefaultClearanceDelays()
	delays.Kinds[av.ClearanceTakeoff] = ClearanceDelay{Pilot: time.Minute, Controller: time.Minute}
	delays.PerAircraft = map[string]map[av.ClearanceKind]ClearanceDelay{
		"TST202": {av.ClearanceTakeoff: {Pilot: time.Second}},
	}
	cp := NewClearanceProtocol(delays, 1, 0, makeTestLogger())
	a, b := cp.Add("TST101"), cp.Add("TST202")

	for _, tc := range []struct {
		ac   int
		kind av.ClearanceKind
		want time.Duration
	}{
		{a, av.ClearanceTakeoff, 2 * time.Minute},
		{b, av.ClearanceTakeoff, time.Second},
		{b, av.ClearancePushback, defaultClearanceDelay.Total()},
	} {
		cp.Check(tc.ac, tc.kind, testStart)
		if got := cp.Record(tc.ac, tc.kind).Delay; got != tc.want {
			t.Errorf("aircraft %d %s: delay %s, want %s", tc.ac, tc.kind, got, tc.want)
		}
	}
}

func TestClearanceZeroDelay(t *testing.T) {
	delays := ClearanceDelays{Kinds: map[av.ClearanceKind]ClearanceDelay{av.ClearanceTouchdown: {}}}
	cp := NewClearanceProtocol(delays, 1, 0, makeTestLogger())
	ac := cp.Add("TST101")
	if got := cp.Check(ac, av.ClearanceTouchdown, testStart); got != av.ClearanceGranted {
		t.Errorf("zero delay clearance is %s on first check, want granted", got)
	}
}

func TestSkipRequestClearance(t *testing.T) {
	cp := NewClearanceProtocol(DefaultClearanceDelays(), 1, 0, makeTestLogger())
	ac := cp.Add("TST101")
	cp.SkipRequestClearance(ac, av.ClearanceTakeoff)
	if got := cp.Check(ac, av.ClearanceTakeoff, testStart); got != av.ClearanceGranted {
		t.Errorf("skipped clearance is %s, want granted", got)
	}
}

func TestClearanceWatchdog(t *testing.T) {
	delays := DefaultClearanceDelays()
	delays.Kinds[av.ClearanceApproach] = ClearanceDelay{Controller: time.Hour}
	cp := NewClearanceProtocol(delays, 1, 10*time.Minute, makeTestLogger())
	ac := cp.Add("TST101")
	cp.Check(ac, av.ClearanceApproach, testStart)
	cp.Check(ac, av.ClearancePushback, testStart)

	if s := cp.Watchdog(testStart.Add(5 * time.Minute)); len(s) != 0 {
		t.Errorf("stalled before threshold: %v", s)
	}
	s := cp.Watchdog(testStart.Add(11 * time.Minute))
	if len(s) != 1 || s[0].Kind != av.ClearanceApproach || s[0].Callsign != "TST101" {
		t.Errorf("got stalled %v, want TST101 approach", s)
	}
	if s := cp.Watchdog(testStart.Add(20 * time.Minute)); len(s) != 0 {
		t.Errorf("stall reported twice: %v", s)
	}
}

func TestClearanceJitterDeterminism(t *testing.T) {
	delays := DefaultClearanceDelays()
	delays.Jitter = 0.5

	draw := func() []time.Duration {
		cp := NewClearanceProtocol(delays, 42, 0, makeTestLogger())
		var d []time.Duration
		for _, cs := range []string{"A", "B", "C"} {
			ac := cp.Add(cs)
			for kind := range av.NumClearanceKinds {
				cp.Check(ac, kind, testStart)
				d = append(d, cp.Record(ac, kind).Delay)
			}
		}
		return d
	}

	d0, d1 := draw(), draw()
	total := defaultClearanceDelay.Total()
	for i := range d0 {
		if d0[i] != d1[i] {
			t.Errorf("delay %d differs between runs: %s vs %s", i, d0[i], d1[i])
		}
		if d0[i] < total/2 || d0[i] > total*3/2 {
			t.Errorf("delay %d %s outside jitter range", i, d0[i])
		}
	}
}
