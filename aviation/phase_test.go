// aviation/phase_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"testing"
)

func TestParseFlightPhase(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want FlightPhase
	}{
		{"CRUISE", PhaseCruise},
		{"FLIGHT_PHASE_CRUISE", PhaseCruise},
		{"flight_phase_top_of_descent", PhaseTopOfDescent},
		{" go_around ", PhaseGoAround},
		{"RUNWAYUNDERSHOOT", PhaseRunwayUndershoot},
	} {
		if got, err := ParseFlightPhase(tc.s); err != nil || got != tc.want {
			t.Errorf("%q: got %s/%v, expected %s", tc.s, got, err, tc.want)
		}
	}
	if _, err := ParseFlightPhase("BARREL_ROLL"); !errors.Is(err, ErrUnknownFlightPhase) {
		t.Errorf("got %v, expected ErrUnknownFlightPhase", err)
	}

	for p := range NumFlightPhases {
		if got, err := ParseFlightPhase(p.String()); err != nil || got != p {
			t.Errorf("%s didn't round trip: got %s/%v", p, got, err)
		}
	}

	if _, ok := lookupPrefixedPhase("CRUISE"); ok {
		t.Errorf("bare name matched prefixed lookup")
	}
	if p, ok := lookupPrefixedPhase("FLIGHT_PHASE_LAND"); !ok || p != PhaseLand {
		t.Errorf("prefixed lookup: got %s/%v", p, ok)
	}
}

func TestFlightPhasePredicates(t *testing.T) {
	for _, tc := range []struct {
		p                                     FlightPhase
		ground, descending, holding, terminal bool
	}{
		{PhasePushback, true, false, false, false},
		{PhaseCruise, false, false, false, false},
		{PhaseHoldInEnroutePattern, false, false, true, false},
		{PhaseHoldInArrivalPattern, false, true, true, false},
		{PhaseFinalApproach, false, true, false, false},
		{PhaseLanded, true, false, false, true},
		{PhaseRunwayOvershoot, true, false, false, true},
		{PhaseUserIncident, false, false, false, false},
	} {
		if tc.p.IsGround() != tc.ground || tc.p.IsDescending() != tc.descending ||
			tc.p.IsHolding() != tc.holding || tc.p.IsTerminal() != tc.terminal {
			t.Errorf("%s: got ground %v descending %v holding %v terminal %v", tc.p,
				tc.p.IsGround(), tc.p.IsDescending(), tc.p.IsHolding(), tc.p.IsTerminal())
		}
	}
}

func TestClearanceKindText(t *testing.T) {
	for k := range NumClearanceKinds {
		b, _ := k.MarshalText()
		var back ClearanceKind
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Errorf("%s: got %s/%v", k, back, err)
		}
	}
	if _, err := ParseClearanceKind("enter-tracon"); err != nil {
		t.Errorf("dashed name: %v", err)
	}
	if _, err := ParseClearanceKind("LAUNCH"); !errors.Is(err, ErrUnknownClearanceKind) {
		t.Errorf("got %v, expected ErrUnknownClearanceKind", err)
	}
}
