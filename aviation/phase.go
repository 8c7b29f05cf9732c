// aviation/phase.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"
)

// FlightPhase is the state of an aircraft's flight-phase state machine.
type FlightPhase int

const (
	PhasePredeparture FlightPhase = iota
	PhaseOriginGate
	PhasePushback
	PhaseRampDeparting
	PhaseTaxiDeparting
	PhaseRunwayThresholdDeparting
	PhaseTakeoff
	PhaseClimbout
	PhaseHoldInDeparturePattern
	PhaseClimbToCruiseAltitude
	PhaseTopOfClimb
	PhaseCruise
	PhaseHoldInEnroutePattern
	PhaseTopOfDescent
	PhaseInitialDescent
	PhaseHoldInArrivalPattern
	PhaseApproach
	PhaseFinalApproach
	PhaseGoAround
	PhaseTouchdown
	PhaseLand
	PhaseExitRunway
	PhaseTaxiArriving
	PhaseRunwayCrossing
	PhaseRampArriving
	PhaseDestinationGate
	PhaseLanded
	PhaseHolding
	PhaseRunwayUndershoot
	PhaseRunwayOvershoot
	PhaseOutOfRunway
	PhaseTakeoffStall
	PhaseUserIncident

	NumFlightPhases
)

// legacyPhasePrefix is the prefix used by the enumerator names in
// geo-style flight plan files.
const legacyPhasePrefix = "FLIGHT_PHASE_"

var phaseNames = [NumFlightPhases]string{
	"PREDEPARTURE", "ORIGIN_GATE", "PUSHBACK", "RAMP_DEPARTING", "TAXI_DEPARTING",
	"RUNWAY_THRESHOLD_DEPARTING", "TAKEOFF", "CLIMBOUT", "HOLD_IN_DEPARTURE_PATTERN",
	"CLIMB_TO_CRUISE_ALTITUDE", "TOP_OF_CLIMB", "CRUISE", "HOLD_IN_ENROUTE_PATTERN",
	"TOP_OF_DESCENT", "INITIAL_DESCENT", "HOLD_IN_ARRIVAL_PATTERN", "APPROACH",
	"FINAL_APPROACH", "GO_AROUND", "TOUCHDOWN", "LAND", "EXIT_RUNWAY", "TAXI_ARRIVING",
	"RUNWAY_CROSSING", "RAMP_ARRIVING", "DESTINATION_GATE", "LANDED", "HOLDING",
	"RUNWAYUNDERSHOOT", "RUNWAYOVERSHOOT", "OUTOFRUNWAY", "TAKEOFF_STALL", "USER_INCIDENT",
}

func (p FlightPhase) String() string {
	if p < 0 || p >= NumFlightPhases {
		return fmt.Sprintf("FlightPhase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParseFlightPhase accepts either the bare phase name ("CRUISE") or the
// prefixed form used in geo-style plans ("FLIGHT_PHASE_CRUISE").
func ParseFlightPhase(s string) (FlightPhase, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, legacyPhasePrefix)
	for i, n := range phaseNames {
		if n == s {
			return FlightPhase(i), nil
		}
	}
	return PhasePredeparture, fmt.Errorf("%q: %w", s, ErrUnknownFlightPhase)
}

// lookupPrefixedPhase only matches the full prefixed enumerator name,
// e.g. "FLIGHT_PHASE_CRUISE"; a bare name is not recognized.
func lookupPrefixedPhase(s string) (FlightPhase, bool) {
	if !strings.HasPrefix(s, legacyPhasePrefix) {
		return PhasePredeparture, false
	}
	for i, n := range phaseNames {
		if legacyPhasePrefix+n == s {
			return FlightPhase(i), true
		}
	}
	return PhasePredeparture, false
}

func (p FlightPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *FlightPhase) UnmarshalText(b []byte) error {
	ph, err := ParseFlightPhase(string(b))
	if err != nil {
		return err
	}
	*p = ph
	return nil
}

// IsGround returns true for phases where the aircraft is on the airport
// surface.
func (p FlightPhase) IsGround() bool {
	switch p {
	case PhasePredeparture, PhaseOriginGate, PhasePushback, PhaseRampDeparting, PhaseTaxiDeparting,
		PhaseRunwayThresholdDeparting, PhaseTakeoff, PhaseLand, PhaseExitRunway, PhaseTaxiArriving,
		PhaseRunwayCrossing, PhaseRampArriving, PhaseDestinationGate, PhaseLanded,
		PhaseRunwayUndershoot, PhaseRunwayOvershoot, PhaseOutOfRunway, PhaseTakeoffStall:
		return true
	default:
		return false
	}
}

// IsDescending returns true for the airborne phases from top of descent
// through touchdown.
func (p FlightPhase) IsDescending() bool {
	switch p {
	case PhaseTopOfDescent, PhaseInitialDescent, PhaseHoldInArrivalPattern, PhaseApproach,
		PhaseFinalApproach, PhaseGoAround, PhaseTouchdown:
		return true
	default:
		return false
	}
}

func (p FlightPhase) IsHolding() bool {
	switch p {
	case PhaseHoldInDeparturePattern, PhaseHoldInEnroutePattern, PhaseHoldInArrivalPattern, PhaseHolding:
		return true
	default:
		return false
	}
}

// IsAbnormal returns true for the runway-deviation and stall phases;
// an aircraft in one of them no longer moves.
func (p FlightPhase) IsAbnormal() bool {
	switch p {
	case PhaseRunwayUndershoot, PhaseRunwayOvershoot, PhaseOutOfRunway, PhaseTakeoffStall:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for phases after which the aircraft is no
// longer propagated.
func (p FlightPhase) IsTerminal() bool {
	return p == PhaseLanded || p.IsAbnormal()
}
