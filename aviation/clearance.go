// aviation/clearance.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"
)

// ClearanceKind identifies an ATC clearance that gates a flight phase
// transition.
type ClearanceKind int

const (
	ClearancePushback ClearanceKind = iota
	ClearanceTaxiDeparting
	ClearanceTakeoff
	ClearanceEnterARTC
	ClearanceDescentFromCruise
	ClearanceEnterTRACON
	ClearanceApproach
	ClearanceTouchdown
	ClearanceTaxiLanding
	ClearanceRampLanding

	NumClearanceKinds
)

var clearanceNames = [NumClearanceKinds]string{
	"PUSHBACK", "TAXI_DEPARTING", "TAKEOFF", "ENTER_ARTC", "DESCENT_FROM_CRUISE",
	"ENTER_TRACON", "APPROACH", "TOUCHDOWN", "TAXI_LANDING", "RAMP_LANDING",
}

func (k ClearanceKind) String() string {
	if k < 0 || k >= NumClearanceKinds {
		return fmt.Sprintf("ClearanceKind(%d)", int(k))
	}
	return clearanceNames[k]
}

func ParseClearanceKind(s string) (ClearanceKind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for i, n := range clearanceNames {
		if n == s {
			return ClearanceKind(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownClearanceKind)
}

func (k ClearanceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ClearanceKind) UnmarshalText(b []byte) error {
	kind, err := ParseClearanceKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ClearanceDecision is the state of a single clearance request.
type ClearanceDecision int

const (
	ClearanceUnrequested ClearanceDecision = iota
	ClearancePending
	ClearanceGranted
)

func (d ClearanceDecision) String() string {
	switch d {
	case ClearanceUnrequested:
		return "unrequested"
	case ClearancePending:
		return "pending"
	case ClearanceGranted:
		return "granted"
	default:
		return fmt.Sprintf("ClearanceDecision(%d)", int(d))
	}
}
