// aviation/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import "errors"

var (
	ErrWaypointIndexOutOfRange  = errors.New("waypoint index out of range")
	ErrInvalidWaypointNode      = errors.New("invalid waypoint node")
	ErrMalformedSequence        = errors.New("malformed waypoint sequence")
	ErrUnknownAircraftType      = errors.New("unknown aircraft type")
	ErrDuplicateAircraftType    = errors.New("duplicate aircraft type")
	ErrEmptyPerformanceTable    = errors.New("performance table has no rows")
	ErrUnsortedPerformanceTable = errors.New("performance table rows not sorted by altitude")
	ErrInvalidPerformanceRate   = errors.New("performance table rate must be positive")
	ErrCruiseAltitudeTooLow     = errors.New("cruise altitude below minimum")
	ErrUnknownFlightPhase       = errors.New("unknown flight phase")
	ErrUnknownClearanceKind     = errors.New("unknown clearance kind")
	ErrUnknownColumn            = errors.New("unknown performance column")
	ErrUnknownRunway            = errors.New("unknown runway")
	ErrInvalidGraphNode         = errors.New("invalid graph node")
	ErrNoPath                   = errors.New("no path found")
)
