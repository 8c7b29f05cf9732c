// sim/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
)

var (
	ErrAlreadyStarted       = errors.New("simulation already started")
	ErrCheckpointMismatch   = errors.New("checkpoint does not match scenario")
	ErrDuplicateCallsign    = errors.New("duplicate callsign")
	ErrDuplicateVehicle     = errors.New("duplicate ground vehicle ID")
	ErrInvalidConfig        = errors.New("invalid simulation configuration")
	ErrInvalidScenario      = errors.New("invalid scenario")
	ErrNotPaused            = errors.New("simulation is not paused")
	ErrNotRunning           = errors.New("simulation is not running")
	ErrSimulationEnded      = errors.New("simulation has ended")
	ErrSimulationStopped    = errors.New("simulation was stopped")
	ErrUnknownAirport       = errors.New("unknown airport")
	ErrUnknownScenarioType  = errors.New("unknown scenario file type")
	ErrUnknownWaypoint      = errors.New("unknown waypoint")
	ErrUnknownCallsign      = errors.New("unknown callsign")
	ErrVehiclePlanTooShort  = errors.New("ground vehicle drive plan needs at least two nodes")
	ErrNoTrajectorySamples  = errors.New("no trajectory samples")
	ErrCorruptTrajectoryLog = errors.New("corrupt trajectory store")
)
