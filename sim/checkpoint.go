// sim/checkpoint.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/brunoga/deep"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/util"
)

type aircraftCheckpoint struct {
	Callsign        string
	Status          AircraftStatus
	State           *nav.AircraftState
	Transitions     []av.FlightPhase
	DepartureRunway *av.Runway
	ArrivalRunway   *av.Runway
	Pending         time.Duration
	LastSample      time.Time
	Sector          int
	Clearances      [av.NumClearanceKinds]ClearanceRecord
}

type checkpoint struct {
	Start        time.Time
	Tick         time.Duration
	Now          time.Time
	LastReroute  time.Time
	Status       Status
	Stats        Stats
	Aircraft     []aircraftCheckpoint
	Vehicles     []*GroundVehicle
	Trajectories storedTrajectories
}

// SaveCheckpoint writes the complete state of a simulation that is not
// currently running so that it can later be resumed with
// LoadCheckpoint. Random number generator state is not saved; clearance
// delay jitter after a restore differs from an uninterrupted run.
func (s *Sim) SaveCheckpoint(w io.Writer) error {
	s.mu.Lock(s.lg)
	if s.status.running() {
		s.mu.Unlock(s.lg)
		return ErrNotPaused
	}

	cp := checkpoint{
		Start:        s.Config.Start,
		Tick:         s.Config.Tick(),
		Now:          s.now,
		LastReroute:  s.lastReroute,
		Status:       s.status,
		Stats:        s.Stats,
		Vehicles:     s.Vehicles,
		Trajectories: s.Trajectories.stored(),
	}
	for i, ac := range s.Fleet.Aircraft {
		acp := aircraftCheckpoint{
			Callsign:        ac.Callsign(),
			Status:          ac.Status,
			State:           ac.State,
			DepartureRunway: ac.DepartureRunway,
			ArrivalRunway:   ac.ArrivalRunway,
			Pending:         ac.Pending,
			LastSample:      ac.LastSample,
			Sector:          ac.Sector,
			Clearances:      s.Clearances.aircraft[i].Records,
		}
		if ac.State != nil {
			acp.Transitions = ac.State.Transitions()
		}
		cp.Aircraft = append(cp.Aircraft, acp)
	}
	// Encoding happens without the lock held.
	cp = deep.MustCopy(cp)
	s.mu.Unlock(s.lg)

	if err := util.EncodeObject(w, cp); err != nil {
		return err
	}
	s.lg.Info("saved checkpoint", "time", cp.Now, "aircraft", len(cp.Aircraft))
	return nil
}

// LoadCheckpoint restores state written by SaveCheckpoint. The
// simulation must have been created from the same scenario and must not
// be running; afterward it is paused at the checkpoint's time unless
// the checkpointed run had already finished.
func (s *Sim) LoadCheckpoint(r io.Reader) error {
	var cp checkpoint
	if err := util.DecodeObject(r, &cp); err != nil {
		return err
	}

	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if s.status.running() {
		return ErrNotPaused
	}
	if err := s.checkCheckpoint(&cp); err != nil {
		return err
	}
	if err := s.Trajectories.restore(cp.Trajectories); err != nil {
		return err
	}

	for i, acp := range cp.Aircraft {
		ac := s.Fleet.Aircraft[i]
		ac.Status = acp.Status
		ac.State = acp.State
		ac.DepartureRunway, ac.ArrivalRunway = acp.DepartureRunway, acp.ArrivalRunway
		ac.Pending, ac.LastSample, ac.Sector = acp.Pending, acp.LastSample, acp.Sector
		s.Clearances.aircraft[i].Records = acp.Clearances
		if ac.State != nil {
			ac.State.RestoreTransitions(acp.Transitions)
			ac.env = s.makeEnv(ac)
		} else {
			ac.env = nil
		}
	}
	s.Vehicles = cp.Vehicles
	s.now, s.lastReroute, s.Stats = cp.Now, cp.LastReroute, cp.Stats

	switch cp.Status {
	case StatusReady, StatusEnded, StatusStopped:
		s.status = cp.Status
	default:
		s.status = StatusPaused
	}
	s.lg.Info("loaded checkpoint", "time", s.now, "status", s.status.String(), "stats", s.Stats)
	return nil
}

func (s *Sim) checkCheckpoint(cp *checkpoint) error {
	if !cp.Start.Equal(s.Config.Start) || cp.Tick != s.Config.Tick() {
		return fmt.Errorf("start %s tick %s vs %s %s: %w", cp.Start, cp.Tick, s.Config.Start,
			s.Config.Tick(), ErrCheckpointMismatch)
	}
	if len(cp.Aircraft) != s.Fleet.Len() {
		return fmt.Errorf("%d aircraft, expected %d: %w", len(cp.Aircraft), s.Fleet.Len(), ErrCheckpointMismatch)
	}
	for i, acp := range cp.Aircraft {
		if cs := s.Fleet.Aircraft[i].Callsign(); acp.Callsign != cs {
			return fmt.Errorf("aircraft %d is %s, expected %s: %w", i, acp.Callsign, cs, ErrCheckpointMismatch)
		}
	}
	if len(cp.Vehicles) != len(s.Vehicles) {
		return fmt.Errorf("%d vehicles, expected %d: %w", len(cp.Vehicles), len(s.Vehicles), ErrCheckpointMismatch)
	}
	for i, v := range cp.Vehicles {
		if v.ID != s.Vehicles[i].ID {
			return fmt.Errorf("vehicle %d is %s, expected %s: %w", i, v.ID, s.Vehicles[i].ID, ErrCheckpointMismatch)
		}
	}
	return nil
}
