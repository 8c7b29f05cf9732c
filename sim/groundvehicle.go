// sim/groundvehicle.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
)

type VehicleStatus int

const (
	VehicleWaiting VehicleStatus = iota
	VehicleDriving
	VehicleArrived
)

func (s VehicleStatus) String() string {
	return [...]string{"WAITING", "DRIVING", "ARRIVED"}[s]
}

// VehicleSpec describes a ground vehicle in a scenario.
type VehicleSpec struct {
	ID        string            `json:"id" yaml:"id"`
	Type      string            `json:"type" yaml:"type"`
	Airport   string            `json:"airport" yaml:"airport"`
	Departure time.Time         `json:"departure" yaml:"departure"`
	Speed     float64           `json:"speed" yaml:"speed"` // knots
	DrivePlan []av.WaypointNode `json:"drive_plan" yaml:"drive_plan"`
	// OperatorAbsenceTicks is the number of ticks the vehicle waits
	// after its departure time before it starts moving.
	OperatorAbsenceTicks int `json:"operator_absence_ticks,omitempty" yaml:"operator_absence_ticks,omitempty"`
}

// GroundVehicle is an airport surface vehicle that drives a fixed plan.
// It shares the waypoint representation and boundary-clipping movement
// rule of aircraft but has no flight phases.
type GroundVehicle struct {
	ID        string
	Type      string
	Airport   string
	DrivePlan *av.WaypointSequence
	Target    av.NodeID
	Position  math.Point2LL
	Speed     float64 // knots
	Course    float64 // radians
	Departure time.Time
	Status    VehicleStatus

	// AbsenceRemaining counts down the ticks the operator is away.
	AbsenceRemaining int
	DriveSpeed       float64 // knots
}

func NewGroundVehicle(spec VehicleSpec) (*GroundVehicle, error) {
	if len(spec.DrivePlan) < 2 {
		return nil, fmt.Errorf("%s: %w", spec.ID, ErrVehiclePlanTooShort)
	}
	plan := av.NewWaypointSequence(spec.DrivePlan...)
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	head := plan.Head()
	v := &GroundVehicle{
		ID:               spec.ID,
		Type:             spec.Type,
		Airport:          spec.Airport,
		DrivePlan:        plan,
		Target:           plan.Next(head),
		Position:         plan.Node(head).Location,
		Departure:        spec.Departure,
		AbsenceRemaining: spec.OperatorAbsenceTicks,
		DriveSpeed:       spec.Speed,
	}
	v.Course = math.HeadingGC(v.Position, plan.Node(v.Target).Location)
	return v, nil
}

// Step advances the vehicle for dt starting at now. It returns true if
// the vehicle arrived at the end of its plan during the step.
func (v *GroundVehicle) Step(now time.Time, dt time.Duration) bool {
	switch v.Status {
	case VehicleArrived:
		return false
	case VehicleWaiting:
		if now.Before(v.Departure) {
			return false
		}
		if v.AbsenceRemaining > 0 {
			v.AbsenceRemaining--
			return false
		}
		v.Status = VehicleDriving
	}

	v.Speed = v.DriveSpeed
	speed := v.Speed * math.KnotsToFeetPerSecond
	remaining := dt.Seconds()
	for remaining > 0 && speed > 0 {
		n := v.DrivePlan.Node(v.Target)
		if n == nil {
			break
		}
		dist := math.DistanceGC(v.Position, n.Location, 0)
		if dist > 0 {
			v.Course = math.HeadingGC(v.Position, n.Location)
		}
		if speed*remaining < dist {
			v.Position = math.DestinationGC(v.Position, v.Course, speed*remaining, 0)
			return false
		}
		// Clip the sub-step to reach the node exactly.
		v.Position = n.Location
		remaining -= dist / speed
		v.Target = v.DrivePlan.Next(v.Target)
	}

	if v.DrivePlan.Node(v.Target) == nil {
		v.Status = VehicleArrived
		v.Speed = 0
		return true
	}
	return false
}

func (v *GroundVehicle) sample(t time.Time) Sample {
	return Sample{
		Time:     t,
		Position: v.Position,
		GS:       v.Speed,
		TAS:      v.Speed,
		Course:   math.CourseToHeading(v.Course),
		Phase:    v.Status.String(),
		Sector:   -1,
	}
}

func (v *GroundVehicle) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", v.ID),
		slog.String("type", v.Type),
		slog.String("airport", v.Airport),
		slog.String("status", v.Status.String()),
		slog.String("position", v.Position.DDString()),
		slog.Int("target", int(v.Target)))
}
