// nav/state.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"log/slog"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/wx"
)

// ActivePlan identifies which of an aircraft's waypoint sequences its
// Target and Last node IDs refer to.
type ActivePlan int

const (
	PlanDepartingTaxi ActivePlan = iota
	PlanAirborne
	PlanLandingTaxi
	PlanHolding
)

func (p ActivePlan) String() string {
	switch p {
	case PlanDepartingTaxi:
		return "departing_taxi"
	case PlanAirborne:
		return "airborne"
	case PlanLandingTaxi:
		return "landing_taxi"
	case PlanHolding:
		return "holding"
	default:
		return fmt.Sprintf("ActivePlan(%d)", int(p))
	}
}

// Types of taxi plan nodes that drive the surface phase transitions.
const (
	NodeGate     = "gate"
	NodeRamp     = "ramp"
	NodeTaxiway  = "taxiway"
	NodeCrossing = "crossing"
	NodeRunway   = "runway"
	NodeHold     = "hold"
)

// Plans holds the three waypoint sequences an aircraft flies: surface
// movement from the gate to the departure runway, the airborne flight
// plan, and surface movement from the arrival runway to the gate.
type Plans struct {
	DepartingTaxi *av.WaypointSequence
	Airborne      *av.FlightPlan
	LandingTaxi   *av.WaypointSequence
}

// Incident is a scripted deviation: at time At, an airborne aircraft
// enters Phase (USER_INCIDENT or one of the holding phases) for
// Duration and then resumes what it was doing.
type Incident struct {
	At       time.Time      `json:"at" yaml:"at"`
	Phase    av.FlightPhase `json:"phase" yaml:"phase"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
	Started  bool           `json:"-" yaml:"-"`
}

// AircraftState is the mutable per-aircraft state advanced by the
// flight-phase state machine.
type AircraftState struct {
	Callsign  string
	TypeIndex int

	Phase av.FlightPhase
	// ResumePhase is the phase to return to when a hold or incident
	// ends; nil when none is pending.
	ResumePhase *av.FlightPhase

	Position math.Point2LL
	Altitude float64 // ft MSL
	TAS, GS  float64 // knots
	ROCD     float64 // ft/min, positive climbing
	Course   float64 // true, radians
	FPA      float64 // radians

	Plans      Plans
	ActivePlan ActivePlan
	Target     av.NodeID
	Last       av.NodeID

	CruiseAltitude       float64
	CruiseTAS            float64
	OriginElevation      float64
	DestinationElevation float64

	// LevelOffRate is the rescaled vertical rate used on the last
	// sub-step that captured a target altitude; 0 otherwise.
	LevelOffRate float64
	Acceleration float64 // ft/s^2 along the runway

	V2, VRef float64

	RunwayEntry, RunwayEnd math.Point2LL
	RunwayElevation        float64
	FinalApproachFix       math.Point2LL
	GoAroundSplit          math.Point2LL
	GoAroundPoint          math.Point2LL

	Holding       *av.WaypointSequence
	HoldFor       time.Duration
	PreHoldPlan   ActivePlan
	PreHoldTarget av.NodeID

	HeldCDNR     time.Duration
	PreHoldTAS   float64
	HeldTactical bool
	// AwaitingClearance is set while the aircraft is stopped waiting
	// for a pending clearance.
	AwaitingClearance bool

	AbnormalOnRunway bool

	Remaining      time.Duration
	PhaseTime      time.Duration
	TimeToConflict time.Duration
	FuelBurnedKg   float64
	PhaseChanged   bool

	Incident *Incident

	transitions []av.FlightPhase
	resumed     bool
}

func (st *AircraftState) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("callsign", st.Callsign),
		slog.String("phase", st.Phase.String()),
		slog.Group("position",
			slog.String("ll", st.Position.DDString()),
			slog.Float64("altitude", st.Altitude)),
		slog.Group("kinematics",
			slog.Float64("tas", st.TAS),
			slog.Float64("gs", st.GS),
			slog.Float64("rocd", st.ROCD),
			slog.Float64("course", math.CourseToHeading(st.Course)),
			slog.Float64("fpa", math.Degrees(st.FPA))),
		slog.Group("plan",
			slog.String("active", st.ActivePlan.String()),
			slog.Int("target", int(st.Target)),
			slog.Int("last", int(st.Last))),
		slog.Duration("remaining", st.Remaining),
	}
	if st.ResumePhase != nil {
		attrs = append(attrs, slog.String("resume_phase", st.ResumePhase.String()))
	}
	if st.HeldCDNR > 0 {
		attrs = append(attrs, slog.Duration("held_cdnr", st.HeldCDNR), slog.Float64("pre_hold_tas", st.PreHoldTAS))
	}
	if st.AwaitingClearance {
		attrs = append(attrs, slog.Bool("awaiting_clearance", true))
	}
	if st.AbnormalOnRunway {
		attrs = append(attrs, slog.Bool("abnormal_on_runway", true))
	}
	return slog.GroupValue(attrs...)
}

// ClearanceChecker is consulted by clearance-gated phase transitions.
type ClearanceChecker interface {
	Check(kind av.ClearanceKind, now time.Time) av.ClearanceDecision
}

// Env bundles the read-only data an aircraft's state machine consults.
type Env struct {
	Perf            *av.PerformanceTable
	Wind            wx.WindField
	Clearances      ClearanceChecker
	DepartureRunway *av.Runway
	ArrivalRunway   *av.Runway
	TRACONAltitude  float64
	Lg              *log.Logger
}

func (env *Env) cleared(kind av.ClearanceKind, now time.Time) bool {
	if env.Clearances == nil {
		return true
	}
	return env.Clearances.Check(kind, now) == av.ClearanceGranted
}

func (env *Env) wind(now time.Time, p math.Point2LL, alt float64) (float64, float64) {
	if env.Wind == nil {
		return 0, 0
	}
	return env.Wind.Wind(now, p, alt)
}

func (env *Env) traconAltitude() float64 {
	if env.TRACONAltitude > 0 {
		return env.TRACONAltitude
	}
	return DefaultTRACONAltitude
}

const DefaultTRACONAltitude = 10000

// IsActive returns false once the aircraft has reached a phase after
// which it is no longer propagated.
func (st *AircraftState) IsActive() bool {
	return !st.Phase.IsTerminal()
}

// Sequence returns the waypoint sequence the Target and Last node IDs
// refer to.
func (st *AircraftState) Sequence() *av.WaypointSequence {
	switch st.ActivePlan {
	case PlanDepartingTaxi:
		return st.Plans.DepartingTaxi
	case PlanAirborne:
		return st.Plans.Airborne.Route
	case PlanLandingTaxi:
		return st.Plans.LandingTaxi
	case PlanHolding:
		return st.Holding
	default:
		return nil
	}
}

// TargetNode returns the node the aircraft is flying or driving toward,
// or nil if there is none.
func (st *AircraftState) TargetNode() *av.WaypointNode {
	if s := st.Sequence(); s != nil {
		return s.Node(st.Target)
	}
	return nil
}

func (st *AircraftState) targetType() string {
	if n := st.TargetNode(); n != nil {
		return n.Type
	}
	return ""
}

func (st *AircraftState) setPlan(p ActivePlan) {
	st.ActivePlan = p
	s := st.Sequence()
	st.Last = s.Head()
	st.Target = s.Next(st.Last)
}

// advanceTarget is called when the aircraft reaches its target node.
func (st *AircraftState) advanceTarget() {
	s := st.Sequence()
	st.Last = st.Target
	st.Target = s.Next(st.Target)
}

// NewAircraftState returns the state of an aircraft parked at its origin
// gate. The airborne plan's profile (cruise altitude and top of climb
// and descent) must already have been planned. Missing runways and taxi
// plans are synthesized from the airborne route.
func NewAircraftState(callsign string, typeIdx int, plans Plans, env *Env) (*AircraftState, error) {
	fp := plans.Airborne
	if fp == nil || fp.Route == nil || fp.Route.Len() < 2 {
		return nil, fmt.Errorf("%s: %w", callsign, av.ErrMalformedSequence)
	}
	if env.Perf == nil {
		return nil, fmt.Errorf("%s: %w", callsign, av.ErrUnknownAircraftType)
	}

	if env.DepartureRunway == nil {
		env.DepartureRunway = synthesizeDepartureRunway(fp, env.Perf)
	}
	if env.ArrivalRunway == nil {
		env.ArrivalRunway = synthesizeArrivalRunway(fp, env.Perf)
	}
	if plans.DepartingTaxi == nil || plans.DepartingTaxi.Len() < 2 {
		plans.DepartingTaxi = synthesizeDepartingTaxi(fp, env.DepartureRunway)
	}
	if plans.LandingTaxi == nil || plans.LandingTaxi.Len() < 2 {
		plans.LandingTaxi = synthesizeLandingTaxi(fp, env.ArrivalRunway)
	}

	cruiseTAS := fp.CruiseTAS
	if cruiseTAS <= 0 {
		cruiseTAS = env.Perf.CruiseTAS(fp.CruiseAltitude)
	}

	st := &AircraftState{
		Callsign:             callsign,
		TypeIndex:            typeIdx,
		Phase:                av.PhaseOriginGate,
		Plans:                plans,
		Altitude:             fp.OriginElevation,
		CruiseAltitude:       fp.CruiseAltitude,
		CruiseTAS:            cruiseTAS,
		OriginElevation:      fp.OriginElevation,
		DestinationElevation: fp.DestinationElevation,
		V2:                   env.Perf.V2(),
		VRef:                 env.Perf.VRef(),
		PreHoldTarget:        av.NoNode,
	}
	st.setPlan(PlanDepartingTaxi)
	st.Position = plans.DepartingTaxi.Node(st.Last).Location
	if n := st.TargetNode(); n != nil {
		st.Course = math.HeadingGC(st.Position, n.Location)
	}
	return st, nil
}
