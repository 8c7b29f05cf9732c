// nav/kinematics.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/util"
	"github.com/mmp/trajgen/wx"
)

// Surface speeds, in knots.
const (
	RampSpeed     = 8
	TaxiSpeed     = 15
	CrossingSpeed = 12
	// RunwayExitSpeed is the speed at which a landing aircraft is
	// considered to have completed its rollout.
	RunwayExitSpeed = 20
)

// Fallback runway accelerations in ft/s^2 for tables without field
// lengths.
const (
	defaultTakeoffAcceleration = 6
	defaultLandingDeceleration = 5
)

// runwayCheckInterval bounds the takeoff and landing roll sub-steps so
// that runway deviations are detected promptly.
const runwayCheckInterval = time.Second

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LevelOff returns the altitude and vertical rate (ft/min) after
// climbing or descending toward target at rate for dt. If the
// unconstrained rate would reach or pass target within dt, the rate is
// rescaled to (target-alt)/dt so that the aircraft finishes exactly at
// target.
func LevelOff(alt, target, rate float64, dt time.Duration) (float64, float64) {
	mins := dt.Minutes()
	d := target - alt
	if mins <= 0 || d == 0 || rate == 0 {
		return alt, 0
	}
	r := math.Abs(rate) * math.Sign(d)
	if math.Abs(r*mins) >= math.Abs(d) {
		return target, d / mins
	}
	return alt + r*mins, r
}

// FlightPathAngle returns the flight path angle in radians for the given
// vertical rate (ft/min) and true airspeed (knots).
func FlightPathAngle(rocd, tas float64) float64 {
	v := tas * math.KnotsToFeetPerSecond
	if v <= 0 {
		return 0
	}
	return math.SafeASin(rocd / 60 / v)
}

// GroundSpeed returns the ground speed in knots of an aircraft with the
// given horizontal true airspeed tracking course (radians) through the
// given wind; the aircraft crabs to hold its course.
func GroundSpeed(tas, course, windEast, windNorth float64) float64 {
	head, cross := wx.Components(windEast, windNorth, course)
	if math.Abs(cross) >= tas {
		return 0
	}
	return max(0, math.Sqrt(tas*tas-cross*cross)-head)
}

func (st *AircraftState) updateGroundSpeed(env *Env, now time.Time) {
	if st.Phase.IsGround() {
		st.GS = st.TAS
		return
	}
	e, n := env.wind(now, st.Position, st.Altitude)
	st.GS = GroundSpeed(st.TAS*math.Cos(st.FPA), st.Course, e, n)
}

// moveToward moves the aircraft along the great circle toward p at its
// current ground speed for at most dt. If p is reached, the position is
// snapped to it and the time taken is returned.
func (st *AircraftState) moveToward(p math.Point2LL, dt time.Duration) (time.Duration, bool) {
	dist := math.DistanceGC(st.Position, p, 0)
	if dist == 0 {
		return 0, true
	}
	st.Course = math.HeadingGC(st.Position, p)

	speed := st.GS * math.KnotsToFeetPerSecond
	if speed <= 0 {
		return dt, false
	}
	if speed*dt.Seconds() >= dist {
		st.Position = p
		return min(dt, seconds(dist/speed)), true
	}
	st.Position = math.DestinationGC(st.Position, st.Course, speed*dt.Seconds(), 0)
	return dt, false
}

// fly flies toward p at tas while climbing or descending toward alt at
// rate (ft/min), for at most dt.
func (st *AircraftState) fly(env *Env, now time.Time, p math.Point2LL, tas, alt, rate float64,
	dt time.Duration) (time.Duration, bool) {
	if math.DistanceGC(st.Position, p, 0) > 0 {
		st.Course = math.HeadingGC(st.Position, p)
	}
	st.TAS = tas
	_, rocd := LevelOff(st.Altitude, alt, rate, dt)
	st.FPA = FlightPathAngle(rocd, tas)
	st.updateGroundSpeed(env, now)

	elapsed, reached := st.moveToward(p, dt)

	st.Altitude, st.ROCD = LevelOff(st.Altitude, alt, rate, elapsed)
	captured := st.Altitude == alt && st.ROCD != 0 && math.Abs(st.ROCD) < math.Abs(rate)
	st.LevelOffRate = util.Select(captured, st.ROCD, 0)
	st.FPA = FlightPathAngle(st.ROCD, tas)
	return elapsed, reached
}

// flyStraight continues on the current course when there is nothing
// left to fly toward.
func (st *AircraftState) flyStraight(env *Env, now time.Time, tas, alt, rate float64, dt time.Duration) time.Duration {
	st.TAS = tas
	st.Altitude, st.ROCD = LevelOff(st.Altitude, alt, rate, dt)
	st.FPA = FlightPathAngle(st.ROCD, tas)
	st.updateGroundSpeed(env, now)
	st.Position = math.DestinationGC(st.Position, st.Course, st.GS*math.KnotsToFeetPerSecond*dt.Seconds(), 0)
	return dt
}

// flyRoute flies the active sequence toward the target node, advancing
// the target when it is reached.
func (st *AircraftState) flyRoute(env *Env, now time.Time, tas, alt, rate float64, dt time.Duration) time.Duration {
	n := st.TargetNode()
	if n == nil {
		return st.flyStraight(env, now, tas, alt, rate, dt)
	}
	elapsed, reached := st.fly(env, now, n.Location, tas, alt, rate, dt)
	if reached {
		NavLog(st.Callsign, now.Add(elapsed), NavLogWaypoint, "passed %s", n.Name)
		st.advanceTarget()
	}
	return elapsed
}

// taxi drives the active surface sequence at the given speed.
func (st *AircraftState) taxi(speed float64, dt time.Duration, now time.Time) time.Duration {
	st.ROCD, st.FPA = 0, 0
	n := st.TargetNode()
	if n == nil {
		st.TAS, st.GS = 0, 0
		return dt
	}
	st.TAS, st.GS = speed, speed
	elapsed, reached := st.moveToward(n.Location, dt)
	if reached {
		NavLog(st.Callsign, now.Add(elapsed), NavLogWaypoint, "reached %s (%s)", n.Name, n.Type)
		st.advanceTarget()
	}
	return elapsed
}

// stationary consumes dt without moving.
func (st *AircraftState) stationary(dt time.Duration) time.Duration {
	st.TAS, st.GS, st.ROCD, st.FPA = 0, 0, 0, 0
	return dt
}

// runwayRoll accelerates (or decelerates, for negative acceleration)
// along the runway course until the speed reaches vTarget, for at most
// dt. It returns the elapsed time.
func (st *AircraftState) runwayRoll(vTarget float64, dt time.Duration) time.Duration {
	a := st.Acceleration
	v := st.TAS * math.KnotsToFeetPerSecond
	vt := vTarget * math.KnotsToFeetPerSecond
	st.ROCD, st.FPA = 0, 0

	if a == 0 || (a > 0 && v >= vt) || (a < 0 && v <= vt) {
		return 0
	}

	step := min(dt, runwayCheckInterval)
	reached := false
	if tv := seconds((vt - v) / a); tv <= step {
		step, reached = tv, true
	}
	s := step.Seconds()
	dist := v*s + 0.5*a*s*s
	st.Position = math.DestinationGC(st.Position, st.Course, dist, 0)
	if reached {
		st.TAS = vTarget
	} else {
		st.TAS = (v + a*s) * math.FeetPerSecondToKnots
	}
	st.GS = st.TAS
	return step
}

// fuelFlow returns the current fuel flow in kg/min.
func (st *AircraftState) fuelFlow(perf *av.PerformanceTable) float64 {
	switch {
	case st.Phase.IsGround() || st.GS == 0:
		return 0
	case st.ROCD > 0:
		return perf.ClimbFuelFlow(st.Altitude)
	case st.ROCD < 0:
		return perf.DescentFuelFlow(st.Altitude)
	default:
		return perf.CruiseFuelFlow(st.Altitude, av.Nominal)
	}
}
