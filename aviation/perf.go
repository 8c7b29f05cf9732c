// aviation/perf.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmp/trajgen/math"
)

// MinCruiseAltitude is the lowest altitude a flight plan's cruise
// altitude may be lowered to when the route is too short for the
// requested one.
const MinCruiseAltitude = 10000

// Number of altitude slices used when integrating climb and descent
// distances.
const profileSlices = 1000

// Column selects one of the low/nominal/high performance curves.
type Column int

const (
	Low Column = iota
	Nominal
	High

	NumColumns
)

func (c Column) String() string {
	switch c {
	case Low:
		return "low"
	case Nominal:
		return "nominal"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Column(%d)", int(c))
	}
}

func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "lo":
		return Low, nil
	case "nominal", "nom", "":
		return Nominal, nil
	case "high", "hi":
		return High, nil
	default:
		return Nominal, fmt.Errorf("%q: %w", s, ErrUnknownColumn)
	}
}

func (c Column) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Column) UnmarshalText(b []byte) error {
	col, err := ParseColumn(string(b))
	if err != nil {
		return err
	}
	*c = col
	return nil
}

// PerformanceRow is one altitude row of a performance table. Speeds are
// knots TAS, rates feet per minute, and fuel flows kg per minute.
type PerformanceRow struct {
	Altitude    float64             `json:"altitude" yaml:"altitude"`
	CruiseTAS   float64             `json:"cruise_tas" yaml:"cruise_tas"`
	ClimbTAS    float64             `json:"climb_tas" yaml:"climb_tas"`
	DescentTAS  float64             `json:"descent_tas" yaml:"descent_tas"`
	ClimbRate   [NumColumns]float64 `json:"climb_rate" yaml:"climb_rate"`
	DescentRate float64             `json:"descent_rate" yaml:"descent_rate"`
	CruiseFuel  [NumColumns]float64 `json:"cruise_fuel" yaml:"cruise_fuel"`
	ClimbFuel   float64             `json:"climb_fuel" yaml:"climb_fuel"`
	DescentFuel float64             `json:"descent_fuel" yaml:"descent_fuel"`
}

// StallSpeeds gives the calibrated stall speed in knots for each
// aerodynamic configuration.
type StallSpeeds struct {
	Takeoff      float64 `json:"takeoff" yaml:"takeoff"`
	InitialClimb float64 `json:"initial_climb" yaml:"initial_climb"`
	Cruise       float64 `json:"cruise" yaml:"cruise"`
	Approach     float64 `json:"approach" yaml:"approach"`
	Landing      float64 `json:"landing" yaml:"landing"`
}

// PerformanceTable holds the performance data for a single aircraft
// type. It's immutable once loaded and is shared by all aircraft of the
// type.
type PerformanceTable struct {
	Name     string           `json:"name" yaml:"name"`
	Synonyms []string         `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Rows     []PerformanceRow `json:"rows" yaml:"rows"`

	VStall        StallSpeeds `json:"vstall" yaml:"vstall"`
	TakeoffLength float64     `json:"takeoff_length" yaml:"takeoff_length"` // ft
	LandingLength float64     `json:"landing_length" yaml:"landing_length"` // ft
	MaxAltitude   float64     `json:"max_altitude" yaml:"max_altitude"`
	VMO           float64     `json:"vmo" yaml:"vmo"` // knots
	MMO           float64     `json:"mmo" yaml:"mmo"`
	Wingspan      float64     `json:"wingspan" yaml:"wingspan"` // ft
}

// Validate checks that the table can be used for lookups: it must have
// rows, sorted by altitude, with positive climb and descent rates.
func (t *PerformanceTable) Validate() error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("%s: %w", t.Name, ErrEmptyPerformanceTable)
	}
	for i, r := range t.Rows {
		if i > 0 && r.Altitude <= t.Rows[i-1].Altitude {
			return fmt.Errorf("%s: row %d altitude %.0f: %w", t.Name, i, r.Altitude, ErrUnsortedPerformanceTable)
		}
		if r.ClimbRate[Nominal] <= 0 || r.DescentRate <= 0 {
			return fmt.Errorf("%s: row %d: %w", t.Name, i, ErrInvalidPerformanceRate)
		}
	}
	return nil
}

// Altitude returns the altitude of the given row; out-of-range rows are
// clamped.
func (t *PerformanceTable) Altitude(row int) float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	return t.Rows[math.Clamp(row, 0, len(t.Rows)-1)].Altitude
}

// lookup returns the value of the given row field at alt, linearly
// interpolated between the bracketing rows. Altitudes outside the table
// clamp to the first or last row.
func (t *PerformanceTable) lookup(alt float64, field func(*PerformanceRow) float64) float64 {
	n := len(t.Rows)
	if n == 0 {
		return 0
	}
	if alt <= t.Rows[0].Altitude {
		return field(&t.Rows[0])
	}
	if alt >= t.Rows[n-1].Altitude {
		return field(&t.Rows[n-1])
	}

	// First row with altitude >= alt; the checks above ensure 0 < i < n.
	i := sort.Search(n, func(i int) bool { return t.Rows[i].Altitude >= alt })
	hi := &t.Rows[i]
	if hi.Altitude == alt {
		return field(hi)
	}
	lo := &t.Rows[i-1]
	x := (alt - lo.Altitude) / (hi.Altitude - lo.Altitude)
	return math.Lerp(x, field(lo), field(hi))
}

func (t *PerformanceTable) ClimbTAS(alt float64) float64 {
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.ClimbTAS })
}

func (t *PerformanceTable) CruiseTAS(alt float64) float64 {
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.CruiseTAS })
}

func (t *PerformanceTable) DescentTAS(alt float64) float64 {
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.DescentTAS })
}

func (t *PerformanceTable) ClimbRate(alt float64, c Column) float64 {
	c = math.Clamp(c, Low, High)
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.ClimbRate[c] })
}

// DescentRate returns the descent rate at alt. Only nominal descent
// rates are tabulated, so the column is ignored.
func (t *PerformanceTable) DescentRate(alt float64, c Column) float64 {
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.DescentRate })
}

func (t *PerformanceTable) CruiseFuelFlow(alt float64, c Column) float64 {
	c = math.Clamp(c, Low, High)
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.CruiseFuel[c] })
}

func (t *PerformanceTable) ClimbFuelFlow(alt float64) float64 {
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.ClimbFuel })
}

func (t *PerformanceTable) DescentFuelFlow(alt float64) float64 {
	return t.lookup(alt, func(r *PerformanceRow) float64 { return r.DescentFuel })
}

// V2 returns the takeoff safety speed in knots.
func (t *PerformanceTable) V2() float64 { return 1.2 * t.VStall.Takeoff }

// VRef returns the landing reference speed in knots.
func (t *PerformanceTable) VRef() float64 { return 1.3 * t.VStall.Landing }

// TakeoffAcceleration returns the constant ground-roll acceleration in
// ft/s^2 that reaches V2 at the end of the takeoff field length.
func (t *PerformanceTable) TakeoffAcceleration() float64 {
	if t.TakeoffLength <= 0 {
		return 0
	}
	v := t.V2() * math.KnotsToFeetPerSecond
	return v * v / (2 * t.TakeoffLength)
}

// LandingDeceleration returns the constant deceleration in ft/s^2 that
// stops an aircraft touching down at VRef within the landing field
// length.
func (t *PerformanceTable) LandingDeceleration() float64 {
	if t.LandingLength <= 0 {
		return 0
	}
	v := t.VRef() * math.KnotsToFeetPerSecond
	return v * v / (2 * t.LandingLength)
}

// ClimbDistance returns the ground distance in feet covered while
// climbing from fromAlt to toAlt at the nominal climb rate and climb
// TAS, integrating ds/dh = sqrt(v²-ḣ²)/ḣ with Simpson's rule.
func (t *PerformanceTable) ClimbDistance(fromAlt, toAlt float64) float64 {
	if toAlt <= fromAlt || len(t.Rows) == 0 {
		return 0
	}

	f := func(h float64) float64 {
		v := t.ClimbTAS(h) * math.KnotsToFeetPerSecond
		hdot := t.ClimbRate(h, Nominal) / 60
		if hdot <= 0 || hdot >= v {
			return 0
		}
		return math.Sqrt(v*v-hdot*hdot) / hdot
	}

	dh := (toAlt - fromAlt) / profileSlices
	sum := f(fromAlt) + f(toAlt)
	for i := 1; i < profileSlices; i++ {
		w := simpsonWeight(i)
		sum += w * f(fromAlt+float64(i)*dh)
	}
	return sum * dh / 3
}

func simpsonWeight(i int) float64 {
	if i%2 == 1 {
		return 4
	}
	return 2
}

// DescentDistance returns the ground distance in feet covered while
// descending from cruiseAlt to toAlt. The first slice is flown at the
// cruise TAS and the rest at the descent TAS.
func (t *PerformanceTable) DescentDistance(toAlt, cruiseAlt float64) float64 {
	if cruiseAlt <= toAlt || len(t.Rows) == 0 {
		return 0
	}

	dh := (cruiseAlt - toAlt) / profileSlices
	d := 0.
	for i := range profileSlices {
		h := cruiseAlt - float64(i)*dh
		v := t.DescentTAS(h)
		if i == 0 {
			v = t.CruiseTAS(h)
		}
		v *= math.KnotsToFeetPerSecond

		hdot := t.DescentRate(h, Nominal) / 60
		if hdot <= 0 || v <= 0 {
			continue
		}
		gamma := math.SafeASin(hdot / v)
		dt := dh / hdot
		d += math.Abs(v * math.Cos(gamma) * dt)
	}
	return d
}

// CruiseProfile is the result of fitting a cruise altitude to a route.
type CruiseProfile struct {
	Altitude        float64
	ClimbDistance   float64
	DescentDistance float64
}

// CruiseAltitudeFor returns the highest cruise altitude no greater than
// requested (and the table's maximum altitude) for which the climb and
// descent fit within pathLength feet. Lower altitudes are tried row by
// row; ErrCruiseAltitudeTooLow is returned if no altitude at or above
// MinCruiseAltitude fits.
func (t *PerformanceTable) CruiseAltitudeFor(pathLength, origElev, destElev, requested float64) (CruiseProfile, error) {
	return fitCruiseAltitude(t, pathLength, origElev, destElev, requested, t.ClimbDistance, t.DescentDistance)
}

func fitCruiseAltitude(t *PerformanceTable, pathLength, origElev, destElev, requested float64,
	climb func(from, to float64) float64, descent func(to, cruise float64) float64) (CruiseProfile, error) {
	if len(t.Rows) == 0 {
		return CruiseProfile{}, fmt.Errorf("%s: %w", t.Name, ErrEmptyPerformanceTable)
	}

	alt := requested
	if t.MaxAltitude > 0 {
		alt = math.Min(alt, t.MaxAltitude)
	}

	for {
		p := CruiseProfile{
			Altitude:        alt,
			ClimbDistance:   climb(origElev, alt),
			DescentDistance: descent(destElev, alt),
		}
		if p.ClimbDistance+p.DescentDistance <= pathLength {
			return p, nil
		}

		// Step down to the highest row strictly below the current
		// altitude.
		i := sort.Search(len(t.Rows), func(i int) bool { return t.Rows[i].Altitude >= alt }) - 1
		if i < 0 || t.Rows[i].Altitude < MinCruiseAltitude {
			return CruiseProfile{}, fmt.Errorf("%s: path %.1f nm too short for %.0f' cruise: %w", t.Name,
				pathLength*math.FeetToNauticalMiles, alt, ErrCruiseAltitudeTooLow)
		}
		alt = t.Rows[i].Altitude
	}
}
