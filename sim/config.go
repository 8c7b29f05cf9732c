// sim/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"runtime"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/util"
)

// CDNRDistances gives the distance (feet) at which conflict detection
// starts considering a pair of aircraft and the separation it must
// preserve.
type CDNRDistances struct {
	Initiation float64 `json:"initiation" yaml:"initiation"`
	Separation float64 `json:"separation" yaml:"separation"`
}

type CDNRConfig struct {
	Surface  CDNRDistances `json:"surface" yaml:"surface"`
	Terminal CDNRDistances `json:"terminal" yaml:"terminal"`
	Enroute  CDNRDistances `json:"enroute" yaml:"enroute"`
	// DelaySteps is the number of ticks a conflicting aircraft is held.
	DelaySteps int `json:"delay_steps" yaml:"delay_steps"`
}

func (c CDNRConfig) distances(r nav.Regime) CDNRDistances {
	switch r {
	case nav.RegimeSurface:
		return c.Surface
	case nav.RegimeTerminal:
		return c.Terminal
	default:
		return c.Enroute
	}
}

// Config holds the parameters of a simulation run.
type Config struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`

	TimeStepSurface      time.Duration `json:"time_step_surface" yaml:"time_step_surface"`
	TimeStepTerminal     time.Duration `json:"time_step_terminal" yaml:"time_step_terminal"`
	TimeStepAirborne     time.Duration `json:"time_step_airborne" yaml:"time_step_airborne"`
	AirborneSamplePeriod time.Duration `json:"airborne_sample_period" yaml:"airborne_sample_period"`

	// TRACONAltitude separates the terminal and airborne regimes (ft).
	TRACONAltitude float64 `json:"tracon_altitude" yaml:"tracon_altitude"`

	EnableCDNR bool       `json:"enable_cdnr" yaml:"enable_cdnr"`
	CDNR       CDNRConfig `json:"cdnr" yaml:"cdnr"`

	EnableStrategicWeather bool          `json:"enable_strategic_weather" yaml:"enable_strategic_weather"`
	StrategicWeatherPeriod time.Duration `json:"strategic_weather_period" yaml:"strategic_weather_period"`
	EnableTacticalWeather  bool          `json:"enable_tactical_weather" yaml:"enable_tactical_weather"`

	Seed int64 `json:"seed" yaml:"seed"`
	// CruiseTASPerturbation is the fraction by which each flight's
	// cruise TAS is randomly perturbed.
	CruiseTASPerturbation float64 `json:"cruise_tas_perturbation" yaml:"cruise_tas_perturbation"`

	Workers int `json:"workers" yaml:"workers"`

	ClearanceDelays       ClearanceDelays `json:"clearance_delays" yaml:"clearance_delays"`
	StallWarningThreshold time.Duration   `json:"stall_warning_threshold" yaml:"stall_warning_threshold"`
	// SkipClearances grants every clearance kind listed immediately.
	SkipClearances []av.ClearanceKind `json:"skip_clearances,omitempty" yaml:"skip_clearances,omitempty"`
}

// DefaultConfig returns a configuration with 1s surface and terminal
// steps, a 30s airborne step and CDNR disabled.
func DefaultConfig() Config {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return Config{
		Start:                start,
		End:                  start.Add(24 * time.Hour),
		TimeStepSurface:      time.Second,
		TimeStepTerminal:     time.Second,
		TimeStepAirborne:     30 * time.Second,
		AirborneSamplePeriod: 60 * time.Second,
		TRACONAltitude:       nav.DefaultTRACONAltitude,
		CDNR: CDNRConfig{
			Surface:    CDNRDistances{Initiation: 600, Separation: 300},
			Terminal:   CDNRDistances{Initiation: 20 * math.NauticalMilesToFeet, Separation: 3 * math.NauticalMilesToFeet},
			Enroute:    CDNRDistances{Initiation: 20 * math.NauticalMilesToFeet, Separation: 5 * math.NauticalMilesToFeet},
			DelaySteps: 10,
		},
		StrategicWeatherPeriod: time.Hour,
		Workers:                runtime.NumCPU(),
		ClearanceDelays:        DefaultClearanceDelays(),
		StallWarningThreshold:  30 * time.Minute,
	}
}

// Tick returns the global tick length: the smallest configured step.
func (c *Config) Tick() time.Duration {
	return min(c.TimeStepSurface, c.TimeStepTerminal, c.TimeStepAirborne)
}

// regimeStep returns the integration step for the given regime.
func (c *Config) regimeStep(r nav.Regime) time.Duration {
	switch r {
	case nav.RegimeSurface:
		return c.TimeStepSurface
	case nav.RegimeTerminal:
		return c.TimeStepTerminal
	default:
		return c.TimeStepAirborne
	}
}

// Validate records any problems with the configuration in e.
func (c *Config) Validate(e *util.ErrorLogger) {
	e.Push("config")
	defer e.Pop()

	if c.End.Before(c.Start) {
		e.ErrorString("end %s is before start %s", c.End, c.Start)
	}
	for _, s := range []struct {
		name string
		d    time.Duration
	}{
		{"time_step_surface", c.TimeStepSurface},
		{"time_step_terminal", c.TimeStepTerminal},
		{"time_step_airborne", c.TimeStepAirborne},
		{"airborne_sample_period", c.AirborneSamplePeriod},
	} {
		if s.d <= 0 {
			e.ErrorString("%s must be positive", s.name)
		}
	}
	if tick := c.Tick(); tick > 0 {
		for _, d := range []time.Duration{c.TimeStepSurface, c.TimeStepTerminal, c.TimeStepAirborne} {
			if d%tick != 0 {
				e.ErrorString("time step %s is not a multiple of the tick %s", d, tick)
			}
		}
	}
	if c.TRACONAltitude <= 0 {
		e.ErrorString("tracon_altitude must be positive")
	}
	if c.EnableCDNR {
		for _, d := range []CDNRDistances{c.CDNR.Surface, c.CDNR.Terminal, c.CDNR.Enroute} {
			if d.Separation <= 0 || d.Initiation < d.Separation {
				e.ErrorString("cdnr: initiation distance %.0f must be at least separation %.0f > 0",
					d.Initiation, d.Separation)
			}
		}
		if c.CDNR.DelaySteps <= 0 {
			e.ErrorString("cdnr: delay_steps must be positive")
		}
	}
	if c.EnableStrategicWeather && c.StrategicWeatherPeriod <= 0 {
		e.ErrorString("strategic_weather_period must be positive")
	}
	if c.CruiseTASPerturbation < 0 || c.CruiseTASPerturbation >= 1 {
		e.ErrorString("cruise_tas_perturbation %f must be in [0,1)", c.CruiseTASPerturbation)
	}
	if c.Workers < 0 {
		e.ErrorString("workers must not be negative")
	}
	c.ClearanceDelays.validate(e)
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("start", c.Start),
		slog.Time("end", c.End),
		slog.Group("steps",
			slog.Duration("surface", c.TimeStepSurface),
			slog.Duration("terminal", c.TimeStepTerminal),
			slog.Duration("airborne", c.TimeStepAirborne),
			slog.Duration("airborne_sample", c.AirborneSamplePeriod)),
		slog.Float64("tracon_altitude", c.TRACONAltitude),
		slog.Bool("cdnr", c.EnableCDNR),
		slog.Bool("strategic_weather", c.EnableStrategicWeather),
		slog.Bool("tactical_weather", c.EnableTacticalWeather),
		slog.Int64("seed", c.Seed),
		slog.Int("workers", c.Workers))
}
