// sim/config_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"
	"time"

	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/util"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableCDNR = true
	var e util.ErrorLogger
	cfg.Validate(&e)
	if e.HaveErrors() {
		t.Errorf("default config: %s", e.String())
	}
	if cfg.Tick() != time.Second {
		t.Errorf("tick %s, want 1s", cfg.Tick())
	}
}

func TestConfigValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(*Config)
	}{
		{"end before start", func(c *Config) { c.End = c.Start.Add(-time.Hour) }},
		{"zero step", func(c *Config) { c.TimeStepTerminal = 0 }},
		{"negative sample period", func(c *Config) { c.AirborneSamplePeriod = -time.Second }},
		{"non-multiple step", func(c *Config) {
			c.TimeStepSurface = 2 * time.Second
			c.TimeStepTerminal = 2 * time.Second
			c.TimeStepAirborne = 5 * time.Second
		}},
		{"tracon altitude", func(c *Config) { c.TRACONAltitude = 0 }},
		{"cdnr separation", func(c *Config) {
			c.EnableCDNR = true
			c.CDNR.Terminal.Separation = 0
		}},
		{"cdnr initiation inside separation", func(c *Config) {
			c.EnableCDNR = true
			c.CDNR.Enroute.Initiation = c.CDNR.Enroute.Separation / 2
		}},
		{"cdnr delay", func(c *Config) {
			c.EnableCDNR = true
			c.CDNR.DelaySteps = 0
		}},
		{"strategic period", func(c *Config) {
			c.EnableStrategicWeather = true
			c.StrategicWeatherPeriod = 0
		}},
		{"perturbation", func(c *Config) { c.CruiseTASPerturbation = 1 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(&cfg)
			var e util.ErrorLogger
			cfg.Validate(&e)
			if !e.HaveErrors() {
				t.Errorf("expected a validation error")
			}
		})
	}
}

func TestConfigRegimeStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeStepSurface = 2 * time.Second
	cfg.TimeStepTerminal = 4 * time.Second
	cfg.TimeStepAirborne = 20 * time.Second

	if cfg.Tick() != 2*time.Second {
		t.Errorf("tick %s, want 2s", cfg.Tick())
	}
	for _, test := range []struct {
		r    nav.Regime
		want time.Duration
	}{
		{nav.RegimeSurface, 2 * time.Second},
		{nav.RegimeTerminal, 4 * time.Second},
		{nav.RegimeAirborne, 20 * time.Second},
	} {
		if got := cfg.regimeStep(test.r); got != test.want {
			t.Errorf("regime %v: step %s, want %s", test.r, got, test.want)
		}
	}
	if d := cfg.CDNR.distances(nav.RegimeAirborne); d != cfg.CDNR.Enroute {
		t.Errorf("airborne distances %+v, want %+v", d, cfg.CDNR.Enroute)
	}
}
