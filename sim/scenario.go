// sim/scenario.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/util"
	"github.com/mmp/trajgen/wx"
)

// Scenario is everything needed to set up a run: the configuration,
// performance data, airports, the flights and ground vehicles, and the
// environment they operate in.
type Scenario struct {
	Config Config `json:"config" yaml:"config"`
	// Duration, if set, overrides Config.End relative to Config.Start.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	Performance []av.PerformanceTable `json:"performance" yaml:"performance"`
	Airports    []av.Airport          `json:"airports,omitempty" yaml:"airports,omitempty"`
	Flights     []Flight              `json:"flights" yaml:"flights"`
	Vehicles    []VehicleSpec         `json:"vehicles,omitempty" yaml:"vehicles,omitempty"`

	Sectors    []math.Sector        `json:"sectors,omitempty" yaml:"sectors,omitempty"`
	SectorGrid *math.SectorGridSpec `json:"sector_grid,omitempty" yaml:"sector_grid,omitempty"`
	Wind       WindConfig           `json:"wind,omitempty" yaml:"wind,omitempty"`
	Weather    *Weather             `json:"weather,omitempty" yaml:"weather,omitempty"`
}

// WindSamples are scattered wind samples valid at a single time.
type WindSamples struct {
	Time    time.Time       `json:"time" yaml:"time"`
	Samples []wx.WindSample `json:"samples" yaml:"samples"`
}

// GRIBFile names a GRIB2 file holding winds valid at Time.
type GRIBFile struct {
	File string    `json:"file" yaml:"file"`
	Time time.Time `json:"time" yaml:"time"`
}

// WindConfig selects the wind field: a gridded field built from samples
// and GRIB2 files if Grid is given, otherwise a uniform wind, or calm if
// Speed is zero.
type WindConfig struct {
	Direction float64 `json:"direction,omitempty" yaml:"direction,omitempty"` // degrees true, from
	Speed     float64 `json:"speed,omitempty" yaml:"speed,omitempty"`         // knots

	Grid    *wx.GridSpec  `json:"grid,omitempty" yaml:"grid,omitempty"`
	Samples []WindSamples `json:"samples,omitempty" yaml:"samples,omitempty"`
	GRIB    []GRIBFile    `json:"grib,omitempty" yaml:"grib,omitempty"`
	// Cache, if set, names a file where the gridded field is stored after
	// it is built; it is reused while it is newer than all GRIB2 files.
	Cache string `json:"cache,omitempty" yaml:"cache,omitempty"`
}

func (w *WindConfig) validate(e *util.ErrorLogger) {
	e.Push("wind")
	defer e.Pop()

	if w.Speed < 0 {
		e.ErrorString("negative wind speed %f", w.Speed)
	}
	if w.Grid != nil {
		if err := w.Grid.Validate(); err != nil {
			e.Error(err)
		}
		if len(w.Samples) == 0 && len(w.GRIB) == 0 {
			e.ErrorString("grid given without samples or GRIB2 files")
		}
	} else if len(w.Samples) > 0 || len(w.GRIB) > 0 {
		e.ErrorString("wind samples require a grid")
	}
}

func (w *WindConfig) build(lg *log.Logger) (wx.WindField, error) {
	if w.Grid == nil {
		if w.Speed > 0 {
			return wx.MakeUniformWind(w.Direction, w.Speed), nil
		}
		return wx.ZeroWind{}, nil
	}

	if g, ok := w.loadCache(lg); ok {
		return g, nil
	}

	var g *wx.GridWind
	var err error
	for _, s := range w.Samples {
		if g, err = wx.GridFromSamples(*w.Grid, s.Time, s.Samples, g); err != nil {
			return nil, err
		}
	}
	for _, gf := range w.GRIB {
		if g, err = loadGRIBFile(gf, *w.Grid, g, lg); err != nil {
			return nil, err
		}
	}
	if w.Cache != "" {
		if err := util.StoreObject(w.Cache, g); err != nil {
			lg.Warn("unable to cache wind grid", "file", w.Cache, "error", err)
		}
	}
	return g, nil
}

// loadCache returns the cached wind grid if there is one that was built
// for the same grid and is newer than all of the GRIB2 files.
func (w *WindConfig) loadCache(lg *log.Logger) (*wx.GridWind, bool) {
	if w.Cache == "" {
		return nil, false
	}
	var g wx.GridWind
	mtime, err := util.RetrieveObject(w.Cache, &g)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			lg.Warn("unable to read wind cache", "file", w.Cache, "error", err)
		}
		return nil, false
	}
	for _, gf := range w.GRIB {
		if fi, err := os.Stat(gf.File); err != nil || fi.ModTime().After(mtime) {
			return nil, false
		}
	}
	if g.Spec != *w.Grid {
		return nil, false
	}
	if err := g.Init(); err != nil {
		lg.Warn("invalid wind cache", "file", w.Cache, "error", err)
		return nil, false
	}
	lg.Info("loaded cached wind grid", "file", w.Cache, "slices", len(g.Slices))
	return &g, true
}

func loadGRIBFile(gf GRIBFile, spec wx.GridSpec, g *wx.GridWind, lg *log.Logger) (*wx.GridWind, error) {
	f, err := os.Open(gf.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err = wx.LoadGRIB2(f, spec, gf.Time, g, lg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gf.File, err)
	}
	return g, nil
}

// LoadScenario reads a YAML or JSON scenario file; the format is chosen
// by the file's extension.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc, err := ReadScenario(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ReadScenario reads a scenario in the format given by ext, which should
// be one of ".yaml", ".yml", or ".json". Fields that are not specified
// keep the values from DefaultConfig.
func ReadScenario(r io.Reader, ext string) (*Scenario, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(ext) {
	case ".json":
		var raw any
		if err := util.UnmarshalJSONBytes(b, &raw); err != nil {
			return nil, err
		}
		if dups := util.FindDuplicateJSONKeys(b); len(dups) > 0 {
			var s []string
			for _, d := range dups {
				s = append(s, d.Path+"."+d.Key)
			}
			return nil, fmt.Errorf("duplicate keys %s: %w", strings.Join(s, ", "), ErrInvalidScenario)
		}
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnknownScenarioType)
	}

	// JSON is decoded with the YAML decoder as well so that durations
	// may be given as strings like "30s" in either format.
	sc := &Scenario{Config: DefaultConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(sc); err != nil {
		return nil, err
	}
	if sc.Duration > 0 {
		sc.Config.End = sc.Config.Start.Add(sc.Duration)
	}
	return sc, nil
}

// Validate records all problems with the scenario in e.
func (sc *Scenario) Validate(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	sc.Config.Validate(e)
	sc.Wind.validate(e)

	if len(sc.Performance) == 0 && len(sc.Flights) > 0 {
		e.ErrorString("no aircraft performance data given")
	}

	airports := make(map[string]bool)
	for i, ap := range sc.Airports {
		e.Push(fmt.Sprintf("airports[%d]", i))
		if ap.ICAO == "" {
			e.ErrorString("missing ICAO code")
		} else if airports[ap.ICAO] {
			e.ErrorString("%s: duplicate airport", ap.ICAO)
		}
		airports[ap.ICAO] = true
		e.Pop()
	}

	callsigns := make(map[string]bool)
	for i := range sc.Flights {
		fl := &sc.Flights[i]
		e.Push(util.Select(fl.Callsign != "", fl.Callsign, fmt.Sprintf("flights[%d]", i)))

		if fl.Callsign == "" {
			e.ErrorString("missing callsign")
		} else if callsigns[fl.Callsign] {
			e.Error(ErrDuplicateCallsign)
		}
		callsigns[fl.Callsign] = true

		if len(fl.Route) < 2 {
			e.ErrorString("route must have at least two waypoints")
		}
		if fl.CruiseAltitude <= 0 {
			e.ErrorString("cruise altitude must be positive")
		}
		if fl.DepartureRunway != "" && !airports[fl.Origin] {
			e.ErrorString("departure runway %s given for unknown airport %s", fl.DepartureRunway, fl.Origin)
		}
		if fl.ArrivalRunway != "" && !airports[fl.Destination] {
			e.ErrorString("arrival runway %s given for unknown airport %s", fl.ArrivalRunway, fl.Destination)
		}
		if fl.Departure.Before(sc.Config.Start) {
			e.ErrorString("departure %s is before the start of the run", fl.Departure)
		}
		if inc := fl.Incident; inc != nil {
			if inc.Phase != av.PhaseUserIncident && !inc.Phase.IsHolding() {
				e.ErrorString("incident phase %s must be USER_INCIDENT or a holding phase", inc.Phase)
			}
			if inc.Duration <= 0 {
				e.ErrorString("incident duration must be positive")
			}
		}
		e.Pop()
	}

	ids := make(map[string]bool)
	for i, v := range sc.Vehicles {
		e.Push(util.Select(v.ID != "", v.ID, fmt.Sprintf("vehicles[%d]", i)))
		if v.ID == "" {
			e.ErrorString("missing ID")
		} else if ids[v.ID] || callsigns[v.ID] {
			e.Error(ErrDuplicateVehicle)
		}
		ids[v.ID] = true
		if v.Speed <= 0 {
			e.ErrorString("speed must be positive")
		}
		if len(v.DrivePlan) < 2 {
			e.Error(ErrVehiclePlanTooShort)
		}
		e.Pop()
	}

	if w := sc.Weather; w != nil {
		e.Push("weather")
		for _, p := range w.Polygons {
			if len(p.Vertices) < 3 {
				e.ErrorString("%s: polygon needs at least three vertices", p.Name)
			}
		}
		for _, aw := range w.Airways {
			for _, n := range []string{aw.From, aw.To} {
				if _, ok := w.Network[n]; !ok {
					e.ErrorString("airway %s-%s: %s: %v", aw.From, aw.To, n, ErrUnknownWaypoint)
				}
			}
		}
		e.Pop()
	}
}
