// sim/trajectory.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iancoleman/orderedmap"

	"github.com/mmp/trajgen/math"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/util"
)

// Sample is one recorded state of an aircraft or ground vehicle.
type Sample struct {
	Time     time.Time
	Position math.Point2LL
	Altitude float64 // ft MSL
	ROCD     float64 // ft/min
	TAS, GS  float64 // knots
	Course   float64 // degrees true
	FPA      float64 // degrees
	// Phase is the flight phase of an aircraft or the status of a
	// ground vehicle.
	Phase  string
	Sector int
	FuelKg float64
}

func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("time", s.Time),
		slog.String("position", s.Position.DDString()),
		slog.Float64("altitude", s.Altitude),
		slog.Float64("tas", s.TAS),
		slog.Float64("gs", s.GS),
		slog.Float64("course", s.Course),
		slog.String("phase", s.Phase),
		slog.Int("sector", s.Sector))
}

func makeAircraftSample(st *nav.AircraftState, t time.Time, sector int) Sample {
	return Sample{
		Time:     t,
		Position: st.Position,
		Altitude: st.Altitude,
		ROCD:     st.ROCD,
		TAS:      st.TAS,
		GS:       st.GS,
		Course:   math.CourseToHeading(st.Course),
		FPA:      math.Degrees(st.FPA),
		Phase:    st.Phase.String(),
		Sector:   sector,
		FuelKg:   st.FuelBurnedKg,
	}
}

// TaggedSample is a Sample along with the ID of the aircraft or vehicle
// it belongs to.
type TaggedSample struct {
	ID string
	Sample
}

// TrajectoryStore holds the append-only sample sequences for every
// aircraft and ground vehicle in a run.
type TrajectoryStore struct {
	RunID uuid.UUID

	mu      sync.Mutex
	samples map[string][]Sample
	ids     []string
}

func NewTrajectoryStore() *TrajectoryStore {
	return &TrajectoryStore{
		RunID:   uuid.New(),
		samples: make(map[string][]Sample),
	}
}

// Add appends a sample to the trajectory with the given ID.
// Timestamps must be nondecreasing per ID.
func (ts *TrajectoryStore) Add(id string, s Sample) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, ok := ts.samples[id]; !ok {
		ts.ids = append(ts.ids, id)
	}
	ts.samples[id] = append(ts.samples[id], s)
}

// Get returns a copy of the trajectory with the given ID.
func (ts *TrajectoryStore) Get(id string) []Sample {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return slices.Clone(ts.samples[id])
}

// Last returns the most recent sample of the trajectory with the given
// ID.
func (ts *TrajectoryStore) Last(id string) (Sample, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if s := ts.samples[id]; len(s) > 0 {
		return s[len(s)-1], true
	}
	return Sample{}, false
}

// IDs returns the trajectory IDs in the order they were first added.
func (ts *TrajectoryStore) IDs() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return slices.Clone(ts.ids)
}

func (ts *TrajectoryStore) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	n := 0
	for _, s := range ts.samples {
		n += len(s)
	}
	return n
}

// Reset discards all samples and assigns a new run ID.
func (ts *TrajectoryStore) Reset() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.RunID = uuid.New()
	clear(ts.samples)
	ts.ids = nil
}

func (ts *TrajectoryStore) LogValue() slog.Value {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return slog.GroupValue(
		slog.String("run_id", ts.RunID.String()),
		slog.Int("trajectories", len(ts.ids)))
}

// storedTrajectory is the on-disk form of one trajectory. Sample times
// are stored as delta-encoded milliseconds since Start.
type storedTrajectory struct {
	ID      string
	Start   time.Time
	Times   []int64
	Samples []Sample
}

type storedTrajectories struct {
	RunID        string
	Trajectories []storedTrajectory
}

func (ts *TrajectoryStore) stored() storedTrajectories {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	st := storedTrajectories{RunID: ts.RunID.String()}
	for _, id := range ts.ids {
		samples := ts.samples[id]
		tr := storedTrajectory{ID: id, Start: samples[0].Time}
		tr.Times = make([]int64, len(samples))
		tr.Samples = make([]Sample, len(samples))
		for i, s := range samples {
			tr.Times[i] = s.Time.Sub(tr.Start).Milliseconds()
			tr.Samples[i] = s
			tr.Samples[i].Time = time.Time{}
		}
		tr.Times = util.DeltaEncode(tr.Times)
		st.Trajectories = append(st.Trajectories, tr)
	}
	return st
}

func (ts *TrajectoryStore) restore(st storedTrajectories) error {
	id, err := uuid.Parse(st.RunID)
	if err != nil {
		return fmt.Errorf("run ID: %w", err)
	}

	samples := make(map[string][]Sample)
	var ids []string
	for _, tr := range st.Trajectories {
		if len(tr.Times) != len(tr.Samples) {
			return fmt.Errorf("%s: %d times for %d samples: %w", tr.ID, len(tr.Times), len(tr.Samples),
				ErrCorruptTrajectoryLog)
		}
		times := util.DeltaDecode(tr.Times)
		s := slices.Clone(tr.Samples)
		for i := range s {
			s[i].Time = tr.Start.Add(time.Duration(times[i]) * time.Millisecond)
		}
		samples[tr.ID] = s
		ids = append(ids, tr.ID)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.RunID, ts.samples, ts.ids = id, samples, ids
	return nil
}

// Save writes the store as zstd-compressed msgpack.
func (ts *TrajectoryStore) Save(w io.Writer) error {
	return util.EncodeObject(w, ts.stored())
}

// Load replaces the store's contents with trajectories written by Save.
func (ts *TrajectoryStore) Load(r io.Reader) error {
	var st storedTrajectories
	if err := util.DecodeObject(r, &st); err != nil {
		return err
	}
	return ts.restore(st)
}

// WriteJSON writes the store as JSON with a fixed key order so that
// output from identical runs is byte-identical apart from the run ID.
func (ts *TrajectoryStore) WriteJSON(w io.Writer) error {
	root := orderedmap.New()
	root.Set("run_id", ts.RunID.String())

	var trajectories []*orderedmap.OrderedMap
	for _, id := range ts.IDs() {
		var samples []*orderedmap.OrderedMap
		for _, s := range ts.Get(id) {
			m := orderedmap.New()
			m.Set("time", s.Time.UTC().Format(time.RFC3339Nano))
			m.Set("latitude", s.Position.Latitude())
			m.Set("longitude", s.Position.Longitude())
			m.Set("altitude", s.Altitude)
			m.Set("rocd", s.ROCD)
			m.Set("tas", s.TAS)
			m.Set("gs", s.GS)
			m.Set("course", s.Course)
			m.Set("fpa", s.FPA)
			m.Set("phase", s.Phase)
			m.Set("sector", s.Sector)
			m.Set("fuel_kg", s.FuelKg)
			samples = append(samples, m)
		}
		t := orderedmap.New()
		t.Set("id", id)
		t.Set("samples", samples)
		trajectories = append(trajectories, t)
	}
	root.Set("trajectories", trajectories)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}
