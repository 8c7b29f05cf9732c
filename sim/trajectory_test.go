// sim/trajectory_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mmp/trajgen/math"
)

func makeTestStore() *TrajectoryStore {
	ts := NewTrajectoryStore()
	for i := range 5 {
		t := testStart.Add(time.Duration(i*1500) * time.Millisecond)
		ts.Add("TST101", Sample{Time: t, Position: math.LL(40+float64(i)*0.01, -75), Altitude: float64(i * 100),
			TAS: 150, GS: 145, Course: 90, Phase: "CLIMBOUT", Sector: 2, FuelKg: float64(i)})
		ts.Add("TUG1", Sample{Time: t, Position: math.LL(40, -75+float64(i)*0.001), GS: 10, Phase: "DRIVING", Sector: -1})
	}
	return ts
}

func TestTrajectoryStoreSaveLoad(t *testing.T) {
	ts := makeTestStore()

	var buf bytes.Buffer
	if err := ts.Save(&buf); err != nil {
		t.Fatal(err)
	}
	back := NewTrajectoryStore()
	if err := back.Load(&buf); err != nil {
		t.Fatal(err)
	}

	if back.RunID != ts.RunID {
		t.Errorf("run ID %s, want %s", back.RunID, ts.RunID)
	}
	if !reflect.DeepEqual(back.IDs(), ts.IDs()) {
		t.Errorf("IDs %v, want %v", back.IDs(), ts.IDs())
	}
	for _, id := range ts.IDs() {
		got, want := back.Get(id), ts.Get(id)
		if len(got) != len(want) {
			t.Fatalf("%s: %d samples, want %d", id, len(got), len(want))
		}
		for i := range want {
			if !got[i].Time.Equal(want[i].Time) {
				t.Errorf("%s sample %d: time %s, want %s", id, i, got[i].Time, want[i].Time)
			}
			got[i].Time, want[i].Time = time.Time{}, time.Time{}
			if got[i] != want[i] {
				t.Errorf("%s sample %d: %+v, want %+v", id, i, got[i], want[i])
			}
		}
	}
}

func TestTrajectoryStoreLast(t *testing.T) {
	ts := makeTestStore()
	s, ok := ts.Last("TST101")
	if !ok || s.FuelKg != 4 {
		t.Errorf("last sample %+v ok %v, want fuel 4", s, ok)
	}
	if _, ok := ts.Last("NONE"); ok {
		t.Errorf("last sample for unknown ID")
	}
	if ts.Len() != 10 {
		t.Errorf("%d samples, want 10", ts.Len())
	}
	ts.Reset()
	if ts.Len() != 0 || len(ts.IDs()) != 0 {
		t.Errorf("samples remain after reset")
	}
}

func TestTrajectoryWriteJSON(t *testing.T) {
	ts := makeTestStore()

	var buf bytes.Buffer
	if err := ts.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	// Keys appear in a fixed order.
	prev := -1
	for _, key := range []string{`"run_id"`, `"trajectories"`, `"id"`, `"samples"`, `"time"`, `"latitude"`,
		`"longitude"`, `"altitude"`, `"rocd"`, `"tas"`, `"gs"`, `"course"`, `"fpa"`, `"phase"`, `"sector"`, `"fuel_kg"`} {
		i := strings.Index(out, key)
		if i <= prev {
			t.Errorf("key %s at %d, expected after %d", key, i, prev)
		}
		prev = i
	}

	var decoded struct {
		RunID        string `json:"run_id"`
		Trajectories []struct {
			ID      string           `json:"id"`
			Samples []map[string]any `json:"samples"`
		} `json:"trajectories"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RunID != ts.RunID.String() || len(decoded.Trajectories) != 2 {
		t.Fatalf("decoded %+v", decoded)
	}
	if tr := decoded.Trajectories[1]; tr.ID != "TUG1" || len(tr.Samples) != 5 || tr.Samples[0]["phase"] != "DRIVING" {
		t.Errorf("second trajectory %+v", tr)
	}

	var again bytes.Buffer
	if err := ts.WriteJSON(&again); err != nil {
		t.Fatal(err)
	}
	if again.String() != out {
		t.Errorf("output differs between writes")
	}
}
