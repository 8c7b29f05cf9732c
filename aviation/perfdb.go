// aviation/perfdb.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Number of memoized climb/descent distance integrations.
const distanceCacheSize = 4096

type distanceKind int

const (
	climbDistance distanceKind = iota
	descentDistance
)

type distanceKey struct {
	kind     distanceKind
	typeIdx  int
	from, to float64
}

// PerformanceDB holds the performance tables for all aircraft types in a
// run; aircraft refer to their table by index.
type PerformanceDB struct {
	Tables []PerformanceTable

	byName    map[string]int
	distances *lru.Cache[distanceKey, float64]
}

// NewPerformanceDB validates the given tables and indexes them by name
// and synonym.
func NewPerformanceDB(tables []PerformanceTable) (*PerformanceDB, error) {
	cache, err := lru.New[distanceKey, float64](distanceCacheSize)
	if err != nil {
		return nil, err
	}

	db := &PerformanceDB{
		Tables:    tables,
		byName:    make(map[string]int),
		distances: cache,
	}

	add := func(name string, i int) error {
		name = strings.ToUpper(name)
		if j, ok := db.byName[name]; ok && j != i {
			return fmt.Errorf("%s: %w", name, ErrDuplicateAircraftType)
		}
		db.byName[name] = i
		return nil
	}

	for i := range db.Tables {
		t := &db.Tables[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if err := add(t.Name, i); err != nil {
			return nil, err
		}
		for _, syn := range t.Synonyms {
			if err := add(syn, i); err != nil {
				return nil, err
			}
		}
	}
	return db, nil
}

func (db *PerformanceDB) Len() int {
	if db == nil {
		return 0
	}
	return len(db.Tables)
}

// Table returns the table with the given index. An out-of-range index
// means the flight data and performance data are inconsistent.
func (db *PerformanceDB) Table(i int) (*PerformanceTable, error) {
	if i < 0 || i >= db.Len() {
		return nil, fmt.Errorf("type index %d of %d: %w", i, db.Len(), ErrUnknownAircraftType)
	}
	return &db.Tables[i], nil
}

// Lookup returns the index of the table for the given type name or
// synonym.
func (db *PerformanceDB) Lookup(name string) (int, error) {
	if db != nil {
		if i, ok := db.byName[strings.ToUpper(strings.TrimSpace(name))]; ok {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%q: %w", name, ErrUnknownAircraftType)
}

func (db *PerformanceDB) cached(key distanceKey, compute func() float64) float64 {
	if d, ok := db.distances.Get(key); ok {
		return d
	}
	d := compute()
	db.distances.Add(key, d)
	return d
}

// ClimbDistance is a memoized PerformanceTable.ClimbDistance.
func (db *PerformanceDB) ClimbDistance(typeIdx int, from, to float64) (float64, error) {
	t, err := db.Table(typeIdx)
	if err != nil {
		return 0, err
	}
	return db.cached(distanceKey{climbDistance, typeIdx, from, to},
		func() float64 { return t.ClimbDistance(from, to) }), nil
}

// DescentDistance is a memoized PerformanceTable.DescentDistance.
func (db *PerformanceDB) DescentDistance(typeIdx int, to, cruise float64) (float64, error) {
	t, err := db.Table(typeIdx)
	if err != nil {
		return 0, err
	}
	return db.cached(distanceKey{descentDistance, typeIdx, to, cruise},
		func() float64 { return t.DescentDistance(to, cruise) }), nil
}

// CruiseAltitudeFor is PerformanceTable.CruiseAltitudeFor using the
// memoized distance integrations.
func (db *PerformanceDB) CruiseAltitudeFor(typeIdx int, pathLength, origElev, destElev, requested float64) (CruiseProfile, error) {
	t, err := db.Table(typeIdx)
	if err != nil {
		return CruiseProfile{}, err
	}
	climb := func(from, to float64) float64 {
		return db.cached(distanceKey{climbDistance, typeIdx, from, to},
			func() float64 { return t.ClimbDistance(from, to) })
	}
	descent := func(to, cruise float64) float64 {
		return db.cached(distanceKey{descentDistance, typeIdx, to, cruise},
			func() float64 { return t.DescentDistance(to, cruise) })
	}
	return fitCruiseAltitude(t, pathLength, origElev, destElev, requested, climb, descent)
}
