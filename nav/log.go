// nav/log.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

// Available logging categories
const (
	NavLogState     = "state"
	NavLogPhase     = "phase"
	NavLogWaypoint  = "waypoint"
	NavLogHold      = "hold"
	NavLogRunway    = "runway"
	NavLogClearance = "clearance"
	NavLogRoute     = "route"
)

var navLogCategories = []string{NavLogState, NavLogPhase, NavLogWaypoint, NavLogHold, NavLogRunway,
	NavLogClearance, NavLogRoute}
