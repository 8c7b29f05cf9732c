// log/race.go
// Copyright(c) 2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build race

package log

// RaceEnabled reports whether the binary was built with -race; long
// propagation tests shorten their horizon when it is set.
const RaceEnabled = true
