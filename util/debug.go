// util/debug.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"os"
	"strings"
)

// DebuggerIsRunning returns true if we are running under a debugger; the
// scheduler's stall watchdog is inhibited in that case. Currently only
// detects dlv.
func DebuggerIsRunning() bool {
	dlv, ok := os.LookupEnv("_")
	return ok && strings.HasSuffix(dlv, "/dlv")
}
