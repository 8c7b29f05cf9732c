// wx/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import "errors"

var (
	ErrInvalidGrid   = errors.New("invalid wind grid")
	ErrNoWindRecords = errors.New("no wind records in GRIB2 data")
)
