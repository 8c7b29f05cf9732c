// wx/atmos.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"strconv"
	"strings"

	"github.com/mmp/trajgen/math"
)

// ISA troposphere constants.
const (
	seaLevelPressure = 1013.25 // mb
	seaLevelTempK    = 288.15
	lapseRate        = -0.0065 // K per meter
	pressureExponent = 5.25588
	metersToFeet     = 1 / feetToMeters
	feetToMeters     = 0.3048
	msToKnots        = 1.94384
)

// StandardPressure returns the ISA pressure in millibars at the given
// altitude. The troposphere model is used at all altitudes.
func StandardPressure(altFt float64) float64 {
	altm := altFt * feetToMeters
	return seaLevelPressure * math.Pow((seaLevelTempK+lapseRate*altm)/seaLevelTempK, pressureExponent)
}

// StandardAltitude returns the ISA altitude in feet at which the
// pressure is mb; it's the inverse of StandardPressure.
func StandardAltitude(mb float64) float64 {
	if mb <= 0 {
		return 0
	}
	ratio := math.Pow(mb/seaLevelPressure, 1/pressureExponent)
	return seaLevelTempK * (ratio - 1) / lapseRate * metersToFeet
}

// StandardTemperature returns the ISA temperature in Celsius.
func StandardTemperature(altFt float64) float64 {
	return seaLevelTempK + lapseRate*altFt*feetToMeters - 273.15
}

// ParsePressureLevel parses GRIB2 isobaric level descriptions like
// "500 mb" or "1013.2 mb", returning the pressure in millibars. ok is
// false for other level types.
func ParsePressureLevel(level string) (float64, bool) {
	s, found := strings.CutSuffix(strings.TrimSpace(level), " mb")
	if !found {
		return 0, false
	}
	mb, err := strconv.ParseFloat(s, 64)
	if err != nil || mb <= 0 {
		return 0, false
	}
	return mb, true
}
