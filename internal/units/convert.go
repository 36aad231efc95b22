package units

import "strings"

// Display unit names accepted by the converters. The API always reports metric values.
const (
	Celsius    = 'C'
	Fahrenheit = 'F'

	SpeedMS    = "m/s"
	SpeedKMH   = "km/h"
	SpeedMPH   = "mph"
	SpeedKnots = "knots"

	PressureHPa  = "hpa"
	PressureInHg = "inhg"

	VisibilityKM    = "km"
	VisibilityMiles = "miles"
)

const hPaPerInHg = 33.863886666667

// Temperature converts a Celsius value to the requested unit. Anything other than
// 'C' or 'F' (either case) is treated as 'C'. The unit actually used is returned.
func Temperature(celsius float64, unit byte) (float64, byte) {
	switch unit {
	case 'F', 'f':
		return celsius*9.0/5.0 + 32.0, Fahrenheit
	default:
		return celsius, Celsius
	}
}

// Visibility converts kilometres to miles when asked to, otherwise passes through.
func Visibility(km float64, unit string) float64 {
	if strings.EqualFold(unit, VisibilityMiles) {
		return km / 1.609
	}
	return km
}

// WindSpeed converts m/s into the requested unit. Unknown units pass through as m/s.
func WindSpeed(ms float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case SpeedKMH:
		return ms * 3.6
	case SpeedMPH:
		return ms * 2.237
	case SpeedKnots:
		return ms * 1.944
	default:
		return ms
	}
}

// SpeedUnitLabel returns the label for the unit WindSpeed actually produces.
func SpeedUnitLabel(unit string) string {
	switch strings.ToLower(unit) {
	case SpeedKMH, SpeedMPH, SpeedKnots:
		return strings.ToLower(unit)
	default:
		return SpeedMS
	}
}

// Pressure converts hPa to inHg when asked to, otherwise passes through.
func Pressure(hPa float64, unit string) float64 {
	if strings.EqualFold(unit, PressureInHg) {
		return hPa / hPaPerInHg
	}
	return hPa
}

// PressureUnitLabel returns the display label for the unit Pressure produces.
func PressureUnitLabel(unit string) string {
	if strings.EqualFold(unit, PressureInHg) {
		return "inHg"
	}
	return "hPa"
}

// VisibilityUnitLabel returns the display label for the unit Visibility produces.
func VisibilityUnitLabel(unit string) string {
	if strings.EqualFold(unit, VisibilityMiles) {
		return VisibilityMiles
	}
	return VisibilityKM
}
