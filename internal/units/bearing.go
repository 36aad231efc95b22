package units

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// CompassLabel maps a wind bearing in degrees to a 16-point compass label.
// Bearings outside [0, 360] are treated as 0. Midpoints round up, so 11.25 is NNE.
func CompassLabel(degrees float64) string {
	if degrees < 0 || degrees > 360 {
		degrees = 0
	}
	idx := int(degrees/22.5+0.5) % len(compassPoints)
	return compassPoints[idx]
}
