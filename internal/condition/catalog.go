// Package condition maps ClimaCell weather codes to labels and conkyweather font glyphs.
package condition

// Code is a ClimaCell weatherCode.
type Code int

// Clear stands in for forecast days that carry no code.
const Clear Code = 1000

const (
	undefinedLabel = "UNDEFINED"
	fallbackGlyph  = 'a'
)

var labels = map[Code]string{
	1000: "Clear",
	1001: "Cloudy",
	1100: "Mostly Clear",
	1101: "Partly Cloudy",
	1102: "Mostly Cloudy",
	2000: "Fog",
	2100: "Light Fog",
	3000: "Light Wind",
	3001: "Wind",
	3002: "Strong Wind",
	4000: "Drizzle",
	4001: "Rain",
	4200: "Light Rain",
	4201: "Heavy Rain",
	5000: "Snow",
	5001: "Flurries",
	5100: "Light Snow",
	5101: "Heavy Snow",
	6000: "Freezing Drizzle",
	6001: "Freezing Rain",
	6200: "Light Freezing Rain",
	6201: "Heavy Freezing Rain",
	7000: "Ice Pellets",
	7001: "Heavy Ice Pellets",
	7102: "Light Ice Pellets",
	8000: "Thunderstorm",
}

// glyphs holds the day glyph at index 0 and the night glyph at index 1.
var glyphs = map[Code]string{
	1000: "aA",
	1001: "ef",
	1100: "bB",
	1101: "cC",
	1102: "dD",
	2000: "00",
	2100: "77",
	3000: "99",
	3001: "99",
	3002: "23",
	4000: "xx",
	4001: "gG",
	4200: "gg",
	4201: "jj",
	5000: "oO",
	5001: "xx",
	5100: "oO",
	5101: "ww",
	6000: "xx",
	6001: "yy",
	6200: "ss",
	6201: "yy",
	7000: "uu",
	7001: "uu",
	7102: "uu",
	8000: "kK",
}

var precipitationLabels = [...]string{
	"",
	"(Rain)",
	"(Snow)",
	"(Freezing Rain)",
	"(Ice Pellets)",
}

// Label returns the human readable condition, or "UNDEFINED" for unknown codes.
func Label(code Code) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return undefinedLabel
}

// Glyph returns the icon font character for a code, picking the day or night variant.
func Glyph(code Code, day bool) byte {
	g, ok := glyphs[code]
	if !ok {
		return fallbackGlyph
	}
	if day {
		return g[0]
	}
	return g[1]
}

// PrecipitationLabel returns the label for a ClimaCell precipitationType (0-4).
func PrecipitationLabel(kind int) string {
	if kind < 0 || kind >= len(precipitationLabels) {
		kind = 0
	}
	return precipitationLabels[kind]
}

// Known reports whether the catalog has an entry for code.
func Known(code Code) bool {
	_, ok := labels[code]
	return ok
}
