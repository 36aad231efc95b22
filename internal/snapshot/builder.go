// Package snapshot turns the raw current and daily timelines documents into a
// DataPoint and the short daily forecast, converting every quantity to display units.
package snapshot

import (
	"log/slog"
	"time"

	"github.com/lox/climafetch/internal/climacell"
	"github.com/lox/climafetch/internal/condition"
	"github.com/lox/climafetch/internal/models"
	"github.com/lox/climafetch/internal/units"
)

const clockFormat = "15:04"

// weekDays is indexed by ISO weekday - 1; the last entry marks an unknown day.
var weekDays = [8]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun", "_invalid"}

type Builder struct {
	Units    models.Units
	Location *time.Location
	TimeZone string
	Now      func() time.Time
}

// New returns a builder formatting clock times in loc. tzName is reported as-is.
func New(u models.Units, loc *time.Location, tzName string) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{Units: u, Location: loc, TimeZone: tzName, Now: time.Now}
}

// Build normalizes one pair of documents. A current document without a weather code
// yields an invalid DataPoint and no forecast. A code of the wrong type reads as 0, and
// every other missing value defaults to zero.
func (b *Builder) Build(current, forecast *climacell.Document) (models.DataPoint, [models.ForecastDays]models.DailyForecast) {
	var dp models.DataPoint
	var daily [models.ForecastDays]models.DailyForecast

	cur, ok := current.Interval(0)
	if !ok || !cur.WeatherCode.Present {
		slog.Debug("snapshot: current document has no weatherCode, leaving data point invalid")
		return dp, daily
	}
	today, _ := forecast.Interval(0)

	now := b.now().In(b.Location)
	dp.TimeRecorded = now
	dp.TimeRecordedText = now.Format(clockFormat)
	dp.TimeZone = b.TimeZone
	dp.WeatherCode = cur.WeatherCode.IntOr(0)

	_, dp.TemperatureUnit = units.Temperature(0, b.Units.Temperature)
	dp.Temperature = b.temperature(cur.Temperature)
	dp.TemperatureApparent = b.temperature(cur.TemperatureApparent)
	dp.DewPoint = b.temperature(cur.DewPoint)
	dp.TemperatureMin = b.temperature(today.TemperatureMin)
	dp.TemperatureMax = b.temperature(today.TemperatureMax)

	dp.Humidity = cur.Humidity.Or(0)
	dp.PrecipitationProbability = cur.PrecipitationProbability.Or(0)
	dp.PrecipitationIntensity = cur.PrecipitationIntensity.Or(0)

	dp.Visibility = units.Visibility(cur.Visibility.Or(0), b.Units.Visibility)
	dp.VisibilityUnit = units.VisibilityUnitLabel(b.Units.Visibility)
	dp.PressureSeaLevel = units.Pressure(cur.PressureSeaLevel.Or(0), b.Units.Pressure)
	dp.PressureUnit = units.PressureUnitLabel(b.Units.Pressure)

	dp.WindSpeed = units.WindSpeed(cur.WindSpeed.Or(0), b.Units.Speed)
	dp.WindGust = units.WindSpeed(cur.WindGust.Or(0), b.Units.Speed)
	dp.WindDirection = cur.WindDirection.IntOr(0)
	dp.WindBearing = units.CompassLabel(float64(dp.WindDirection))
	dp.WindUnit = units.SpeedUnitLabel(b.Units.Speed)

	dp.SunriseTime = parseTime(today.SunriseTime)
	dp.SunsetTime = parseTime(today.SunsetTime)
	dp.SunriseText = b.clock(dp.SunriseTime)
	dp.SunsetText = b.clock(dp.SunsetTime)
	dp.IsDay = dp.SunriseTime.Before(now) && now.Before(dp.SunsetTime)

	dp.PrecipitationType = cur.PrecipitationType.IntOr(0)
	dp.PrecipitationTypeText = condition.PrecipitationLabel(dp.PrecipitationType)
	code := condition.Code(dp.WeatherCode)
	if !condition.Known(code) {
		slog.Warn("snapshot: unknown weather code", "code", dp.WeatherCode)
	}
	dp.ConditionText = condition.Label(code)
	dp.WeatherSymbol = string(condition.Glyph(code, dp.IsDay))

	for i := range daily {
		daily[i] = b.day(forecast, i+1)
	}

	dp.Valid = true
	slog.Debug("snapshot: built",
		"condition", dp.ConditionText,
		"code", dp.WeatherCode,
		"temperature", dp.Temperature,
		"unit", string(dp.TemperatureUnit),
		"humidity", dp.Humidity,
		"wind", dp.WindSpeed,
		"bearing", dp.WindBearing,
		"pressure", dp.PressureSeaLevel,
		"is_day", dp.IsDay,
		"sunrise", dp.SunriseText,
		"sunset", dp.SunsetText,
		"timezone", dp.TimeZone,
	)
	return dp, daily
}

func (b *Builder) day(forecast *climacell.Document, offset int) models.DailyForecast {
	v, _ := forecast.Interval(offset)
	code := condition.Code(v.WeatherCode.IntOr(int(condition.Clear)))
	return models.DailyForecast{
		Symbol:         string(condition.Glyph(code, true)),
		TemperatureMin: b.temperature(v.TemperatureMin),
		TemperatureMax: b.temperature(v.TemperatureMax),
		WeekDay:        b.weekDay(v.SunriseTime),
	}
}

func (b *Builder) temperature(f climacell.Float) float64 {
	if !f.Valid {
		return 0
	}
	v, _ := units.Temperature(f.Value, b.Units.Temperature)
	return v
}

func (b *Builder) clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(b.Location).Format(clockFormat)
}

func (b *Builder) weekDay(s climacell.Text) string {
	t := parseTime(s)
	if t.IsZero() {
		return weekDays[7]
	}
	return weekDays[isoWeekday(t.In(b.Location))-1]
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// isoWeekday returns 1 for Monday through 7 for Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func parseTime(s climacell.Text) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.Value)
	if err != nil {
		return time.Time{}
	}
	return t
}
