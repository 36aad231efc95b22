package models

import "time"

// ForecastDays is the number of days after today included in a report.
const ForecastDays = 3

// Units holds the display units a snapshot is converted into.
type Units struct {
	Temperature byte   // 'C' or 'F'
	Speed       string // "m/s", "km/h", "mph", "knots"
	Pressure    string // "hpa", "inhg"
	Visibility  string // "km", "miles"
}

// DataPoint is the normalized current-conditions snapshot. Physical quantities are
// already in display units; the API's metric values are not kept.
type DataPoint struct {
	Valid bool

	TimeRecorded     time.Time
	TimeRecordedText string // HH:MM
	TimeZone         string

	WeatherCode   int
	WeatherSymbol string
	ConditionText string

	Temperature         float64
	TemperatureApparent float64
	TemperatureMin      float64
	TemperatureMax      float64
	TemperatureUnit     byte
	DewPoint            float64

	Visibility     float64
	VisibilityUnit string

	WindSpeed     float64
	WindGust      float64
	WindDirection int
	WindBearing   string
	WindUnit      string

	PrecipitationType        int
	PrecipitationTypeText    string
	PrecipitationProbability float64
	PrecipitationIntensity   float64

	PressureSeaLevel float64
	PressureUnit     string
	Humidity         float64

	SunriseTime time.Time
	SunsetTime  time.Time
	SunriseText string
	SunsetText  string
	IsDay       bool
}

// DailyForecast is one day of the short forecast.
type DailyForecast struct {
	Symbol         string
	TemperatureMin float64
	TemperatureMax float64
	WeekDay        string
}

// HistoryRow is one record in the history table.
type HistoryRow struct {
	ID                int64
	Timestamp         int64
	Summary           string
	Icon              string
	Temperature       float64
	FeelsLike         float64
	DewPoint          float64
	WindBearing       int
	WindSpeed         float64
	WindGust          float64
	Humidity          float64
	Visibility        float64
	Pressure          float64
	PrecipProbability float64
	PrecipIntensity   float64
	PrecipType        string
	UVIndex           int
	Sunrise           int64
	Sunset            int64
}

// HistoryRowFromDataPoint maps a snapshot onto the history schema.
// UV index is not requested from the API and is always recorded as 0.
func HistoryRowFromDataPoint(dp DataPoint) HistoryRow {
	precipType := dp.PrecipitationTypeText
	if precipType == "" {
		precipType = "none"
	}
	return HistoryRow{
		Timestamp:         dp.TimeRecorded.Unix(),
		Summary:           dp.ConditionText,
		Icon:              dp.WeatherSymbol,
		Temperature:       dp.Temperature,
		FeelsLike:         dp.TemperatureApparent,
		DewPoint:          dp.DewPoint,
		WindBearing:       dp.WindDirection,
		WindSpeed:         dp.WindSpeed,
		WindGust:          dp.WindGust,
		Humidity:          dp.Humidity,
		Visibility:        dp.Visibility,
		Pressure:          dp.PressureSeaLevel,
		PrecipProbability: dp.PrecipitationProbability,
		PrecipIntensity:   dp.PrecipitationIntensity,
		PrecipType:        precipType,
		Sunrise:           unixOrZero(dp.SunriseTime),
		Sunset:            unixOrZero(dp.SunsetTime),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
