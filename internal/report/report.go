// Package report renders a DataPoint as the line-oriented text block the desktop
// widget consumes, one value per line in a fixed order.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lox/climafetch/internal/models"
)

var ErrInvalidDataPoint = errors.New("report: data point is not valid")

type Reporter struct {
	Out    io.Writer
	Silent bool
}

// Write emits the report for dp. Nothing is written for an invalid data point or
// when the reporter is silent.
func (r Reporter) Write(dp models.DataPoint, daily [models.ForecastDays]models.DailyForecast) error {
	if !dp.Valid {
		return ErrInvalidDataPoint
	}
	if r.Silent || r.Out == nil {
		return nil
	}

	w := bufio.NewWriter(r.Out)
	for _, line := range Lines(dp, daily) {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Lines returns the report body without trailing newlines.
func Lines(dp models.DataPoint, daily [models.ForecastDays]models.DailyForecast) []string {
	unit := string(dp.TemperatureUnit)
	lines := make([]string, 0, 14+4*len(daily))

	lines = append(lines,
		dp.WeatherSymbol,
		fmt.Sprintf("%.1f°%s", dp.Temperature, unit),
	)
	for _, d := range daily {
		lines = append(lines,
			d.Symbol,
			fmt.Sprintf("%.0f°", d.TemperatureMin),
			fmt.Sprintf("%.0f°", d.TemperatureMax),
			d.WeekDay,
		)
	}

	lines = append(lines,
		fmt.Sprintf("%.1f°%s", dp.TemperatureApparent, unit),
		fmt.Sprintf("Dew: %.1f°%s", dp.DewPoint, unit),
		fmt.Sprintf("Humidity: %.0f%%", dp.Humidity),
		pressure(dp),
		fmt.Sprintf("%.1f %s", dp.WindSpeed, dp.WindUnit),
		strings.TrimSpace(fmt.Sprintf("%.0f%% %s", dp.PrecipitationProbability, dp.PrecipitationTypeText)),
		fmt.Sprintf("%.1f %s", dp.Visibility, dp.VisibilityUnit),
		dp.SunriseText,
		dp.SunsetText,
		dp.WindBearing,
		dp.TimeRecordedText,
		dp.ConditionText,
		dp.TimeZone,
		fmt.Sprintf("%.0f°%s / %.0f°%s", dp.TemperatureMin, unit, dp.TemperatureMax, unit),
	)
	return lines
}

func pressure(dp models.DataPoint) string {
	if dp.PressureUnit == "inHg" {
		return fmt.Sprintf("%.2f %s", dp.PressureSeaLevel, dp.PressureUnit)
	}
	return fmt.Sprintf("%.1f %s", dp.PressureSeaLevel, dp.PressureUnit)
}
