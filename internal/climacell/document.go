package climacell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrUnusable is returned for responses without a non-empty "data" member, which is
// how the API reports errors and empty results.
var ErrUnusable = errors.New("climacell: document has no data")

// Float is a JSON number that may be absent, null or of the wrong type.
// Anything that is not a number decodes as an undefined value instead of failing.
// Present is set for any value other than null or an empty object or array, so a
// field sent with the wrong type can be told apart from a missing one.
type Float struct {
	Value   float64
	Valid   bool
	Present bool
}

func (f *Float) UnmarshalJSON(b []byte) error {
	*f = Float{}
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "", "null", "{}", "[]":
		return nil
	}
	f.Present = true
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// Or returns the value if defined, otherwise def.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// IntOr returns the value truncated to an int if defined, otherwise def.
func (f Float) IntOr(def int) int {
	if !f.Valid {
		return def
	}
	return int(f.Value)
}

// Text is a JSON string that may be absent, null or of the wrong type.
type Text struct {
	Value string
	Valid bool
}

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text{}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	*t = Text{Value: v, Valid: true}
	return nil
}

// Values holds the fields requested from the timelines endpoint. The current and the
// daily requests ask for different subsets; fields not requested stay undefined.
type Values struct {
	WeatherCode              Float `json:"weatherCode"`
	Temperature              Float `json:"temperature"`
	TemperatureApparent      Float `json:"temperatureApparent"`
	TemperatureMin           Float `json:"temperatureMin"`
	TemperatureMax           Float `json:"temperatureMax"`
	DewPoint                 Float `json:"dewPoint"`
	Humidity                 Float `json:"humidity"`
	Visibility               Float `json:"visibility"`
	WindSpeed                Float `json:"windSpeed"`
	WindGust                 Float `json:"windGust"`
	WindDirection            Float `json:"windDirection"`
	PressureSeaLevel         Float `json:"pressureSeaLevel"`
	PrecipitationType        Float `json:"precipitationType"`
	PrecipitationProbability Float `json:"precipitationProbability"`
	PrecipitationIntensity   Float `json:"precipitationIntensity"`
	SunriseTime              Text  `json:"sunriseTime"`
	SunsetTime               Text  `json:"sunsetTime"`
}

type Interval struct {
	StartTime string
	Values    Values
}

type Timeline struct {
	Timestep  string
	Intervals []Interval
}

// Document is one parsed timelines response. Raw keeps the body verbatim for the cache.
type Document struct {
	Raw       []byte
	Timelines []Timeline
}

// Parse validates a response body and decodes the parts the snapshot builder needs.
// Bodies without usable data return an error wrapping ErrUnusable.
func Parse(body []byte) (*Document, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse document: invalid json")
	}
	if !Usable(body) {
		if msg := APIMessage(body); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnusable, msg)
		}
		return nil, ErrUnusable
	}

	doc := &Document{Raw: body}
	if timelines := gjson.GetBytes(body, "data.timelines"); timelines.IsArray() {
		for _, tl := range timelines.Array() {
			doc.Timelines = append(doc.Timelines, parseTimeline(tl))
		}
	}
	return doc, nil
}

// parseTimeline walks one timeline leniently. An interval whose values are not an
// object keeps its slot with every field undefined.
func parseTimeline(r gjson.Result) Timeline {
	tl := Timeline{Timestep: r.Get("timestep").String()}
	intervals := r.Get("intervals")
	if !intervals.IsArray() {
		return tl
	}
	for _, iv := range intervals.Array() {
		interval := Interval{StartTime: iv.Get("startTime").String()}
		if values := iv.Get("values"); values.IsObject() {
			if err := json.Unmarshal([]byte(values.Raw), &interval.Values); err != nil {
				interval.Values = Values{}
			}
		}
		tl.Intervals = append(tl.Intervals, interval)
	}
	return tl
}

// Usable reports whether body carries a non-empty "data" object or array.
func Usable(body []byte) bool {
	data := gjson.GetBytes(body, "data")
	switch {
	case data.IsObject():
		return len(data.Map()) > 0
	case data.IsArray():
		return len(data.Array()) > 0
	default:
		return false
	}
}

// APIMessage extracts the error description the API sends alongside failed requests.
func APIMessage(body []byte) string {
	res := gjson.GetManyBytes(body, "message", "type", "code")
	switch {
	case res[0].String() != "":
		return res[0].String()
	case res[1].String() != "":
		return res[1].String()
	case res[2].Exists():
		return "code " + res[2].String()
	}
	return ""
}

// Usable reports whether the document holds data. A nil document is not usable.
func (d *Document) Usable() bool {
	return d != nil && len(d.Raw) > 0 && Usable(d.Raw)
}

// Interval returns the values of interval i of the first timeline.
func (d *Document) Interval(i int) (Values, bool) {
	if d == nil || len(d.Timelines) == 0 {
		return Values{}, false
	}
	intervals := d.Timelines[0].Intervals
	if i < 0 || i >= len(intervals) {
		return Values{}, false
	}
	return intervals[i].Values, true
}
