package airq

import (
	"time"
)

// Pollutant identifies a measured pollutant species.
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm25"
	PollutantPM10 Pollutant = "pm10"
	PollutantO3   Pollutant = "o3"
	PollutantNO2  Pollutant = "no2"
	PollutantSO2  Pollutant = "so2"
	PollutantCO   Pollutant = "co"
)

// indexPriority is the order in which pollutants are consulted when a
// representative index has to be derived from concentrations.
var indexPriority = []Pollutant{PollutantPM25, PollutantPM10, PollutantO3}

// City represents a logical place for which we track air quality.
// Name/Country must be provided; Lat/Lon are optional and only needed
// for coordinate-keyed providers.
type City struct {
	Name    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for indexing this city in stores and caches.
func (c City) Key() string {
	return c.Name + ":" + c.Country
}

// MetricSnapshot is the normalized air-quality measurement at a point in time.
type MetricSnapshot struct {
	City              City                   `json:"city"`
	Timestamp         time.Time              `json:"timestamp"` // always UTC
	Index             int                    `json:"aqi"`
	DominantPollutant Pollutant              `json:"dominantPollutant,omitempty"`
	Concentrations    map[Pollutant]*float64 `json:"concentrations,omitempty"`
}

// AirQualityView is the cache-published live view: the latest snapshot plus
// its health classification.
type AirQualityView struct {
	Snapshot MetricSnapshot `json:"snapshot"`
	Category string         `json:"category"`
	Color    string         `json:"color"`
	Advisory string         `json:"advisory"`
}

// DayPoint is one day of an upstream per-pollutant forecast series.
type DayPoint struct {
	Date time.Time `json:"date"`
	Avg  float64   `json:"avg"`
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
}

// PollutantRange is the aggregated concentration range of one pollutant on
// one forecast day.
type PollutantRange struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ForecastDayEntry is one day of the aligned multi-pollutant forecast.
// Pollutants absent from the upstream series are absent from Ranges;
// they are never synthesized.
type ForecastDayEntry struct {
	Date     time.Time                     `json:"date"`
	Ranges   map[Pollutant]*PollutantRange `json:"ranges"`
	Index    int                           `json:"aqi"`
	Category string                        `json:"category"`
	Color    string                        `json:"color"`
}

// TimelineEntry is one day of the rolling daily history.
type TimelineEntry struct {
	Date         time.Time `json:"date"`
	Weekday      string    `json:"weekday"`
	WeekdayShort string    `json:"weekdayShort"`
	Index        int       `json:"aqi"`
	Category     string    `json:"category"`
	Color        string    `json:"color"`
}

// RawPayload is what an upstream provider delivers for one city. Index may be
// absent (derived from concentrations instead), forecast series may be absent,
// and individual pollutants may be missing.
type RawPayload struct {
	Timestamp         time.Time
	Index             *int
	DominantPollutant Pollutant
	Concentrations    map[Pollutant]*float64
	Forecast          map[Pollutant][]DayPoint
}
