package airq

import (
	"sort"
	"time"
)

// DefaultForecastDays is the maximum number of days in an aligned forecast.
const DefaultForecastDays = 7

type rangeAccumulator struct {
	sumAvg float64
	count  int
	min    float64
	max    float64
}

// AlignForecast merges independent per-pollutant day-series into one ordered
// per-day forecast. Only pollutants actually present in the input appear in
// an entry's Ranges; days before windowStart are dropped, never backfilled.
// The representative index of each day comes from the first pollutant in the
// priority order with data for that day.
func AlignForecast(series map[Pollutant][]DayPoint, windowStart time.Time, maxDays int) []ForecastDayEntry {
	if maxDays <= 0 {
		maxDays = DefaultForecastDays
	}

	type dayKey string

	days := make(map[dayKey]map[Pollutant]*rangeAccumulator)
	dayDates := make(map[dayKey]time.Time)

	for pollutant, points := range series {
		for _, p := range points {
			ts := p.Date.UTC()
			k := dayKey(ts.Format("2006-01-02"))

			if _, ok := days[k]; !ok {
				days[k] = make(map[Pollutant]*rangeAccumulator)
				dayDates[k] = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
			}

			acc, ok := days[k][pollutant]
			if !ok {
				days[k][pollutant] = &rangeAccumulator{
					sumAvg: p.Avg,
					count:  1,
					min:    p.Min,
					max:    p.Max,
				}
				continue
			}

			acc.sumAvg += p.Avg
			acc.count++
			if p.Min < acc.min {
				acc.min = p.Min
			}
			if p.Max > acc.max {
				acc.max = p.Max
			}
		}
	}

	if len(days) == 0 {
		return nil
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	start := time.Date(windowStart.Year(), windowStart.Month(), windowStart.Day(), 0, 0, 0, 0, time.UTC)

	forecast := make([]ForecastDayEntry, 0, maxDays)
	for _, k := range keys {
		if len(forecast) >= maxDays {
			break
		}

		date := dayDates[dayKey(k)]
		if date.Before(start) {
			continue
		}

		accs := days[dayKey(k)]
		ranges := make(map[Pollutant]*PollutantRange, len(accs))
		for pollutant, acc := range accs {
			ranges[pollutant] = &PollutantRange{
				Avg: acc.sumAvg / float64(acc.count),
				Min: acc.min,
				Max: acc.max,
			}
		}

		index := representativeIndex(ranges)
		cls := ClassifyIndex(index)

		forecast = append(forecast, ForecastDayEntry{
			Date:     date,
			Ranges:   ranges,
			Index:    index,
			Category: cls.Category,
			Color:    cls.Color,
		})
	}

	return forecast
}

// representativeIndex derives a day's index from the first priority pollutant
// with data; days with none of the priority pollutants resolve to index 0.
func representativeIndex(ranges map[Pollutant]*PollutantRange) int {
	for _, pollutant := range indexPriority {
		if r, ok := ranges[pollutant]; ok && r != nil {
			return ConvertConcentrationToIndex(r.Avg)
		}
	}
	return 0
}
