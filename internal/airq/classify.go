package airq

import "math"

// Classification is the health-advisory bucket for an AQI value.
type Classification struct {
	Category string `json:"category"`
	Color    string `json:"color"`
	Advisory string `json:"advisory"`
}

// categoryTable is the single source of truth for AQI categories. Colors are
// the classic EPA palette. Upper bound of the last bucket is open.
var categoryTable = []struct {
	max int // inclusive upper bound of the bucket
	cls Classification
}{
	{50, Classification{
		Category: "Good",
		Color:    "#00E400",
		Advisory: "Air quality is satisfactory, and air pollution poses little or no risk.",
	}},
	{100, Classification{
		Category: "Moderate",
		Color:    "#FFFF00",
		Advisory: "Air quality is acceptable. There may be a risk for people who are unusually sensitive to air pollution.",
	}},
	{150, Classification{
		Category: "Unhealthy for Sensitive Groups",
		Color:    "#FF7E00",
		Advisory: "Members of sensitive groups may experience health effects. The general public is less likely to be affected.",
	}},
	{200, Classification{
		Category: "Unhealthy",
		Color:    "#FF0000",
		Advisory: "Some members of the general public may experience health effects; members of sensitive groups may experience more serious health effects.",
	}},
	{300, Classification{
		Category: "Very Unhealthy",
		Color:    "#8F3F97",
		Advisory: "Health alert: the risk of health effects is increased for everyone.",
	}},
	{math.MaxInt, Classification{
		Category: "Hazardous",
		Color:    "#7E0023",
		Advisory: "Health warning of emergency conditions: everyone is more likely to be affected.",
	}},
}

// ClassifyIndex maps an AQI value to its category, color and advisory.
// Negative input is clamped to zero; any value above 300 resolves to Hazardous.
func ClassifyIndex(index int) Classification {
	if index < 0 {
		index = 0
	}
	for _, row := range categoryTable {
		if index <= row.max {
			return row.cls
		}
	}
	// Unreachable: the last bucket has an open upper bound.
	return categoryTable[len(categoryTable)-1].cls
}

// pm25Breakpoints is the EPA PM2.5 breakpoint table mapping a concentration
// range (µg/m³) onto an index range.
var pm25Breakpoints = []struct {
	concLow, concHigh   float64
	indexLow, indexHigh int
}{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 500.4, 301, 500},
}

// ConvertConcentrationToIndex converts a raw PM2.5 concentration to an AQI
// value with the standard piecewise-linear breakpoint formula. Concentrations
// past the last breakpoint extrapolate on the last segment's slope with no
// cap. Negative input is treated as zero. Rounding is half away from zero.
func ConvertConcentrationToIndex(concentration float64) int {
	if concentration < 0 {
		concentration = 0
	}

	seg := pm25Breakpoints[len(pm25Breakpoints)-1]
	for _, bp := range pm25Breakpoints {
		if concentration <= bp.concHigh {
			seg = bp
			break
		}
	}

	slope := float64(seg.indexHigh-seg.indexLow) / (seg.concHigh - seg.concLow)
	index := slope*(concentration-seg.concLow) + float64(seg.indexLow)
	return int(math.Round(index))
}
