package forecast

import (
	"log"
	"math"
	"time"

	"github.com/mkarpov-dev/fishcast/internal/scoring"
)

// HourlySeries holds parallel hourly arrays. All populated arrays share the
// same length and index-to-time mapping; nil elements mean "unknown", never
// zero.
type HourlySeries struct {
	Time                     []time.Time `json:"time"`
	Temperature              []*float64  `json:"temperature,omitempty"`
	WindSpeed                []*float64  `json:"windSpeed,omitempty"`
	WindDirection            []*float64  `json:"windDirection,omitempty"`
	WaveHeight               []*float64  `json:"waveHeight,omitempty"`
	WaveDirection            []*float64  `json:"waveDirection,omitempty"`
	SwellHeight              []*float64  `json:"swellHeight,omitempty"`
	SwellDirection           []*float64  `json:"swellDirection,omitempty"`
	SwellPeriod              []*float64  `json:"swellPeriod,omitempty"`
	PrecipitationProbability []*float64  `json:"precipitationProbability,omitempty"`
	PrecipitationAmount      []*float64  `json:"precipitationAmount,omitempty"`
	Visibility               []*float64  `json:"visibility,omitempty"`
}

// Len returns the length of the time backbone.
func (s *HourlySeries) Len() int {
	return len(s.Time)
}

// CurrentConditions is a single-hour projection derived from the upstream
// "current" blocks when present, or from the resolved hourly index otherwise.
type CurrentConditions struct {
	Temperature         *float64       `json:"temperature"`
	ApparentTemperature *float64       `json:"apparentTemperature"`
	WindSpeed           *float64       `json:"windSpeed"`
	WindDirection       *float64       `json:"windDirection"`
	WindGusts           *float64       `json:"windGusts"`
	WaveHeight          *float64       `json:"waveHeight"`
	WaveDirection       *float64       `json:"waveDirection"`
	SwellHeight         *float64       `json:"swellHeight"`
	SwellDirection      *float64       `json:"swellDirection"`
	SwellPeriod         *float64       `json:"swellPeriod"`
	WeatherCode         *int           `json:"weatherCode"`
	Condition           string         `json:"condition"`
	FishingConditions   scoring.Rating `json:"fishingConditions"`
}

// Merge index-aligns the marine series onto the weather series. The weather
// time array is the backbone; marine index i maps to weather index i, and a
// shorter marine series leaves trailing indices with nil marine fields.
// A nil marine series produces a merge with all marine fields nil.
func Merge(weather, marine *HourlySeries) *HourlySeries {
	merged := &HourlySeries{
		Time:                     weather.Time,
		Temperature:              weather.Temperature,
		WindSpeed:                weather.WindSpeed,
		WindDirection:            weather.WindDirection,
		PrecipitationProbability: weather.PrecipitationProbability,
		PrecipitationAmount:      weather.PrecipitationAmount,
		Visibility:               weather.Visibility,
	}

	if marine == nil {
		return merged
	}

	// The merge is by index, not by timestamp. If the two feeds ever start at
	// different hours this misaligns silently, so at least make it visible.
	if len(marine.Time) > 0 && len(weather.Time) > 0 && !marine.Time[0].Equal(weather.Time[0]) {
		log.Printf("forecast: marine series starts at %s but weather starts at %s; merging by index anyway",
			marine.Time[0].Format(time.RFC3339), weather.Time[0].Format(time.RFC3339))
	}

	n := weather.Len()
	merged.WaveHeight = alignField(marine.WaveHeight, n)
	merged.WaveDirection = alignField(marine.WaveDirection, n)
	merged.SwellHeight = alignField(marine.SwellHeight, n)
	merged.SwellDirection = alignField(marine.SwellDirection, n)
	merged.SwellPeriod = alignField(marine.SwellPeriod, n)
	return merged
}

// alignField pads or truncates src to length n; absent trailing values are nil.
func alignField(src []*float64, n int) []*float64 {
	if src == nil {
		return nil
	}
	out := make([]*float64, n)
	copy(out, src)
	return out
}

// MergeCurrent unions the two upstream "current" blocks into one snapshot.
// Fields from an absent side stay nil. The weather side wins on overlap since
// it is the required feed.
func MergeCurrent(weather, marine *CurrentConditions) *CurrentConditions {
	out := &CurrentConditions{}
	if marine != nil {
		out.WaveHeight = marine.WaveHeight
		out.WaveDirection = marine.WaveDirection
		out.SwellHeight = marine.SwellHeight
		out.SwellDirection = marine.SwellDirection
		out.SwellPeriod = marine.SwellPeriod
	}
	if weather != nil {
		out.Temperature = weather.Temperature
		out.ApparentTemperature = weather.ApparentTemperature
		out.WindSpeed = weather.WindSpeed
		out.WindDirection = weather.WindDirection
		out.WindGusts = weather.WindGusts
		out.WeatherCode = weather.WeatherCode
	}
	return out
}

// ResolveCurrentIndex locates the index whose timestamp is closest to now.
// Ties resolve to the earliest minimal index. Returns -1 for an empty series.
func ResolveCurrentIndex(times []time.Time, now time.Time) int {
	if len(times) == 0 {
		return -1
	}

	best := 0
	bestDiff := math.Abs(times[0].Sub(now).Seconds())
	for i := 1; i < len(times); i++ {
		diff := math.Abs(times[i].Sub(now).Seconds())
		if diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// Window returns the fixed-size slice of n hours starting at start. If the
// window runs past the end of the series it is simply shorter; it never wraps
// or pads.
func Window(s *HourlySeries, start, n int) *HourlySeries {
	if start < 0 || start >= s.Len() || n <= 0 {
		return &HourlySeries{}
	}
	end := start + n
	if end > s.Len() {
		end = s.Len()
	}

	slice := func(a []*float64) []*float64 {
		if a == nil {
			return nil
		}
		return a[start:end]
	}

	return &HourlySeries{
		Time:                     s.Time[start:end],
		Temperature:              slice(s.Temperature),
		WindSpeed:                slice(s.WindSpeed),
		WindDirection:            slice(s.WindDirection),
		WaveHeight:               slice(s.WaveHeight),
		WaveDirection:            slice(s.WaveDirection),
		SwellHeight:              slice(s.SwellHeight),
		SwellDirection:           slice(s.SwellDirection),
		SwellPeriod:              slice(s.SwellPeriod),
		PrecipitationProbability: slice(s.PrecipitationProbability),
		PrecipitationAmount:      slice(s.PrecipitationAmount),
		Visibility:               slice(s.Visibility),
	}
}

// DailySummary is one 24-hour aggregate used by weekly views.
type DailySummary struct {
	Date                        time.Time      `json:"date"`
	TemperatureMin              *float64       `json:"temperatureMin"`
	TemperatureMax              *float64       `json:"temperatureMax"`
	WindSpeedAvg                *float64       `json:"windSpeedAvg"`
	WaveHeightAvg               *float64       `json:"waveHeightAvg"`
	SwellPeriodAvg              *float64       `json:"swellPeriodAvg"`
	PrecipitationProbabilityAvg *float64       `json:"precipitationProbabilityAvg"`
	FishingConditions           scoring.Rating `json:"fishingConditions"`
}

// DailyAggregate partitions the series into contiguous 24-hour chunks from
// absolute index 0 and aggregates each chunk: arithmetic mean of non-nil
// values for averaged fields, min/max for the temperature band. A chunk with
// no non-nil values for a field yields nil for it.
func DailyAggregate(s *HourlySeries) []DailySummary {
	var days []DailySummary
	for start := 0; start < s.Len(); start += 24 {
		end := start + 24
		if end > s.Len() {
			end = s.Len()
		}

		day := DailySummary{
			Date:                        s.Time[start].Truncate(24 * time.Hour),
			WindSpeedAvg:                meanOf(s.WindSpeed, start, end),
			WaveHeightAvg:               meanOf(s.WaveHeight, start, end),
			SwellPeriodAvg:              meanOf(s.SwellPeriod, start, end),
			PrecipitationProbabilityAvg: meanOf(s.PrecipitationProbability, start, end),
		}
		day.TemperatureMin, day.TemperatureMax = minMaxOf(s.Temperature, start, end)
		day.FishingConditions = scoring.Score(day.WaveHeightAvg, day.WindSpeedAvg, day.SwellPeriodAvg)
		days = append(days, day)
	}
	return days
}

func meanOf(a []*float64, start, end int) *float64 {
	if a == nil {
		return nil
	}
	if end > len(a) {
		end = len(a)
	}
	var sum float64
	var n int
	for i := start; i < end && i < len(a); i++ {
		if a[i] != nil {
			sum += *a[i]
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

func minMaxOf(a []*float64, start, end int) (*float64, *float64) {
	if a == nil {
		return nil, nil
	}
	if end > len(a) {
		end = len(a)
	}
	var lo, hi *float64
	for i := start; i < end && i < len(a); i++ {
		if a[i] == nil {
			continue
		}
		v := *a[i]
		if lo == nil || v < *lo {
			lo = ptr(v)
		}
		if hi == nil || v > *hi {
			hi = ptr(v)
		}
	}
	return lo, hi
}

func ptr(v float64) *float64 { return &v }
