package forecast

import (
	"testing"
	"time"
)

func hours(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func constSeries(v float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		val := v
		out[i] = &val
	}
	return out
}

func TestMergeShorterMarineLeavesTrailingNils(t *testing.T) {
	start := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	weather := &HourlySeries{
		Time:        hours(start, 48),
		Temperature: constSeries(20, 48),
		WindSpeed:   constSeries(10, 48),
	}
	marine := &HourlySeries{
		Time:       hours(start, 24),
		WaveHeight: constSeries(0.8, 24),
	}

	merged := Merge(weather, marine)

	if merged.Len() != 48 {
		t.Fatalf("merged length = %d, want 48", merged.Len())
	}
	for i := 0; i < 24; i++ {
		if merged.WaveHeight[i] == nil {
			t.Fatalf("index %d should carry marine data", i)
		}
	}
	for i := 24; i < 48; i++ {
		if merged.WaveHeight[i] != nil {
			t.Fatalf("index %d should have nil marine fields", i)
		}
	}
}

func TestMergeWithoutMarine(t *testing.T) {
	start := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	weather := &HourlySeries{
		Time:        hours(start, 24),
		Temperature: constSeries(20, 24),
	}

	merged := Merge(weather, nil)

	if merged.Len() != 24 {
		t.Fatalf("merged length = %d, want 24", merged.Len())
	}
	if merged.WaveHeight != nil {
		t.Error("absent marine series must leave wave fields nil")
	}
	if merged.Temperature[0] == nil {
		t.Error("weather fields must survive the merge")
	}
}

func TestResolveCurrentIndexExactMatch(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		now.Add(-2 * time.Hour),
		now.Add(-1 * time.Hour),
		now,
		now.Add(time.Hour),
	}

	if got := ResolveCurrentIndex(times, now); got != 2 {
		t.Errorf("resolved index = %d, want 2 (the exact match)", got)
	}
}

func TestResolveCurrentIndexTieBreaksEarlier(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 30, 0, 0, time.UTC)
	times := []time.Time{
		now.Add(-30 * time.Minute),
		now.Add(30 * time.Minute),
	}

	if got := ResolveCurrentIndex(times, now); got != 0 {
		t.Errorf("resolved index = %d, want 0 (ties pick the earliest)", got)
	}
}

func TestResolveCurrentIndexEmpty(t *testing.T) {
	if got := ResolveCurrentIndex(nil, time.Now()); got != -1 {
		t.Errorf("resolved index = %d, want -1 for empty series", got)
	}
}

func TestWindowClipsAtEnd(t *testing.T) {
	start := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	s := &HourlySeries{
		Time:        hours(start, 30),
		Temperature: constSeries(20, 30),
	}

	w := Window(s, 20, 24)
	if w.Len() != 10 {
		t.Errorf("window length = %d, want 10 (shorter, never wraps)", w.Len())
	}

	if Window(s, 40, 6).Len() != 0 {
		t.Error("out-of-range start must yield an empty window")
	}
}

func TestDailyAggregate(t *testing.T) {
	start := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	s := &HourlySeries{
		Time:        hours(start, 48),
		Temperature: make([]*float64, 48),
		WindSpeed:   make([]*float64, 48),
		WaveHeight:  make([]*float64, 48),
	}

	// Day one: temperatures 10..33, wind fixed, waves only for 12 hours.
	for i := 0; i < 24; i++ {
		temp := float64(10 + i)
		wind := 12.0
		s.Temperature[i] = &temp
		s.WindSpeed[i] = &wind
		if i < 12 {
			wave := 1.0
			s.WaveHeight[i] = &wave
		}
	}
	// Day two left entirely nil.

	days := DailyAggregate(s)
	if len(days) != 2 {
		t.Fatalf("day count = %d, want 2", len(days))
	}

	d1 := days[0]
	if d1.TemperatureMin == nil || *d1.TemperatureMin != 10 {
		t.Errorf("day1 temperature min = %v, want 10", d1.TemperatureMin)
	}
	if d1.TemperatureMax == nil || *d1.TemperatureMax != 33 {
		t.Errorf("day1 temperature max = %v, want 33", d1.TemperatureMax)
	}
	if d1.WindSpeedAvg == nil || *d1.WindSpeedAvg != 12 {
		t.Errorf("day1 wind avg = %v, want 12", d1.WindSpeedAvg)
	}
	// Mean over non-nil values only, not over 24 slots.
	if d1.WaveHeightAvg == nil || *d1.WaveHeightAvg != 1.0 {
		t.Errorf("day1 wave avg = %v, want 1.0", d1.WaveHeightAvg)
	}

	d2 := days[1]
	if d2.TemperatureMin != nil || d2.WindSpeedAvg != nil || d2.WaveHeightAvg != nil {
		t.Error("a chunk with zero non-nil values must aggregate to nil, not zero")
	}
}

func TestMergeCurrentUnion(t *testing.T) {
	temp := 18.0
	wave := 0.6
	weather := &CurrentConditions{Temperature: &temp}
	marine := &CurrentConditions{WaveHeight: &wave}

	merged := MergeCurrent(weather, marine)
	if merged.Temperature == nil || *merged.Temperature != 18 {
		t.Error("weather fields missing from union")
	}
	if merged.WaveHeight == nil || *merged.WaveHeight != 0.6 {
		t.Error("marine fields missing from union")
	}

	onlyWeather := MergeCurrent(weather, nil)
	if onlyWeather.WaveHeight != nil {
		t.Error("absent marine side must leave marine fields nil")
	}
}
