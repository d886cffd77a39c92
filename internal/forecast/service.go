package forecast

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Fetcher is the interface both upstream clients satisfy.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (*HourlySeries, *CurrentConditions, error)
}

// Bundle is the combined result of one fetch cycle: the merged hourly series
// plus the resolved current conditions.
type Bundle struct {
	Merged    *HourlySeries      `json:"merged"`
	Current   *CurrentConditions `json:"current"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// Service fetches the weather and marine feeds in parallel and merges them.
// Weather is required; marine is optional and degrades to nil fields.
type Service struct {
	weather Fetcher
	marine  Fetcher
	now     func() time.Time
}

func NewService(weather, marine Fetcher) *Service {
	return &Service{weather: weather, marine: marine, now: time.Now}
}

// Fetch runs one full cycle for the given coordinates.
func (s *Service) Fetch(ctx context.Context, lat, lon float64) (*Bundle, error) {
	var (
		weatherSeries, marineSeries   *HourlySeries
		weatherCurrent, marineCurrent *CurrentConditions
		weatherErr, marineErr         error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weatherSeries, weatherCurrent, weatherErr = s.weather.Fetch(gctx, lat, lon)
		return nil // marine must keep running even if weather fails
	})
	g.Go(func() error {
		marineSeries, marineCurrent, marineErr = s.marine.Fetch(gctx, lat, lon)
		return nil
	})
	_ = g.Wait()

	if weatherErr != nil {
		return nil, fmt.Errorf("weather fetch failed: %w", weatherErr)
	}
	if marineErr != nil {
		// Marine data is optional; proceed with nil marine fields.
		log.Printf("forecast: marine fetch failed for %.3f,%.3f: %v", lat, lon, marineErr)
		marineSeries = nil
		marineCurrent = nil
	}

	merged := Merge(weatherSeries, marineSeries)
	current := s.resolveCurrent(merged, weatherCurrent, marineCurrent)

	return &Bundle{
		Merged:    merged,
		Current:   current,
		FetchedAt: s.now().UTC(),
	}, nil
}

// resolveCurrent prefers the upstream current blocks and falls back to the
// hour closest to now in the merged series, then derives the condition label
// and the fishing rating.
func (s *Service) resolveCurrent(merged *HourlySeries, weatherCur, marineCur *CurrentConditions) *CurrentConditions {
	var current *CurrentConditions
	if weatherCur != nil || marineCur != nil {
		current = MergeCurrent(weatherCur, marineCur)
	} else {
		current = &CurrentConditions{}
	}

	// Fill any still-unknown fields from the resolved hourly index.
	if idx := ResolveCurrentIndex(merged.Time, s.now().UTC()); idx >= 0 {
		fill := func(dst **float64, src []*float64) {
			if *dst == nil && idx < len(src) {
				*dst = src[idx]
			}
		}
		fill(&current.Temperature, merged.Temperature)
		fill(&current.WindSpeed, merged.WindSpeed)
		fill(&current.WindDirection, merged.WindDirection)
		fill(&current.WaveHeight, merged.WaveHeight)
		fill(&current.WaveDirection, merged.WaveDirection)
		fill(&current.SwellHeight, merged.SwellHeight)
		fill(&current.SwellDirection, merged.SwellDirection)
		fill(&current.SwellPeriod, merged.SwellPeriod)
	}

	current.Condition = ConditionLabel(current.WeatherCode)
	current.FishingConditions = Rate(current)
	return current
}
