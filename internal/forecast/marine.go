package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mkarpov-dev/fishcast/internal/upstream"
)

// MarineClient fetches wave and swell data from the open-meteo marine
// endpoint. Marine data is optional everywhere downstream; a failed fetch
// degrades to nil marine fields instead of failing the cycle.
type MarineClient struct {
	baseURL string
	httpCfg upstream.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewMarineClient(client *http.Client, baseURL string) *MarineClient {
	if baseURL == "" {
		baseURL = "https://marine-api.open-meteo.com/v1/marine"
	}
	return &MarineClient{
		baseURL: baseURL,
		httpCfg: upstream.ClientConfig{
			Client: client,
			Backoff: upstream.BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: upstream.NewBreaker("openmeteo-marine"),
	}
}

type marinePayload struct {
	Hourly struct {
		Time           []string   `json:"time"`
		WaveHeight     []*float64 `json:"wave_height"`
		WaveDirection  []*float64 `json:"wave_direction"`
		SwellHeight    []*float64 `json:"swell_wave_height"`
		SwellDirection []*float64 `json:"swell_wave_direction"`
		SwellPeriod    []*float64 `json:"swell_wave_period"`
	} `json:"hourly"`
	Current *struct {
		WaveHeight     *float64 `json:"wave_height"`
		WaveDirection  *float64 `json:"wave_direction"`
		SwellHeight    *float64 `json:"swell_wave_height"`
		SwellDirection *float64 `json:"swell_wave_direction"`
		SwellPeriod    *float64 `json:"swell_wave_period"`
	} `json:"current"`
}

func (c *MarineClient) Fetch(ctx context.Context, lat, lon float64) (*HourlySeries, *CurrentConditions, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("hourly", "wave_height,wave_direction,swell_wave_height,swell_wave_direction,swell_wave_period")
		values.Set("current", "wave_height,wave_direction,swell_wave_height,swell_wave_direction,swell_wave_period")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var payload marinePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("decoding marine response: %w", err)
	}

	series := &HourlySeries{
		Time:           parseTimes(payload.Hourly.Time),
		WaveHeight:     payload.Hourly.WaveHeight,
		WaveDirection:  payload.Hourly.WaveDirection,
		SwellHeight:    payload.Hourly.SwellHeight,
		SwellDirection: payload.Hourly.SwellDirection,
		SwellPeriod:    payload.Hourly.SwellPeriod,
	}

	var current *CurrentConditions
	if payload.Current != nil {
		current = &CurrentConditions{
			WaveHeight:     payload.Current.WaveHeight,
			WaveDirection:  payload.Current.WaveDirection,
			SwellHeight:    payload.Current.SwellHeight,
			SwellDirection: payload.Current.SwellDirection,
			SwellPeriod:    payload.Current.SwellPeriod,
		}
	}

	return series, current, nil
}
