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

// WeatherClient fetches hourly atmospheric data and the current snapshot from
// the open-meteo forecast endpoint.
type WeatherClient struct {
	baseURL string
	httpCfg upstream.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherClient(client *http.Client, baseURL string) *WeatherClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &WeatherClient{
		baseURL: baseURL,
		httpCfg: upstream.ClientConfig{
			Client: client,
			Backoff: upstream.BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: upstream.NewBreaker("openmeteo-forecast"),
	}
}

// weatherPayload mirrors the open-meteo forecast response. Pointer elements
// keep upstream nulls distinguishable from zero.
type weatherPayload struct {
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		WindSpeed                []*float64 `json:"wind_speed_10m"`
		WindDirection            []*float64 `json:"wind_direction_10m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		Precipitation            []*float64 `json:"precipitation"`
		Visibility               []*float64 `json:"visibility"`
	} `json:"hourly"`
	Current *struct {
		Temperature         *float64 `json:"temperature_2m"`
		ApparentTemperature *float64 `json:"apparent_temperature"`
		WindSpeed           *float64 `json:"wind_speed_10m"`
		WindDirection       *float64 `json:"wind_direction_10m"`
		WindGusts           *float64 `json:"wind_gusts_10m"`
		WeatherCode         *int     `json:"weather_code"`
	} `json:"current"`
}

// Fetch returns the hourly series and, when the upstream provides one, the
// current snapshot.
func (c *WeatherClient) Fetch(ctx context.Context, lat, lon float64) (*HourlySeries, *CurrentConditions, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("hourly", "temperature_2m,wind_speed_10m,wind_direction_10m,precipitation_probability,precipitation,visibility")
		values.Set("current", "temperature_2m,apparent_temperature,wind_speed_10m,wind_direction_10m,wind_gusts_10m,weather_code")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var payload weatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	series := &HourlySeries{
		Time:                     parseTimes(payload.Hourly.Time),
		Temperature:              payload.Hourly.Temperature,
		WindSpeed:                payload.Hourly.WindSpeed,
		WindDirection:            payload.Hourly.WindDirection,
		PrecipitationProbability: payload.Hourly.PrecipitationProbability,
		PrecipitationAmount:      payload.Hourly.Precipitation,
		Visibility:               payload.Hourly.Visibility,
	}

	var current *CurrentConditions
	if payload.Current != nil {
		current = &CurrentConditions{
			Temperature:         payload.Current.Temperature,
			ApparentTemperature: payload.Current.ApparentTemperature,
			WindSpeed:           payload.Current.WindSpeed,
			WindDirection:       payload.Current.WindDirection,
			WindGusts:           payload.Current.WindGusts,
			WeatherCode:         payload.Current.WeatherCode,
		}
	}

	return series, current, nil
}

// parseTimes accepts both RFC3339 and the "2006-01-02T15:04" form open-meteo
// emits for hourly arrays. Unparsable entries become the zero time rather
// than aborting the whole series.
func parseTimes(raw []string) []time.Time {
	out := make([]time.Time, len(raw))
	for i, s := range raw {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			out[i] = ts.UTC()
			continue
		}
		if ts, err := time.Parse("2006-01-02T15:04", s); err == nil {
			out[i] = ts.UTC()
		}
	}
	return out
}

// ConditionLabel maps an open-meteo weather code to a display label.
func ConditionLabel(code *int) string {
	if code == nil {
		return "Unknown"
	}
	switch c := *code; {
	case c == 0:
		return "Clear"
	case c >= 1 && c <= 3:
		return "Cloudy"
	case c == 45 || c == 48:
		return "Fog"
	case (c >= 51 && c <= 67) || (c >= 80 && c <= 82):
		return "Rain"
	case c >= 71 && c <= 77:
		return "Snow"
	case c >= 95:
		return "Storm"
	default:
		return "Unknown"
	}
}
