package geo

import (
	"fmt"
	"log"
	"sync"

	"github.com/kelvins/geocoder"
)

// Resolver wraps the reverse-geocoding collaborator. Callers use it to fill
// LocationPoint.Name before handing a point to the watcher; failures degrade
// to a coordinate-formatted name rather than an error.
type Resolver struct {
	mu         sync.Mutex
	apiKey     string
	configured bool
}

func NewResolver(apiKey string) *Resolver {
	return &Resolver{apiKey: apiKey, configured: apiKey != ""}
}

// Reverse maps coordinates to a display name and a region (state or county)
// usable as a cache key component.
func (r *Resolver) Reverse(lat, lon float64) (name, region string) {
	fallback := fmt.Sprintf("%.3f, %.3f", lat, lon)
	if !r.configured {
		return fallback, ""
	}

	// The geocoder package keys off a package-level ApiKey.
	r.mu.Lock()
	geocoder.ApiKey = r.apiKey
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  lat,
		Longitude: lon,
	})
	r.mu.Unlock()

	if err != nil || len(addresses) == 0 {
		log.Printf("geo: reverse geocoding failed for %.3f,%.3f: %v", lat, lon, err)
		return fallback, ""
	}

	addr := addresses[0]
	switch {
	case addr.City != "":
		name = addr.City
	case addr.County != "":
		name = addr.County
	case addr.FormattedAddress != "":
		name = addr.FormattedAddress
	default:
		name = fallback
	}

	region = addr.State
	if region == "" {
		region = addr.County
	}
	return name, region
}
