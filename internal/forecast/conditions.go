package forecast

import "github.com/mkarpov-dev/fishcast/internal/scoring"

// Rate derives the categorical fishing rating from a snapshot.
func Rate(c *CurrentConditions) scoring.Rating {
	return scoring.Score(c.WaveHeight, c.WindSpeed, c.SwellPeriod)
}

// FallbackCurrent returns the neutral defaults substituted when the weather
// fetch fails inside the gear pipeline: mild temperature, light wind, small
// waves, a mid-range swell period. The rating is recomputed from those
// numbers rather than hardcoded.
func FallbackCurrent() *CurrentConditions {
	c := &CurrentConditions{
		Temperature: ptr(20),
		WindSpeed:   ptr(5),
		WaveHeight:  ptr(0.5),
		SwellPeriod: ptr(8),
		Condition:   "Unknown",
	}
	c.FishingConditions = Rate(c)
	return c
}
