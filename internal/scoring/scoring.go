package scoring

// Rating is the categorical fishing-condition suitability rating.
type Rating string

const (
	RatingUnknown   Rating = "Unknown"
	RatingPoor      Rating = "Poor"
	RatingFair      Rating = "Fair"
	RatingGood      Rating = "Good"
	RatingExcellent Rating = "Excellent"
)

// Score maps wave height (m), wind speed (km/h), and swell period (s) to a
// suitability rating. Nil inputs mean "unknown" and are excluded from the
// average rather than scored as zero. Wave height and wind speed both absent
// yields Unknown.
//
// The wind curve is deliberately non-monotonic: moderate wind helps casting
// and surface activity, strong wind is a hazard.
func Score(waveHeight, windSpeed, swellPeriod *float64) Rating {
	if waveHeight == nil && windSpeed == nil {
		return RatingUnknown
	}

	var total float64
	var factors int

	if waveHeight != nil {
		total += waveHeightPoints(*waveHeight)
		factors++
	}
	if windSpeed != nil {
		total += windSpeedPoints(*windSpeed)
		factors++
	}
	if swellPeriod != nil {
		total += swellPeriodPoints(*swellPeriod)
		factors++
	}

	if factors == 0 {
		return RatingUnknown
	}

	mean := total / float64(factors)
	switch {
	case mean >= 4.5:
		return RatingExcellent
	case mean >= 3.5:
		return RatingGood
	case mean >= 2.5:
		return RatingFair
	default:
		return RatingPoor
	}
}

func waveHeightPoints(h float64) float64 {
	switch {
	case h < 0.3:
		return 5
	case h < 0.7:
		return 4
	case h < 1.2:
		return 3
	case h < 2.0:
		return 2
	case h < 3.0:
		return 1
	default:
		return 0
	}
}

func windSpeedPoints(w float64) float64 {
	switch {
	case w < 5:
		return 3
	case w < 15:
		return 5
	case w < 25:
		return 3
	case w < 35:
		return 1
	default:
		return 0
	}
}

func swellPeriodPoints(p float64) float64 {
	switch {
	case p > 10:
		return 5
	case p > 8:
		return 4
	case p > 6:
		return 3
	case p > 4:
		return 2
	default:
		return 1
	}
}
