package scoring

import "testing"

func f(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		waveHeight  *float64
		windSpeed   *float64
		swellPeriod *float64
		want        Rating
	}{
		{"calm water moderate wind", f(0.2), f(10), nil, RatingExcellent},
		{"all unknown", nil, nil, nil, RatingUnknown},
		{"rough and windy", f(2.5), f(40), f(3), RatingPoor},
		{"swell only is unknown", nil, nil, f(9), RatingUnknown},
		{"good mid conditions", f(0.5), f(10), f(9), RatingGood},
		{"fair chop", f(1.0), f(20), nil, RatingFair},
		{"dead calm wind scores below moderate", f(0.2), f(2), nil, RatingGood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.waveHeight, tt.windSpeed, tt.swellPeriod); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The wind curve is deliberately non-monotonic: moderate beats calm.
func TestWindSweetSpot(t *testing.T) {
	calm := windSpeedPoints(2)
	moderate := windSpeedPoints(10)
	strong := windSpeedPoints(30)

	if moderate <= calm {
		t.Errorf("moderate wind (%v) must outscore calm (%v)", moderate, calm)
	}
	if strong >= moderate {
		t.Errorf("strong wind (%v) must score below moderate (%v)", strong, moderate)
	}
}

func TestBandEdges(t *testing.T) {
	if got := waveHeightPoints(0.3); got != 4 {
		t.Errorf("waveHeightPoints(0.3) = %v, want 4 (bands are half-open)", got)
	}
	if got := windSpeedPoints(15); got != 3 {
		t.Errorf("windSpeedPoints(15) = %v, want 3", got)
	}
	if got := swellPeriodPoints(10); got != 4 {
		t.Errorf("swellPeriodPoints(10) = %v, want 4 (threshold is strict)", got)
	}
	if got := swellPeriodPoints(4); got != 1 {
		t.Errorf("swellPeriodPoints(4) = %v, want 1", got)
	}
}
