package gear

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkarpov-dev/fishcast/internal/ai"
	"github.com/mkarpov-dev/fishcast/internal/cache"
	"github.com/mkarpov-dev/fishcast/internal/forecast"
	"github.com/mkarpov-dev/fishcast/internal/locwatch"
)

// Phase is the pipeline's lifecycle state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseLoadingWeather Phase = "loading_weather"
	PhaseAnalyzingGear  Phase = "analyzing_gear"
	PhaseComplete       Phase = "complete"
	PhaseError          Phase = "error"
)

// Item is one piece of gear as declared by the user.
type Item struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Category   string `json:"category"`
	Technique  string `json:"technique"`
	Target     string `json:"target"`
	DepthRange string `json:"depthRange"`
}

// Score is the AI's per-item verdict.
type Score struct {
	GearID      string `json:"gearId"`
	Score       int    `json:"score"`
	Reasoning   string `json:"reasoning"`
	Suitability string `json:"suitabilityForConditions"`
}

// State is a snapshot of the pipeline.
type State struct {
	Phase           Phase                       `json:"phase"`
	Weather         *forecast.CurrentConditions `json:"weatherConditions"`
	Recommendations []Score                     `json:"recommendations"`
	Error           string                      `json:"error,omitempty"`
}

// result is what gets cached per (location, gear-set, day).
type result struct {
	Weather         *forecast.CurrentConditions `json:"weatherConditions"`
	Recommendations []Score                     `json:"recommendations"`
}

// Completer is the slice of the AI client the pipeline needs.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, messages []ai.Message) (string, error)
}

const keyVersion = "gear-v1"

// Pipeline is the phased gear-recommendation state machine. Upstream
// failures degrade (fallback weather, empty recommendations); only an
// escaped panic reaches the error phase.
type Pipeline struct {
	cache  *cache.Cache
	fetch  locwatch.FetchFunc
	scorer Completer

	mu      sync.Mutex
	phase   Phase
	loc     *locwatch.LocationPoint
	gear    []Item
	weather *forecast.CurrentConditions
	recs    []Score
	errMsg  string

	now func() time.Time
}

func NewPipeline(c *cache.Cache, fetch locwatch.FetchFunc, scorer Completer) *Pipeline {
	return &Pipeline{
		cache:  c,
		fetch:  fetch,
		scorer: scorer,
		phase:  PhaseIdle,
		now:    time.Now,
	}
}

// SetInputs installs the owning location and gear collection. Any change to
// the rounded location identity or the gear-id set resets the pipeline to
// idle and clears previous results.
func (p *Pipeline) SetInputs(loc *locwatch.LocationPoint, items []Item) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sameLoc := (p.loc == nil && loc == nil) ||
		(p.loc != nil && loc != nil && locwatch.Same(*p.loc, *loc))
	if sameLoc && gearSetID(items) == gearSetID(p.gear) {
		return
	}

	p.loc = loc
	p.gear = items
	p.reset()
}

// Retry resets the pipeline to idle so the normal transition rules re-run.
// There is no partial retry state.
func (p *Pipeline) Retry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Pipeline) reset() {
	p.phase = PhaseIdle
	p.weather = nil
	p.recs = nil
	p.errMsg = ""
}

// State returns a snapshot.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Pipeline) snapshot() State {
	return State{
		Phase:           p.phase,
		Weather:         p.weather,
		Recommendations: p.recs,
		Error:           p.errMsg,
	}
}

// Run drives the pipeline from idle to complete. It is a no-op unless the
// state is idle with a location and a non-empty gear collection present.
func (p *Pipeline) Run(ctx context.Context) (st State) {
	p.mu.Lock()
	if p.phase != PhaseIdle || p.loc == nil || len(p.gear) == 0 {
		defer p.mu.Unlock()
		return p.snapshot()
	}
	p.phase = PhaseLoadingWeather
	loc := *p.loc
	items := make([]Item, len(p.gear))
	copy(items, p.gear)
	p.mu.Unlock()

	// Modeled upstream failures never reach the error phase; only an
	// unexpected panic escaping the pipeline does.
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.phase = PhaseError
			p.errMsg = fmt.Sprintf("unexpected pipeline failure: %v", r)
			st = p.snapshot()
			p.mu.Unlock()
		}
	}()

	key := p.resultKey(loc, items)

	var cached result
	if _, ok := p.cache.Get(key, &cached); ok {
		return p.complete(cached)
	}

	weather := p.loadWeather(ctx, loc)

	p.mu.Lock()
	p.phase = PhaseAnalyzingGear
	p.weather = weather
	p.mu.Unlock()

	recs := p.analyze(ctx, weather, items)

	res := result{Weather: weather, Recommendations: recs}
	if err := p.cache.Set(key, res, 24*time.Hour); err != nil {
		log.Printf("gear: cache write failed for %s: %v", key, err)
	}
	return p.complete(res)
}

func (p *Pipeline) complete(res result) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PhaseComplete
	p.weather = res.Weather
	p.recs = res.Recommendations
	p.errMsg = ""
	return p.snapshot()
}

// loadWeather fetches current conditions, substituting the neutral fallback
// so the pipeline always has something to score against.
func (p *Pipeline) loadWeather(ctx context.Context, loc locwatch.LocationPoint) *forecast.CurrentConditions {
	bundle, err := p.fetch(ctx, loc)
	if err != nil || bundle == nil || bundle.Current == nil {
		if err != nil {
			log.Printf("gear: weather fetch failed for %s, using fallback conditions: %v", loc.ID(), err)
		}
		return forecast.FallbackCurrent()
	}
	return bundle.Current
}

// analyze asks the AI scorer for per-item verdicts. Missing configuration or
// an unparsable response yields an empty list, never an error.
func (p *Pipeline) analyze(ctx context.Context, weather *forecast.CurrentConditions, items []Item) []Score {
	if p.scorer == nil || !p.scorer.Configured() {
		log.Printf("gear: ai scorer not configured; returning no recommendations")
		return []Score{}
	}

	text, err := p.scorer.Complete(ctx, buildMessages(weather, items))
	if err != nil {
		log.Printf("gear: ai scoring failed: %v", err)
		return []Score{}
	}

	recs, err := parseRecommendations(text)
	if err != nil {
		log.Printf("gear: unparsable ai response: %v", err)
		return []Score{}
	}
	return recs
}

func buildMessages(weather *forecast.CurrentConditions, items []Item) []ai.Message {
	var b strings.Builder
	b.WriteString("Current fishing conditions:\n")
	writeCond := func(label string, v *float64, unit string) {
		if v != nil {
			fmt.Fprintf(&b, "- %s: %.1f%s\n", label, *v, unit)
		}
	}
	writeCond("temperature", weather.Temperature, "C")
	writeCond("wind speed", weather.WindSpeed, " km/h")
	writeCond("wave height", weather.WaveHeight, " m")
	writeCond("swell period", weather.SwellPeriod, " s")
	fmt.Fprintf(&b, "- overall rating: %s\n\nGear to evaluate:\n", weather.FishingConditions)

	for _, it := range items {
		fmt.Fprintf(&b, "- id=%s name=%q category=%q technique=%q target=%q depth=%q\n",
			it.ID, it.Name, it.Category, it.Technique, it.Target, it.DepthRange)
	}

	b.WriteString("\nScore each gear item from 0 to 100 for these conditions. ")
	b.WriteString(`Respond with JSON only, exactly: {"recommendations":[{"gearId":"","score":0,"reasoning":"","suitabilityForConditions":""}]}`)

	return []ai.Message{
		{Role: "system", Content: "You are a fishing gear advisor. Answer with strict JSON and nothing else."},
		{Role: "user", Content: b.String()},
	}
}

func parseRecommendations(text string) ([]Score, error) {
	payload := ai.ExtractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("no json payload in response")
	}

	var recs []Score
	if strings.HasPrefix(payload, "[") {
		if err := json.Unmarshal([]byte(payload), &recs); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			Recommendations []Score `json:"recommendations"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
			return nil, err
		}
		recs = wrapper.Recommendations
	}

	for i := range recs {
		if recs[i].Score < 0 {
			recs[i].Score = 0
		}
		if recs[i].Score > 100 {
			recs[i].Score = 100
		}
	}
	return recs, nil
}

// resultKey is day-scoped: rounded location + sorted gear ids + calendar day.
func (p *Pipeline) resultKey(loc locwatch.LocationPoint, items []Item) string {
	return cache.KeySpec{
		Version:  keyVersion,
		Location: loc.ID(),
		Region:   gearSetID(items),
		Bucket:   cache.DayBucket(p.now()),
	}.String()
}

func gearSetID(items []Item) string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
