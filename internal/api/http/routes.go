package httpapi

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mkarpov-dev/fishcast/internal/forecast"
	"github.com/mkarpov-dev/fishcast/internal/gear"
	"github.com/mkarpov-dev/fishcast/internal/geo"
	"github.com/mkarpov-dev/fishcast/internal/locwatch"
)

var validate = validator.New()

// pipelineRunTimeout is the overall ceiling on one gear analysis run.
const pipelineRunTimeout = 60 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, watcher *locwatch.Watcher, pipeline *gear.Pipeline, resolver *geo.Resolver) {
	v1 := app.Group("/api/v1")

	v1.Post("/location", func(c *fiber.Ctx) error {
		var req locationBody
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		name, region := req.Name, req.Region
		if name == "" || region == "" {
			rn, rr := resolver.Reverse(req.Latitude, req.Longitude)
			if name == "" {
				name = rn
			}
			if region == "" {
				region = rr
			}
		}

		loc := locwatch.LocationPoint{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Name:      name,
			Region:    region,
		}
		watcher.Update(loc)

		return c.Status(fiber.StatusAccepted).JSON(loc)
	})

	v1.Get("/conditions/current", func(c *fiber.Ctx) error {
		_, bundle, fetchedAt := watcher.Current()
		if bundle == nil {
			return fiber.NewError(fiber.StatusNotFound, "no conditions available yet; set a location first")
		}
		return c.JSON(fiber.Map{
			"current":   bundle.Current,
			"fetchedAt": fetchedAt,
		})
	})

	v1.Get("/forecast/hourly", func(c *fiber.Ctx) error {
		hours := c.QueryInt("hours", 24)
		if hours < 1 || hours > 168 {
			return fiber.NewError(fiber.StatusBadRequest, "hours must be between 1 and 168")
		}

		_, bundle, _ := watcher.Current()
		if bundle == nil || bundle.Merged == nil {
			return fiber.NewError(fiber.StatusNotFound, "no forecast available yet; set a location first")
		}

		idx := forecast.ResolveCurrentIndex(bundle.Merged.Time, time.Now().UTC())
		if idx < 0 {
			return fiber.NewError(fiber.StatusNotFound, "forecast series is empty")
		}
		return c.JSON(forecast.Window(bundle.Merged, idx, hours))
	})

	v1.Get("/forecast/daily", func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)
		if days < 1 || days > 7 {
			return fiber.NewError(fiber.StatusBadRequest, "days must be between 1 and 7")
		}

		_, bundle, _ := watcher.Current()
		if bundle == nil || bundle.Merged == nil {
			return fiber.NewError(fiber.StatusNotFound, "no forecast available yet; set a location first")
		}

		daily := forecast.DailyAggregate(bundle.Merged)
		if len(daily) > days {
			daily = daily[:days]
		}
		return c.JSON(daily)
	})

	v1.Post("/gear/recommendations", func(c *fiber.Ctx) error {
		var req gearBody
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, _, _ := watcher.Current()
		pipeline.SetInputs(loc, req.Gear)

		ctx, cancel := context.WithTimeout(c.Context(), pipelineRunTimeout)
		defer cancel()
		return c.JSON(pipeline.Run(ctx))
	})

	v1.Post("/gear/recommendations/retry", func(c *fiber.Ctx) error {
		pipeline.Retry()

		ctx, cancel := context.WithTimeout(c.Context(), pipelineRunTimeout)
		defer cancel()
		return c.JSON(pipeline.Run(ctx))
	})

	v1.Get("/gear/recommendations", func(c *fiber.Ctx) error {
		return c.JSON(pipeline.State())
	})
}

// locationBody is the payload for the location-change endpoint.
type locationBody struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Name      string  `json:"name"`
	Region    string  `json:"region"`
}

// gearBody is the payload for a gear analysis request. An empty collection is
// accepted; the pipeline simply never leaves idle for it.
type gearBody struct {
	Gear []gear.Item `json:"gear" validate:"dive"`
}
