package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-monitor/internal/airq"
	"github.com/i474232898/air-quality-monitor/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airq.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/air/current", func(c *fiber.Ctx) error {
		cityReq, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		view, err := service.GetLiveView(c.Context(), cityReq.toCity())
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(view)
	})

	v1.Get("/air/forecast", func(c *fiber.Ctx) error {
		cityReq, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		forecast, err := service.GetForecastView(c.Context(), cityReq.toCity())
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(fiber.Map{
			"city":     cityReq.toCity(),
			"forecast": forecast,
		})
	})

	v1.Get("/air/timeline", func(c *fiber.Ctx) error {
		cityReq, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		timeline := service.GetTimeline(c.Context(), cityReq.toCity())
		return c.JSON(fiber.Map{
			"city":     cityReq.toCity(),
			"timeline": timeline,
		})
	})

	v1.Get("/air/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		city := req.City.toCity()
		snapshots, err := service.GetRange(city, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no air quality history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch air quality history")
		}

		return c.JSON(fiber.Map{
			"city":      city,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

// mapServiceError converts read-path service errors to HTTP statuses.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, airq.ErrNoData):
		return fiber.NewError(fiber.StatusNotFound, "no air quality data for requested city")
	case errors.Is(err, airq.ErrNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, "no provider configured for requested city")
	case errors.Is(err, airq.ErrFetchUnavailable), errors.Is(err, airq.ErrMalformedPayload):
		return fiber.NewError(fiber.StatusBadGateway, "upstream air quality data unavailable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch air quality data")
	}
}

// cityQuery holds query parameters for identifying a city.
type cityQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}

func (q cityQuery) toCity() airq.City {
	return airq.City{
		Name:    q.City,
		Country: q.Country,
	}
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	var q cityQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City cityQuery
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	city, err := parseCityQuery(c)
	if err != nil {
		return err
	}
	h.City = city

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
