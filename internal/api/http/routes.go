package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/raincoat/internal/outfit"
	"github.com/i474232898/raincoat/internal/present"
	"github.com/i474232898/raincoat/internal/store"
	"github.com/i474232898/raincoat/internal/weather"
)

var validate = validator.New()

// History returns recommendations recorded for a location, oldest first.
type History interface {
	History(loc weather.Location, from, to time.Time) ([]present.Recommendation, error)
}

// Handler carries the dependencies of the API routes.
type Handler struct {
	service        *weather.Service
	history        History
	builder        *outfit.Builder
	defaultCountry string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, history History, builder *outfit.Builder, defaultCountry string) {
	h := &Handler{service: service, history: history, builder: builder, defaultCountry: defaultCountry}

	v1 := app.Group("/api/v1")
	v1.Get("/outfit", h.outfitForLocation)
	v1.Get("/outfit/temperature", h.outfitForTemperature)
	v1.Get("/weather/current", h.currentWeather)
	v1.Get("/weather/history", h.weatherHistory)
}

func (h *Handler) outfitForLocation(c *fiber.Ctx) error {
	locReq, err := h.parseLocationQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Current(c.UserContext(), locReq.toLocation())
	if err != nil {
		if errors.Is(err, weather.ErrUpstream) {
			return fiber.NewError(fiber.StatusBadGateway, "weather service error")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}

	return c.JSON(present.NewRecommendation(report, h.builder))
}

// temperatureQuery holds the explicit temperature for the outfit endpoint.
type temperatureQuery struct {
	F string `validate:"required,numeric"`
}

func (h *Handler) outfitForTemperature(c *fiber.Ctx) error {
	q := temperatureQuery{F: c.Query("f")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	f, err := strconv.ParseFloat(q.F, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"temperatureF": f,
		"outfit":       h.builder.Build(f),
	})
}

func (h *Handler) currentWeather(c *fiber.Ctx) error {
	locReq, err := h.parseLocationQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.GetLatest(locReq.toLocation())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}

	return c.JSON(report)
}

func (h *Handler) weatherHistory(c *fiber.Ctx) error {
	var req historyQuery
	if err := req.bind(c, h); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	loc := req.Location.toLocation()
	recs, err := h.history.History(loc, req.From, req.To)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
	}

	return c.JSON(fiber.Map{
		"location":        loc,
		"from":            req.From,
		"to":              req.To,
		"recommendations": recs,
	})
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	Zip     string `validate:"required,number"`
	Country string `validate:"required,len=2,alpha"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		Zip:     l.Zip,
		Country: strings.ToLower(l.Country),
	}
}

func (h *Handler) parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.Zip = c.Query("zip")
	q.Country = c.Query("country", h.defaultCountry)

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (q *historyQuery) bind(c *fiber.Ctx, h *Handler) error {
	loc, err := h.parseLocationQuery(c)
	if err != nil {
		return err
	}
	q.Location = loc

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

	q.From = from
	q.To = to
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
