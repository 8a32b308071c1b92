package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/earthscape/climate-analytics/internal/app"
	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/ml"
	"github.com/earthscape/climate-analytics/internal/store"
	"github.com/earthscape/climate-analytics/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(router *fiber.App, a *app.App) {
	v1 := router.Group("/api/v1")

	analyticsGroup := v1.Group("/analytics")

	analyticsGroup.Get("/correlation", func(c *fiber.Ctx) error {
		img, err := a.Analytics.Correlation(c.Query("city"), c.Query("country"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render correlation matrix")
		}
		return c.JSON(fiber.Map{"image": imageOrNil(img)})
	})

	analyticsGroup.Post("/comparison", func(c *fiber.Ctx) error {
		var req comparisonRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		start, end, err := parseDateRange(req.StartDate, req.EndDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		img, err := a.Analytics.Comparison(req.Variables, req.City, req.Country, start, end)
		if err != nil || img == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Could not generate comparison plot")
		}
		return c.JSON(fiber.Map{"image": img})
	})

	analyticsGroup.Get("/data", func(c *fiber.Ctx) error {
		start, end, err := parseDateRange(c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rows := a.Analytics.Series(c.Query("city"), c.Query("country"), start, end)
		return c.JSON(fiber.Map{"data": rows})
	})

	predict := v1.Group("/predict")

	predict.Post("", func(c *fiber.Ctx) error {
		var req locationQuery
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, weather.ErrValidation.Error())
		}

		result, err := a.Weather.Predict(c.UserContext(), req.City, req.Country)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(result)
	})

	predict.Get("/latest", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := a.Weather.GetLatest(locReq.toLocation())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(result)
	})

	predict.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		results, err := a.Weather.GetRange(loc, req.From, req.To)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{
			"location":    loc,
			"from":        req.From,
			"to":          req.To,
			"predictions": results,
		})
	})

	model := v1.Group("/model")

	model.Get("", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"available": a.Backend != nil,
			"model":     nil,
		}
		if a.Backend != nil {
			status["backend"] = a.Backend.Name
			if m := a.Models.Active(); m != nil {
				status["model"] = fiber.Map{
					"id":         m.ID,
					"accuracy":   m.Accuracy,
					"trained_at": m.TrainedAt,
					"rows":       m.Rows,
				}
			}
		}
		return c.JSON(status)
	})

	model.Post("/train", func(c *fiber.Ctx) error {
		res, err := a.Train()
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(res)
	})

	model.Get("/anomalies", func(c *fiber.Ctx) error {
		res, err := a.DetectAnomalies()
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(res)
	})
}

// ErrorHandler is the centralized error response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// toHTTPError maps core errors onto HTTP statuses.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, weather.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrUpstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, ml.ErrNoData):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ml.ErrTrainingInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ml.ErrBackendUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func imageOrNil(img string) interface{} {
	if img == "" {
		return nil
	}
	return img
}

// comparisonRequest is the body of the comparison endpoint.
type comparisonRequest struct {
	Variables []string `json:"variables" validate:"required,min=1"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// parseDateRange parses optional inclusive date bounds.
func parseDateRange(startStr, endStr string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if s := strings.TrimSpace(startStr); s != "" {
		t, ok := climate.ParseDate(s)
		if !ok {
			return nil, nil, errors.New("invalid start_date")
		}
		start = &t
	}
	if s := strings.TrimSpace(endStr); s != "" {
		t, ok := climate.ParseDate(s)
		if !ok {
			return nil, nil, errors.New("invalid end_date")
		}
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errors.New("end_date must not be before start_date")
	}
	return start, end, nil
}

// locationQuery identifies a location.
type locationQuery struct {
	City    string `json:"city" validate:"required"`
	Country string `json:"country" validate:"required"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    strings.TrimSpace(l.City),
		Country: strings.TrimSpace(l.Country),
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

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

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

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
