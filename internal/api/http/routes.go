package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hdx-scrapers/icpac-cdi/internal/pipeline"
	"github.com/hdx-scrapers/icpac-cdi/internal/store"
)

var validate = validator.New()

// RunHistory is the read side of the run-report store.
type RunHistory interface {
	GetLatest() (pipeline.RunReport, error)
	GetRange(from, to time.Time) ([]pipeline.RunReport, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, history RunHistory) {
	v1 := app.Group("/api/v1")

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		report, err := history.GetLatest()
		if err != nil {
			return lookupError(err, "no runs recorded yet")
		}
		return c.JSON(report)
	})

	v1.Get("/runs/latest/datasets/:name", func(c *fiber.Ctx) error {
		var req datasetParams
		req.Name = c.Params("name")
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := history.GetLatest()
		if err != nil {
			return lookupError(err, "no runs recorded yet")
		}

		summary, ok := report.Dataset(req.Name)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "dataset not produced by latest run")
		}
		return c.JSON(summary)
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := history.GetRange(req.From, req.To)
		if err != nil {
			return lookupError(err, "no runs in requested range")
		}

		return c.JSON(fiber.Map{
			"from": req.From,
			"to":   req.To,
			"runs": runs,
		})
	})
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch run reports")
}

type datasetParams struct {
	Name string `validate:"required,max=100,startswith=igad-region-"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
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
