package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
)

// SnapshotsResponse is a page of filtered snapshots with run metadata.
type SnapshotsResponse struct {
	Data       []domain.FilteredSnapshot `json:"data"`
	Pagination Pagination                `json:"pagination"`
	RunID      string                    `json:"run_id"`
	Processed  int                       `json:"processed"`
	Empty      int                       `json:"empty"`
	Failures   []domain.RecordFailure    `json:"failures,omitempty"`
}

// FilterResponse describes the active density filter.
type FilterResponse struct {
	Neighbors    int     `json:"neighbors"`
	RadiusMeters float32 `json:"radius_meters"`
}

// rangeParams reads the mandatory start/end query parameters.
func rangeParams(c *fiber.Ctx) (string, string, bool) {
	start, end := c.Query("start"), c.Query("end")
	return start, end, start != "" && end != ""
}

// ListSnapshotsHandler runs the pipeline over a range and returns a page of
// the surviving snapshots.
func ListSnapshotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, ok := rangeParams(c)
		if !ok {
			return errBadRequest(c, "start and end query parameters are required")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		report, err := deps.Analysis.Run(c.UserContext(), start, end)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("analysis failed", "start", start, "end", end, "error", err)
			return errFromRun(c, err)
		}

		snaps := report.Snapshots
		total := len(snaps)
		if offset >= total {
			snaps = []domain.FilteredSnapshot{}
		} else {
			snaps = snaps[offset:min(offset+limit, total)]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(SnapshotsResponse{
			Data:       snaps,
			Pagination: pg,
			RunID:      report.RunID,
			Processed:  report.Processed,
			Empty:      report.Empty,
			Failures:   report.Failures,
		})
	}
}

// AnalysisDocumentHandler returns the bare output document for a range,
// byte-for-byte what the analyze command prints.
func AnalysisDocumentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, ok := rangeParams(c)
		if !ok {
			return errBadRequest(c, "start and end query parameters are required")
		}

		report, err := deps.Analysis.Run(c.UserContext(), start, end)
		if err != nil {
			return errFromRun(c, err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		if err := usecases.WriteOutput(c.Response().BodyWriter(), report.Snapshots); err != nil {
			return errInternal(c, err.Error())
		}
		return nil
	}
}

// FilterHandler returns the density filter parameters.
func FilterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := deps.Analysis.Filter()
		return c.JSON(FilterResponse{Neighbors: f.Neighbors, RadiusMeters: f.RadiusMeters})
	}
}

type runRequestBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RequestRunHandler queues an asynchronous analysis for the worker.
func RequestRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Runs == nil {
			return errUnavailable(c, "run queue not configured")
		}

		var body runRequestBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if body.Start == "" || body.End == "" {
			return errBadRequest(c, "start and end are required")
		}
		if body.Start > body.End {
			return errBadRequest(c, usecases.ErrInvalidRange.Error())
		}

		req := &domain.RunRequest{
			ID:        uuid.NewString(),
			Start:     body.Start,
			End:       body.End,
			Requested: time.Now().UTC().Format(time.RFC3339),
		}
		if err := deps.Runs.RequestRun(c.UserContext(), req); err != nil {
			return errUnavailable(c, "queue run: "+err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(req)
	}
}
