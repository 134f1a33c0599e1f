package server

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/matcher"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/records"
	"github.com/sprjihoon/pdf01/internal/scan"
	"github.com/sprjihoon/pdf01/internal/service"
	"github.com/sprjihoon/pdf01/internal/storage"
)

type searchRequest struct {
	Folder     string `json:"folder"`
	Identifier string `json:"identifier"`
}

type failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type searchResponse struct {
	Result    *models.SearchResult `json:"result"`
	Scanned   int                  `json:"scanned"`
	Total     int                  `json:"total"`
	Failures  []failure            `json:"failures"`
	Cancelled bool                 `json:"cancelled"`
}

type matchRequest struct {
	Identifiers []string `json:"identifiers"`
	Pages       []string `json:"pages"`
	Fuzzy       bool     `json:"fuzzy"`
	Threshold   *float64 `json:"threshold"`
}

type matchResponse struct {
	Assignment models.Assignment `json:"assignment"`
	Order      []int             `json:"order"`
	Labels     map[int]string    `json:"labels"`
	Matched    int               `json:"matched"`
	Unmatched  int               `json:"unmatched"`
}

type indexRequest struct {
	Folder string `json:"folder"`
}

type runRequest struct {
	RecordsPath string `json:"records_path"`
	PDFPath     string `json:"pdf_path"`
	OutputDir   string `json:"output_dir"`
	Fuzzy       *bool  `json:"fuzzy"`
	Label       *bool  `json:"label"`
	Upload      bool   `json:"upload"`
}

func (s *Server) registerRoutes(api fiber.Router) {
	api.Post("/search", s.handleSearch)
	api.Post("/match", s.handleMatch)
	api.Post("/index", s.handleIndex)
	api.Post("/runs", s.handleRun)
	api.Get("/runs/:id/files/:name", s.handleRunFile)
	api.Get("/jobs", s.handleListJobs)
	api.Get("/jobs/:id", s.handleGetJob)
	api.Get("/history/searches", s.handleSearchHistory)
	api.Get("/history/prints", s.handlePrintHistory)
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
	}
	if req.Identifier == "" {
		return writeError(c, fiber.StatusBadRequest, "IDENTIFIER_REQUIRED", "identifier is required")
	}

	result, rep, err := s.deps.Search.Find(c.UserContext(), req.Folder, req.Identifier, nil)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "SEARCH_FAILED", err.Error())
	}
	return c.JSON(searchResponse{
		Result:    result,
		Scanned:   rep.Scanned,
		Total:     rep.Total,
		Failures:  failures(rep.Failures),
		Cancelled: rep.Cancelled,
	})
}

// handleMatch assigns text-only pages to identifiers without touching files.
func (s *Server) handleMatch(c *fiber.Ctx) error {
	var req matchRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
	}
	if len(req.Identifiers) == 0 {
		return writeError(c, fiber.StatusBadRequest, "NO_RECORDS", records.ErrNoRecords.Error())
	}
	threshold := s.deps.Threshold
	if threshold == 0 {
		threshold = matcher.DefaultThreshold
	}
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 100 {
		return writeError(c, fiber.StatusBadRequest, "INVALID_THRESHOLD", "threshold must be within 0-100")
	}

	recs := models.RecordsFromIdentifiers(req.Identifiers)
	pages := make([]models.Page, len(req.Pages))
	for i, text := range req.Pages {
		pages[i] = s.deps.Extractor.Page(i, text)
	}

	a := matcher.Engine{UseFuzzy: req.Fuzzy, Threshold: threshold}.Assign(recs, pages)
	matched := a.MatchedCount()
	s.deps.Metrics.RecordsMatched(matched, len(recs)-matched)
	return c.JSON(matchResponse{
		Assignment: a,
		Order:      matcher.FinalOrder(a, len(recs)),
		Labels:     matcher.Labels(recs, a),
		Matched:    matched,
		Unmatched:  len(recs) - matched,
	})
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	var req indexRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
	}

	job := s.deps.Jobs.Start(c.UserContext(), "index", func(ctx context.Context, job *service.Job) (any, error) {
		results, rep, err := s.deps.Search.FindAll(ctx, req.Folder, func(e scan.Event) {
			s.deps.Jobs.UpdateProgress(job, e.Processed, e.Total)
		})
		if err != nil {
			return nil, err
		}
		return fiber.Map{"results": results, "scanned": rep.Scanned, "total": rep.Total, "failures": failures(rep.Failures)}, nil
	})
	return c.Status(fiber.StatusAccepted).JSON(job.Snapshot())
}

// handleRun runs the full match pipeline on files visible to the server.
func (s *Server) handleRun(c *fiber.Ctx) error {
	if s.deps.Match == nil {
		return writeError(c, fiber.StatusServiceUnavailable, "MATCH_DISABLED", "match runs are not enabled")
	}
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
	}
	if req.RecordsPath == "" || req.PDFPath == "" {
		return writeError(c, fiber.StatusBadRequest, "PATH_REQUIRED", "records_path and pdf_path are required")
	}
	// scanned documents are rejected before a job is queued
	if err := s.deps.Match.CheckDocument(c.UserContext(), req.PDFPath); err != nil {
		if errors.Is(err, document.ErrNoTextLayer) {
			return err
		}
		return writeError(c, fiber.StatusBadRequest, "DOCUMENT_UNREADABLE", err.Error())
	}

	job := s.deps.Jobs.Start(c.UserContext(), "match", func(ctx context.Context, job *service.Job) (any, error) {
		return s.deps.Match.Run(ctx, service.MatchRequest{
			RecordsPath: req.RecordsPath,
			PDFPath:     req.PDFPath,
			OutputDir:   req.OutputDir,
			Fuzzy:       req.Fuzzy,
			Label:       req.Label,
			Upload:      req.Upload,
		})
	})
	return c.Status(fiber.StatusAccepted).JSON(job.Snapshot())
}

// handleRunFile streams an uploaded output of a match run from object storage.
func (s *Server) handleRunFile(c *fiber.Ctx) error {
	if s.deps.Match == nil {
		return writeError(c, fiber.StatusServiceUnavailable, "MATCH_DISABLED", "match runs are not enabled")
	}
	rc, info, err := s.deps.Match.Download(c.UserContext(), c.Params("id"), c.Params("name"))
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_DISABLED", "object storage is not configured")
	case errors.Is(err, service.ErrInvalidName):
		return writeError(c, fiber.StatusBadRequest, "INVALID_NAME", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
	case err != nil:
		return err
	}

	c.Attachment(c.Params("name"))
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	return c.SendStream(rc, int(info.Size))
}

func (s *Server) handleListJobs(c *fiber.Ctx) error {
	jobs := s.deps.Jobs.ListJobs()
	out := make([]service.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Snapshot()
	}
	return c.JSON(out)
}

func (s *Server) handleGetJob(c *fiber.Ctx) error {
	job := s.deps.Jobs.GetJob(c.Params("id"))
	if job == nil {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "job not found")
	}
	return c.JSON(job.Snapshot())
}

func (s *Server) handleSearchHistory(c *fiber.Ctx) error {
	if s.deps.History == nil {
		return writeError(c, fiber.StatusServiceUnavailable, "HISTORY_DISABLED", "history is not enabled")
	}
	limit, ok := queryLimit(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	}
	entries, err := s.deps.History.RecentSearches(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (s *Server) handlePrintHistory(c *fiber.Ctx) error {
	if s.deps.History == nil {
		return writeError(c, fiber.StatusServiceUnavailable, "HISTORY_DISABLED", "history is not enabled")
	}
	limit, ok := queryLimit(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	}
	entries, err := s.deps.History.RecentPrints(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func queryLimit(c *fiber.Ctx) (int, bool) {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		return 0, false
	}
	return limit, true
}

func failures[T any](outcomes []scan.Outcome[T]) []failure {
	out := make([]failure, len(outcomes))
	for i, o := range outcomes {
		out[i] = failure{Path: o.Path, Error: o.Err.Error()}
	}
	return out
}

// errorPayload is the body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestID(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// ErrorHandler turns errors returned by handlers into error payloads.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch {
		case errors.Is(err, document.ErrNoTextLayer):
			return writeError(c, fiber.StatusUnprocessableEntity, "NO_TEXT_LAYER", err.Error())
		case status == fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case status == fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case status < fiber.StatusInternalServerError:
			return writeError(c, status, "BAD_REQUEST", fe.Message)
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
