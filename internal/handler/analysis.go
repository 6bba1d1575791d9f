package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-analytics/internal/analysis"
	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
	"github.com/iliyamo/rental-analytics/internal/queue"
	"github.com/iliyamo/rental-analytics/internal/repository"
	"github.com/iliyamo/rental-analytics/internal/service"
)

// Runner is the part of analysis.Orchestrator the handlers use.
type Runner interface {
	Analyses() []analysis.Analysis
	Run(ctx context.Context, name string) (*dataset.Dataset, error)
	RunAll(ctx context.Context) []analysis.Result
}

// AnalysisHandler lists and runs analyses and announces each outcome on the
// event publisher.
type AnalysisHandler struct {
	runner  Runner
	events  service.Publisher
	logger  log.Logger
	timeout time.Duration
}

func NewAnalysisHandler(r Runner, events service.Publisher, logger log.Logger) *AnalysisHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &AnalysisHandler{runner: r, events: events, logger: logger, timeout: 2 * time.Minute}
}

type analysisItem struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Entities    []model.Entity `json:"entities"`
}

type errorResp struct {
	Error   string       `json:"error"`
	Stage   string       `json:"stage,omitempty"`
	Entity  model.Entity `json:"entity,omitempty"`
	Message string       `json:"message"`
}

type resultResp struct {
	Analysis  string           `json:"analysis"`
	Status    string           `json:"status"`
	ElapsedMs int64            `json:"elapsed_ms"`
	Data      *dataset.Dataset `json:"data,omitempty"`
	Failure   *errorResp       `json:"failure,omitempty"`
}

// List returns the registered analyses in canonical order.
func (h *AnalysisHandler) List(c echo.Context) error {
	all := h.runner.Analyses()
	items := make([]analysisItem, len(all))
	for i, a := range all {
		items[i] = analysisItem{Name: a.Name, Description: a.Description, Entities: a.Needs}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Run runs the analysis named in the path and returns its dataset.
func (h *AnalysisHandler) Run(c echo.Context) error {
	name := c.Param("name")
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	start := time.Now()
	d, err := h.runner.Run(ctx, name)
	elapsed := time.Since(start)
	if errors.Is(err, analysis.ErrUnknownAnalysis) {
		return c.JSON(http.StatusNotFound, errorResp{Error: "unknown_analysis", Message: "no analysis named " + name})
	}
	h.publish(ctx, queue.NewAnalysisCompletedEvent(name, d, err, elapsed))
	if err != nil {
		status, body := failure(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, resultResp{Analysis: name, Status: queue.StatusOK, ElapsedMs: elapsed.Milliseconds(), Data: d})
}

// RunAll runs every analysis in one batch. The response is 200 even when
// some analyses failed; each result carries its own status.
func (h *AnalysisHandler) RunAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	results := h.runner.RunAll(ctx)
	out := make([]resultResp, len(results))
	for i, r := range results {
		h.publish(ctx, queue.NewAnalysisCompletedEvent(r.Name, r.Data, r.Err, r.Elapsed))
		out[i] = resultResp{Analysis: r.Name, Status: queue.StatusOK, ElapsedMs: r.Elapsed.Milliseconds(), Data: r.Data}
		if r.Err != nil {
			_, body := failure(r.Err)
			out[i].Status = queue.StatusFailed
			out[i].Data = nil
			out[i].Failure = &body
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"results": out})
}

func (h *AnalysisHandler) publish(ctx context.Context, ev queue.AnalysisCompletedEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := h.events.PublishAnalysisCompleted(ctx, ev); err != nil {
		level.Debug(h.logger).Log("msg", "analysis event dropped", "analysis", ev.Analysis, "err", err)
	}
}

// failure maps a run error to a status: 503 when the data source could not
// be read, 500 for any other pipeline failure.
func failure(err error) (int, errorResp) {
	body := errorResp{Error: "analysis_failed", Message: err.Error()}
	var se *analysis.StageError
	if errors.As(err, &se) {
		body.Stage, body.Entity = se.Stage, se.Entity
		if se.Err != nil {
			body.Message = se.Err.Error()
		}
	}
	var sue *repository.SourceUnavailableError
	if errors.As(err, &sue) {
		body.Error = "source_unavailable"
		return http.StatusServiceUnavailable, body
	}
	return http.StatusInternalServerError, body
}
