package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/rental-analytics/internal/analysis"
	"github.com/iliyamo/rental-analytics/internal/config"
	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
	"github.com/iliyamo/rental-analytics/internal/queue"
	"github.com/iliyamo/rental-analytics/internal/repository"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.AnalysisCompletedEvent
}

func (r *recorder) PublishAnalysisCompleted(_ context.Context, ev queue.AnalysisCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func table(t *testing.T, e model.Entity, rows ...[]any) *dataset.Dataset {
	t.Helper()
	cols, _ := model.Schema(e)
	d, err := dataset.New(cols, rows)
	require.NoError(t, err)
	return d
}

// catalogOnly serves the film catalog tables but no rentals or customers.
func catalogOnly(t *testing.T) *analysis.Orchestrator {
	src := repository.NewMemorySource(map[model.Entity]*dataset.Dataset{
		model.Category:     table(t, model.Category, []any{1, "Action"}, []any{2, "Children"}),
		model.FilmCategory: table(t, model.FilmCategory, []any{1, 2}, []any{2, 2}, []any{3, 1}),
		model.Film:         table(t, model.Film, []any{1, "ALPHA"}, []any{2, "BETA"}, []any{3, "GAMMA"}),
		model.Inventory:    table(t, model.Inventory, []any{1, 1}, []any{2, 3}),
	})
	return analysis.New(src, analysis.Config{}, nil)
}

func do(h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	_ = h(c)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(Health, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListAnalyses(t *testing.T) {
	h := NewAnalysisHandler(catalogOnly(t), nil, nil)
	rec := do(h.List, http.MethodGet, "/v1/analyses", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []analysisItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 7)
	assert.Equal(t, analysis.FilmsPerCategory, body.Items[0].Name)
	assert.Equal(t, []model.Entity{model.Category, model.FilmCategory}, body.Items[0].Entities)
}

func TestRunAnalysis(t *testing.T) {
	events := &recorder{}
	h := NewAnalysisHandler(catalogOnly(t), events, nil)

	rec := do(h.Run, http.MethodGet, "/v1/analyses/films_per_category", "", "name", analysis.FilmsPerCategory)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Analysis string `json:"analysis"`
		Data     struct {
			Columns []struct{ Name, Type string }
			Rows    [][]any
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, analysis.FilmsPerCategory, body.Analysis)
	assert.Equal(t, "films", body.Data.Columns[1].Name)
	assert.Equal(t, [][]any{{"Children", 2.0}, {"Action", 1.0}}, body.Data.Rows)

	require.Len(t, events.events, 1)
	assert.Equal(t, queue.StatusOK, events.events[0].Status)
	assert.Equal(t, 2, events.events[0].Rows)
}

func TestRunUnknownAnalysis(t *testing.T) {
	events := &recorder{}
	h := NewAnalysisHandler(catalogOnly(t), events, nil)

	rec := do(h.Run, http.MethodGet, "/v1/analyses/nope", "", "name", "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_analysis")
	assert.Empty(t, events.events)
}

func TestRunSourceUnavailable(t *testing.T) {
	events := &recorder{}
	h := NewAnalysisHandler(catalogOnly(t), events, nil)

	rec := do(h.Run, http.MethodGet, "/v1/analyses/top_revenue_category", "", "name", analysis.TopRevenueCategory)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body errorResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "source_unavailable", body.Error)
	assert.Equal(t, "load", body.Stage)
	assert.Equal(t, model.Rental, body.Entity)

	require.Len(t, events.events, 1)
	assert.Equal(t, queue.StatusFailed, events.events[0].Status)
}

type failingRunner struct{ *analysis.Orchestrator }

func (failingRunner) Run(context.Context, string) (*dataset.Dataset, error) {
	return nil, &analysis.StageError{
		Analysis: analysis.CityCategoryRentHours,
		Stage:    "derive",
		Entity:   model.Rental,
		Err:      &dataset.ValueError{Op: "duration", Row: 3, Column: model.ColRentalDate, Reason: "null start"},
	}
}

func TestRunPipelineFailure(t *testing.T) {
	h := NewAnalysisHandler(failingRunner{catalogOnly(t)}, nil, nil)

	rec := do(h.Run, http.MethodGet, "/v1/analyses/city_category_rent_hours", "", "name", analysis.CityCategoryRentHours)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "analysis_failed", body.Error)
	assert.Equal(t, "derive", body.Stage)
	assert.Equal(t, model.Rental, body.Entity)
	assert.Contains(t, body.Message, "null start")
}

func TestRunAll(t *testing.T) {
	events := &recorder{}
	h := NewAnalysisHandler(catalogOnly(t), events, nil)

	rec := do(h.RunAll, http.MethodPost, "/v1/analyses/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []struct {
			Analysis string          `json:"analysis"`
			Status   string          `json:"status"`
			Data     json.RawMessage `json:"data"`
			Failure  *errorResp      `json:"failure"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 7)

	status := map[string]string{}
	for _, r := range body.Results {
		status[r.Analysis] = r.Status
		if r.Status == queue.StatusFailed {
			require.NotNil(t, r.Failure)
			assert.Equal(t, "source_unavailable", r.Failure.Error)
			assert.Empty(t, r.Data)
		}
	}
	assert.Equal(t, queue.StatusOK, status[analysis.FilmsPerCategory])
	assert.Equal(t, queue.StatusOK, status[analysis.FilmsNotInInventory])
	assert.Equal(t, queue.StatusFailed, status[analysis.TopRevenueCategory])
	assert.Len(t, events.events, 7)
}

func authHandler(t *testing.T) *AuthHandler {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthHandler(config.Config{
		JWTSecret:        "s3cret",
		AccessTTLMin:     15,
		ClientID:         "analyst",
		ClientSecretHash: string(hash),
	})
}

func TestTokenIssued(t *testing.T) {
	rec := do(authHandler(t).Token, http.MethodPost, "/v1/auth/token", `{"client_id":"analyst","client_secret":"open sesame"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body tokenResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "Bearer", body.TokenType)
}

func TestTokenRejected(t *testing.T) {
	h := authHandler(t)
	for name, tc := range map[string]struct {
		body string
		code int
	}{
		"bad json":     {`{`, http.StatusBadRequest},
		"missing":      {`{"client_id":"analyst"}`, http.StatusBadRequest},
		"wrong secret": {`{"client_id":"analyst","client_secret":"nope"}`, http.StatusUnauthorized},
		"wrong client": {`{"client_id":"admin","client_secret":"open sesame"}`, http.StatusUnauthorized},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.code, do(h.Token, http.MethodPost, "/v1/auth/token", tc.body).Code)
		})
	}
}

func TestTokenDisabledWithoutHash(t *testing.T) {
	h := NewAuthHandler(config.Config{JWTSecret: "s3cret", ClientID: "analyst"})
	rec := do(h.Token, http.MethodPost, "/v1/auth/token", `{"client_id":"analyst","client_secret":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(h.Token, http.MethodPost, "/v1/auth/token", `{"client_id":"analyst","client_secret":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
