// Package queue defines the analysis events exchanged over RabbitMQ and the
// consumer that records them.
package queue

import (
	"time"

	"github.com/iliyamo/rental-analytics/internal/dataset"
)

// AnalysisCompletedQueue is the durable queue events are published to.
const AnalysisCompletedQueue = "analysis.completed"

// Event statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// AnalysisCompletedEvent is published after an analysis ran over HTTP,
// successfully or not.
type AnalysisCompletedEvent struct {
	Analysis    string   `json:"analysis"`
	Status      string   `json:"status"`
	Rows        int      `json:"rows"`
	Columns     []string `json:"columns,omitempty"`
	Error       string   `json:"error,omitempty"`
	ElapsedMs   int64    `json:"elapsed_ms"`
	CompletedAt string   `json:"completed_at"`
}

// NewAnalysisCompletedEvent describes the outcome of one run. d is ignored
// when err is set.
func NewAnalysisCompletedEvent(name string, d *dataset.Dataset, err error, elapsed time.Duration) AnalysisCompletedEvent {
	ev := AnalysisCompletedEvent{
		Analysis:    name,
		Status:      StatusOK,
		ElapsedMs:   elapsed.Milliseconds(),
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ev.Status = StatusFailed
		ev.Error = err.Error()
		return ev
	}
	ev.Rows = d.Len()
	ev.Columns = d.ColumnNames()
	return ev
}
