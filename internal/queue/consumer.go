package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultLogPath is where the consumer appends one line per event.
var DefaultLogPath = filepath.Join("logs", "analysis.log")

// StartAnalysisConsumer consumes AnalysisCompletedQueue from the broker at
// url and appends each event to logPath. It reconnects with exponential
// backoff until ctx is cancelled.
func StartAnalysisConsumer(ctx context.Context, url, logPath string, logger log.Logger) error {
	logger = log.With(logger, "component", "analysis-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			level.Warn(logger).Log("msg", "failed to dial broker", "retry_in", backoff, "err", err)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logPath, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		level.Warn(logger).Log("msg", "consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, logger log.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		level.Warn(logger).Log("msg", "set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(AnalysisCompletedQueue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	msgs, err := ch.ConsumeWithContext(ctx, AnalysisCompletedQueue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "queue consume")
	}

	for d := range msgs {
		if err := handleMessage(d.Body, logPath); err != nil {
			level.Error(logger).Log("msg", "handle message failed", "err", err)
			_ = d.Nack(false, false) // requeueing a bad message would loop forever
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, logPath string) error {
	var ev AnalysisCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Wrap(err, "unmarshal")
	}
	if ev.Analysis == "" {
		return errors.New("event without analysis name")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer f.Close()

	if _, err := f.WriteString(formatEvent(ev)); err != nil {
		return errors.Wrap(err, "write log")
	}
	return nil
}

func formatEvent(ev AnalysisCompletedEvent) string {
	if ev.Status == StatusFailed {
		return fmt.Sprintf("[%s] Analysis failed | analysis=%s | elapsed=%dms | error=%q\n",
			ev.CompletedAt, ev.Analysis, ev.ElapsedMs, ev.Error)
	}
	return fmt.Sprintf("[%s] Analysis completed | analysis=%s | rows=%d | columns=[%s] | elapsed=%dms\n",
		ev.CompletedAt, ev.Analysis, ev.Rows, strings.Join(ev.Columns, ","), ev.ElapsedMs)
}
