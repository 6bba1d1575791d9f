// Command report runs every analysis once against the configured database
// and prints the results as text tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-kit/log/level"

	"github.com/iliyamo/rental-analytics/internal/analysis"
	"github.com/iliyamo/rental-analytics/internal/config"
	"github.com/iliyamo/rental-analytics/internal/database"
	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/logging"
	"github.com/iliyamo/rental-analytics/internal/repository"
)

func main() {
	only := flag.String("only", "", "comma-separated analyses to run (default all)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	orch := analysis.New(repository.NewSQLSource(db, config.LoadTableMap()), config.LoadAnalysisConfig(), logger)
	results, err := run(ctx, orch, *only)
	if err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(2)
	}
	if failed := printResults(os.Stdout, results); failed > 0 {
		level.Error(logger).Log("msg", "some analyses failed", "failed", failed)
		os.Exit(1)
	}
}

func run(ctx context.Context, orch *analysis.Orchestrator, only string) ([]analysis.Result, error) {
	if only == "" {
		return orch.RunAll(ctx), nil
	}
	var out []analysis.Result
	for _, name := range strings.Split(only, ",") {
		name = strings.TrimSpace(name)
		start := time.Now()
		d, err := orch.Run(ctx, name)
		if errors.Is(err, analysis.ErrUnknownAnalysis) {
			return nil, fmt.Errorf("unknown analysis %q, have %s", name, strings.Join(orch.Names(), ", "))
		}
		out = append(out, analysis.Result{Name: name, Data: d, Err: err, Elapsed: time.Since(start)})
	}
	return out, nil
}

// printResults writes one section per result and returns how many failed.
func printResults(w io.Writer, results []analysis.Result) int {
	failed := 0
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (%s)\n", r.Name, r.Elapsed.Round(time.Millisecond))
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "error: %v\n", r.Err)
			continue
		}
		printTable(w, r.Data)
	}
	return failed
}

func printTable(w io.Writer, d *dataset.Dataset) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(d.ColumnNames(), "\t"))
	for _, row := range d.Rows() {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "(%d rows)\n", d.Len())
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%.2f", t)
	case time.Time:
		return t.Format(time.DateTime)
	}
	return fmt.Sprint(v)
}
