// Package analysis runs the fixed rental analyses. Each analysis is a pure
// pipeline over an immutable Catalog of entity datasets, so analyses can run
// in any order or concurrently without sharing mutable state.
package analysis

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
	"github.com/iliyamo/rental-analytics/internal/repository"
)

// Config holds the parameters of the analyses. Zero fields take the
// defaults of DefaultConfig.
type Config struct {
	TopActors        int    // rows kept by top_actors_by_rentals
	ChildrenCategory string // category ranked by top_children_actors
	ChildrenTop      int    // dense-rank cutoff for top_children_actors
	CityPrefix       string // city_category_rent_hours keeps cities starting with this
	CitySubstring    string // ... or containing this
	Parallelism      int    // analyses run at once by RunAll
}

// DefaultConfig returns the stock parameters: top 10 actors, top 3 in
// Children, cities starting with "A" or containing "-", 4 workers.
func DefaultConfig() Config {
	return Config{
		TopActors:        10,
		ChildrenCategory: "Children",
		ChildrenTop:      3,
		CityPrefix:       "A",
		CitySubstring:    "-",
		Parallelism:      4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopActors <= 0 {
		c.TopActors = d.TopActors
	}
	if c.ChildrenCategory == "" {
		c.ChildrenCategory = d.ChildrenCategory
	}
	if c.ChildrenTop <= 0 {
		c.ChildrenTop = d.ChildrenTop
	}
	if c.CityPrefix == "" {
		c.CityPrefix = d.CityPrefix
	}
	if c.CitySubstring == "" {
		c.CitySubstring = d.CitySubstring
	}
	if c.Parallelism <= 0 {
		c.Parallelism = d.Parallelism
	}
	return c
}

// Result is the outcome of one analysis in a batch. Exactly one of Data and
// Err is set.
type Result struct {
	Name    string
	Data    *dataset.Dataset
	Err     error
	Elapsed time.Duration
}

// Orchestrator loads entity tables from a Source and runs analyses on them.
type Orchestrator struct {
	src      repository.Source
	cfg      Config
	logger   log.Logger
	analyses []Analysis
	byName   map[string]Analysis
}

// New constructs an Orchestrator. A nil logger discards log output.
func New(src repository.Source, cfg Config, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	o := &Orchestrator{
		src:      src,
		cfg:      cfg.withDefaults(),
		logger:   log.With(logger, "component", "analysis"),
		analyses: registry(),
		byName:   make(map[string]Analysis),
	}
	for _, a := range o.analyses {
		o.byName[a.Name] = a
	}
	return o
}

// Config returns the effective parameters.
func (o *Orchestrator) Config() Config { return o.cfg }

// Names returns the registered analyses in canonical order.
func (o *Orchestrator) Names() []string {
	out := make([]string, len(o.analyses))
	for i, a := range o.analyses {
		out[i] = a.Name
	}
	return out
}

// Analyses returns the registered analyses in canonical order.
func (o *Orchestrator) Analyses() []Analysis {
	return append([]Analysis(nil), o.analyses...)
}

// Load reads each entity once from the source, checks it against the model
// schema and returns the catalog. The first failure is returned as a
// StageError for stage "load".
func (o *Orchestrator) Load(ctx context.Context, entities ...model.Entity) (*Catalog, error) {
	tables := make(map[model.Entity]*dataset.Dataset, len(entities))
	for _, e := range entities {
		if _, done := tables[e]; done {
			continue
		}
		d, err := o.loadOne(ctx, e)
		if err != nil {
			return nil, err
		}
		tables[e] = d
	}
	return NewCatalog(tables), nil
}

func (o *Orchestrator) loadOne(ctx context.Context, e model.Entity) (*dataset.Dataset, error) {
	start := time.Now()
	d, err := o.src.LoadTable(ctx, e)
	if err == nil {
		err = model.Check(e, d)
	}
	if err != nil {
		level.Error(o.logger).Log("msg", "failed to load table", "entity", e, "err", err)
		return nil, &StageError{Stage: "load", Entity: e, Err: err}
	}
	level.Debug(o.logger).Log("msg", "loaded table", "entity", e, "rows", d.Len(), "duration", time.Since(start))
	return d, nil
}

// Run loads the tables the named analysis needs and runs it.
func (o *Orchestrator) Run(ctx context.Context, name string) (*dataset.Dataset, error) {
	a, ok := o.byName[name]
	if !ok {
		return nil, ErrUnknownAnalysis
	}
	cat, err := o.Load(ctx, a.Needs...)
	if err != nil {
		if se, ok := err.(*StageError); ok {
			se.Analysis = name
		}
		return nil, err
	}
	return o.exec(a, cat)
}

// RunOn runs the named analysis against an already loaded catalog.
func (o *Orchestrator) RunOn(cat *Catalog, name string) (*dataset.Dataset, error) {
	a, ok := o.byName[name]
	if !ok {
		return nil, ErrUnknownAnalysis
	}
	return o.exec(a, cat)
}

func (o *Orchestrator) exec(a Analysis, cat *Catalog) (*dataset.Dataset, error) {
	start := time.Now()
	d, err := a.run(o.cfg, cat)
	if err != nil {
		level.Warn(o.logger).Log("msg", "analysis failed", "analysis", a.Name, "duration", time.Since(start), "err", err)
		return nil, err
	}
	level.Info(o.logger).Log("msg", "analysis finished", "analysis", a.Name, "rows", d.Len(), "duration", time.Since(start))
	return d, nil
}

// RunAll loads every table once and runs all analyses concurrently, at most
// Config.Parallelism at a time. Analyses are isolated: a table that fails to
// load fails only the analyses that need it, and a failing analysis never
// stops its siblings. Results come back in canonical order.
func (o *Orchestrator) RunAll(ctx context.Context) []Result {
	tables := make(map[model.Entity]*dataset.Dataset)
	loadErrs := make(map[model.Entity]error)
	for _, a := range o.analyses {
		for _, e := range a.Needs {
			if _, ok := tables[e]; ok {
				continue
			}
			if _, ok := loadErrs[e]; ok {
				continue
			}
			d, err := o.loadOne(ctx, e)
			if err != nil {
				loadErrs[e] = err
				continue
			}
			tables[e] = d
		}
	}
	cat := NewCatalog(tables)

	results := make([]Result, len(o.analyses))
	var g errgroup.Group
	g.SetLimit(o.cfg.Parallelism)
	for i, a := range o.analyses {
		i, a := i, a
		results[i].Name = a.Name
		if err := firstLoadError(a, loadErrs); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			start := time.Now()
			d, err := o.exec(a, cat)
			results[i] = Result{Name: a.Name, Data: d, Err: err, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func firstLoadError(a Analysis, loadErrs map[model.Entity]error) error {
	for _, e := range a.Needs {
		if err, ok := loadErrs[e]; ok {
			se := *err.(*StageError)
			se.Analysis = a.Name
			return &se
		}
	}
	return nil
}
