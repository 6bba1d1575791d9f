package analysis

import (
	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
)

// Catalog is the immutable set of entity datasets an analysis reads.
type Catalog struct {
	tables map[model.Entity]*dataset.Dataset
}

// NewCatalog wraps already loaded and checked datasets.
func NewCatalog(tables map[model.Entity]*dataset.Dataset) *Catalog {
	c := &Catalog{tables: make(map[model.Entity]*dataset.Dataset, len(tables))}
	for e, d := range tables {
		c.tables[e] = d
	}
	return c
}

// Table returns the dataset for e.
func (c *Catalog) Table(e model.Entity) (*dataset.Dataset, bool) {
	d, ok := c.tables[e]
	return d, ok
}

// pipeline chains dataset operations for one analysis. The first failing
// step latches its error, tagged with the stage and entity, and turns every
// later step into a no-op.
type pipeline struct {
	name string
	cat  *Catalog
	cur  *dataset.Dataset
	err  error
}

func newPipeline(name string, cat *Catalog) *pipeline {
	return &pipeline{name: name, cat: cat}
}

func (p *pipeline) fail(stage string, e model.Entity, err error) *pipeline {
	if err != nil && p.err == nil {
		p.err = &StageError{Analysis: p.name, Stage: stage, Entity: e, Err: err}
	}
	return p
}

func (p *pipeline) table(e model.Entity) *dataset.Dataset {
	d, ok := p.cat.Table(e)
	if !ok {
		p.fail("load", e, errNotLoaded)
		return nil
	}
	return d
}

func (p *pipeline) from(e model.Entity) *pipeline {
	if p.err != nil {
		return p
	}
	p.cur = p.table(e)
	return p
}

// join joins the current dataset with entity e's table.
func (p *pipeline) join(e model.Entity, kind dataset.JoinKind, keys ...string) *pipeline {
	if p.err != nil {
		return p
	}
	d := p.table(e)
	if d == nil {
		return p
	}
	return p.joinWith(e, d, kind, keys...)
}

// joinWith joins the current dataset with d, a dataset derived from e.
func (p *pipeline) joinWith(e model.Entity, d *dataset.Dataset, kind dataset.JoinKind, keys ...string) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := dataset.Join(p.cur, d, keys, kind)
	p.cur = out
	return p.fail("join", e, err)
}

func (p *pipeline) filter(e model.Entity, pred dataset.Expr) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := p.cur.Filter(pred)
	p.cur = out
	return p.fail("filter", e, err)
}

func (p *pipeline) aggregate(keys []string, aggs ...dataset.Aggregation) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := p.cur.GroupBy(keys...).Agg(aggs...)
	p.cur = out
	return p.fail("aggregate", "", err)
}

func (p *pipeline) withColumn(name string, e dataset.Expr) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := p.cur.WithColumn(name, e)
	p.cur = out
	return p.fail("derive", "", err)
}

func (p *pipeline) selectCols(names ...string) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := p.cur.Select(names...)
	p.cur = out
	return p.fail("select", "", err)
}

func (p *pipeline) orderBy(keys ...dataset.SortKey) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := p.cur.OrderBy(keys...)
	p.cur = out
	return p.fail("sort", "", err)
}

func (p *pipeline) limit(n int) *pipeline {
	if p.err == nil {
		p.cur = p.cur.Limit(n)
	}
	return p
}

func (p *pipeline) topNWithTies(n int, keys ...dataset.SortKey) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := dataset.TopNWithTies(p.cur, n, keys...)
	p.cur = out
	return p.fail("rank", "", err)
}

func (p *pipeline) leaders(partitionBy []string, keys ...dataset.SortKey) *pipeline {
	if p.err != nil {
		return p
	}
	out, err := dataset.Leaders(p.cur, partitionBy, keys...)
	p.cur = out
	return p.fail("rank", "", err)
}

// result returns the final dataset, or the first error. A failed pipeline
// never yields a partial dataset.
func (p *pipeline) result() (*dataset.Dataset, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.cur, nil
}
