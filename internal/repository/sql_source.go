package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
)

// SQLSource loads entities from a SQL database. Only the columns declared
// by the model are selected, so the resulting datasets never carry columns
// that would collide in a join.
type SQLSource struct {
	db     *sql.DB                 // db is the underlying connection pool
	tables map[model.Entity]string // tables maps entities to table names
}

// NewSQLSource constructs a SQLSource. tables overrides the table name of
// an entity; entities not listed use their own name.
func NewSQLSource(db *sql.DB, tables map[model.Entity]string) *SQLSource {
	t := make(map[model.Entity]string, len(tables))
	for e, name := range tables {
		t[e] = name
	}
	return &SQLSource{db: db, tables: t}
}

// TableName returns the table an entity is read from.
func (s *SQLSource) TableName(e model.Entity) string {
	if name, ok := s.tables[e]; ok && name != "" {
		return name
	}
	return string(e)
}

// LoadTable runs a full-table SELECT of the entity's columns and returns the
// rows as a dataset. Any failure is reported as a SourceUnavailableError.
func (s *SQLSource) LoadTable(ctx context.Context, e model.Entity) (*dataset.Dataset, error) {
	table := s.TableName(e)
	cols, ok := model.Schema(e)
	if !ok {
		return nil, &SourceUnavailableError{Table: table, Err: ErrUnknownEntity}
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
	}
	q := "SELECT " + strings.Join(names, ", ") + " FROM " + quoteIdent(table)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &SourceUnavailableError{Table: table, Err: errors.Wrap(err, "query")}
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		dest := scanTargets(cols)
		if err := rows.Scan(dest...); err != nil {
			return nil, &SourceUnavailableError{Table: table, Err: errors.Wrapf(err, "scan row %d", len(out))}
		}
		out = append(out, scannedValues(dest))
	}
	if err := rows.Err(); err != nil {
		return nil, &SourceUnavailableError{Table: table, Err: errors.Wrap(err, "iterate rows")}
	}

	d, err := dataset.New(cols, out)
	if err != nil {
		return nil, &SourceUnavailableError{Table: table, Err: errors.Wrap(err, "build dataset")}
	}
	return d, nil
}

// scanTargets allocates one nullable scan destination per column.
func scanTargets(cols []dataset.Column) []any {
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch c.Kind {
		case dataset.KindInt:
			dest[i] = new(sql.NullInt64)
		case dataset.KindFloat:
			dest[i] = new(sql.NullFloat64)
		case dataset.KindBool:
			dest[i] = new(sql.NullBool)
		case dataset.KindTime:
			dest[i] = new(sql.NullTime)
		default:
			dest[i] = new(sql.NullString)
		}
	}
	return dest
}

// scannedValues turns scan destinations into dataset values, NULL as nil.
func scannedValues(dest []any) []any {
	vals := make([]any, len(dest))
	for i, d := range dest {
		switch v := d.(type) {
		case *sql.NullInt64:
			if v.Valid {
				vals[i] = v.Int64
			}
		case *sql.NullFloat64:
			if v.Valid {
				vals[i] = v.Float64
			}
		case *sql.NullBool:
			if v.Valid {
				vals[i] = v.Bool
			}
		case *sql.NullTime:
			if v.Valid {
				vals[i] = v.Time
			}
		case *sql.NullString:
			if v.Valid {
				vals[i] = v.String
			}
		}
	}
	return vals
}

// quoteIdent quotes a MySQL identifier, doubling embedded backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
