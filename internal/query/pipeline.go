// Package query builds read-model SQL from an ordered sequence of typed
// stage descriptors. Handlers and views append stages functionally; Build
// compiles them into a single statement with renumbered placeholders so the
// shape of every projection is checked at compile time instead of being
// assembled from untyped fragments.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Runner executes a compiled pipeline. *pgxpool.Conn satisfies it.
type Runner interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Stage contributes one clause to the compiled statement.
type Stage interface {
	apply(b *builder)
}

// Pipeline is an ordered sequence of stages over a base table.
type Pipeline struct {
	from   string
	stages []Stage
}

// From starts a pipeline reading the provided table expression, e.g. "videos v".
func From(table string) *Pipeline {
	return &Pipeline{from: table}
}

// Append adds stages to the pipeline and returns it for chaining.
func (p *Pipeline) Append(stages ...Stage) *Pipeline {
	p.stages = append(p.stages, stages...)
	return p
}

// Build compiles the pipeline into a SQL statement and its argument list.
func (p *Pipeline) Build() (string, []any) {
	b := newBuilder(p.from)
	for _, s := range p.stages {
		s.apply(b)
	}
	return b.assemble(false)
}

// BuildCount compiles a COUNT(*) variant of the pipeline, ignoring
// projection, sorting and pagination stages.
func (p *Pipeline) BuildCount() (string, []any) {
	b := newBuilder(p.from)
	for _, s := range p.stages {
		s.apply(b)
	}
	return b.assemble(true)
}

// Match restricts the base set with a boolean expression. Placeholders use
// '?' and are renumbered during Build. Multiple Match stages are ANDed.
type Match struct {
	Expr string
	Args []any
}

func (m Match) apply(b *builder) {
	b.wheres = append(b.wheres, frag{sql: m.Expr, args: m.Args})
}

// Search restricts the base set with a case-insensitive substring match over
// a bounded set of text columns.
type Search struct {
	Columns []string
	Term    string
}

func (s Search) apply(b *builder) {
	if strings.TrimSpace(s.Term) == "" || len(s.Columns) == 0 {
		return
	}
	parts := make([]string, len(s.Columns))
	args := make([]any, len(s.Columns))
	pattern := "%" + s.Term + "%"
	for i, col := range s.Columns {
		parts[i] = col + " ILIKE ?"
		args[i] = pattern
	}
	b.wheres = append(b.wheres, frag{sql: "(" + strings.Join(parts, " OR ") + ")", args: args})
}

// Lookup inlines a restricted projection of a related row by joining on a
// local key, e.g. the owner of a video. Columns are selected as
// "<alias>.<column>" output names by the caller's Project stage.
type Lookup struct {
	Table    string
	Alias    string
	LocalKey string
	Foreign  string
}

func (l Lookup) apply(b *builder) {
	foreign := l.Foreign
	if foreign == "" {
		foreign = "id"
	}
	b.joins = append(b.joins, frag{sql: fmt.Sprintf(
		"LEFT JOIN %s %s ON %s.%s = %s", l.Table, l.Alias, l.Alias, foreign, l.LocalKey)})
}

// CountField adds a derived column counting related rows, e.g. likes per video.
type CountField struct {
	Alias      string
	Table      string
	ForeignKey string
	LocalKey   string
	Extra      string
}

func (c CountField) apply(b *builder) {
	expr := fmt.Sprintf("(SELECT COUNT(*) FROM %s WHERE %s = %s", c.Table, c.ForeignKey, c.LocalKey)
	if c.Extra != "" {
		expr += " AND " + c.Extra
	}
	expr += ") AS " + c.Alias
	b.cols = append(b.cols, frag{sql: expr})
}

// ExistsField adds a viewer-relative boolean derived column. An empty Viewer
// compiles to constant FALSE so anonymous reads never error.
type ExistsField struct {
	Alias      string
	Table      string
	ForeignKey string
	LocalKey   string
	OwnerKey   string
	Viewer     string
	Extra      string
}

func (e ExistsField) apply(b *builder) {
	if e.Viewer == "" {
		b.cols = append(b.cols, frag{sql: "FALSE AS " + e.Alias})
		return
	}
	expr := fmt.Sprintf("EXISTS(SELECT 1 FROM %s WHERE %s = %s AND %s = ?",
		e.Table, e.ForeignKey, e.LocalKey, e.OwnerKey)
	if e.Extra != "" {
		expr += " AND " + e.Extra
	}
	expr += ") AS " + e.Alias
	b.cols = append(b.cols, frag{sql: expr, args: []any{e.Viewer}})
}

// Derived adds an arbitrary computed output column. Used for aggregates the
// dedicated stages do not cover, such as summed view counters.
type Derived struct {
	Expr  string
	Alias string
	Args  []any
}

func (d Derived) apply(b *builder) {
	b.cols = append(b.cols, frag{sql: d.Expr + " AS " + d.Alias, args: d.Args})
}

// Project selects the base and lookup columns returned by the pipeline.
// Columns are emitted before any derived fields added by earlier stages.
type Project struct {
	Columns []string
}

func (p Project) apply(b *builder) {
	frags := make([]frag, len(p.Columns))
	for i, col := range p.Columns {
		frags[i] = frag{sql: col}
	}
	b.cols = append(frags, b.cols...)
}

// Sort orders the result set. Field names come from the request and are
// mapped through Allowed; anything outside the allowed set falls back to
// the default newest-first order. A tie-break on the row id keeps ordering
// stable across pages that share a sort key.
type Sort struct {
	Field      string
	Descending bool
	Allowed    map[string]string
	Default    string
	TieBreak   string
}

func (s Sort) apply(b *builder) {
	dir := "ASC"
	if s.Descending {
		dir = "DESC"
	}

	column, ok := s.Allowed[s.Field]
	if !ok {
		column = s.Default
		if column == "" {
			column = "created_at"
		}
		dir = "DESC"
	}

	order := column + " " + dir
	tie := s.TieBreak
	if tie == "" {
		tie = "id"
	}
	if tie != column {
		order += ", " + tie + " DESC"
	}
	b.order = order
}

// Paginate bounds the result set. Page numbers start at 1; sizes are clamped
// to [1, Max].
type Paginate struct {
	Page int
	Size int
	Max  int
}

func (p Paginate) apply(b *builder) {
	page, size := p.Bounds()
	b.limit = size
	b.offset = (page - 1) * size
	b.paginated = true
}

// Bounds returns the effective page number and size after clamping.
func (p Paginate) Bounds() (page, size int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	size = p.Size
	if size < 1 {
		size = 10
	}
	max := p.Max
	if max < 1 {
		max = 50
	}
	if size > max {
		size = max
	}
	return page, size
}

type frag struct {
	sql  string
	args []any
}

type builder struct {
	from      string
	cols      []frag
	joins     []frag
	wheres    []frag
	order     string
	limit     int
	offset    int
	paginated bool
}

func newBuilder(from string) *builder {
	return &builder{from: from}
}

// assemble renders the final statement, renumbering '?' placeholders in the
// order their fragments appear in the SQL text.
func (b *builder) assemble(countOnly bool) (string, []any) {
	var (
		sb   strings.Builder
		args []any
		n    int
	)

	write := func(f frag) {
		sql := f.sql
		for _, a := range f.args {
			n++
			sql = strings.Replace(sql, "?", fmt.Sprintf("$%d", n), 1)
			args = append(args, a)
		}
		sb.WriteString(sql)
	}

	sb.WriteString("SELECT ")
	if countOnly {
		sb.WriteString("COUNT(*)")
	} else {
		if len(b.cols) == 0 {
			sb.WriteString("*")
		}
		for i, c := range b.cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(c)
		}
	}

	sb.WriteString(" FROM ")
	sb.WriteString(b.from)

	for _, j := range b.joins {
		sb.WriteString(" ")
		write(j)
	}

	for i, w := range b.wheres {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		write(w)
	}

	if !countOnly {
		if b.order != "" {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(b.order)
		}
		if b.paginated {
			sb.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", b.limit, b.offset))
		}
	}

	return sb.String(), args
}
