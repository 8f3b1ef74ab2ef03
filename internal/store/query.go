package store

import (
	"context"
	"fmt"
	"strings"
)

// Predicate is a filter over the blits table. Values are always bound as
// parameters; columns are checked against blitColumns.
type Predicate interface {
	compile() (string, []any, error)
}

// Equals matches rows whose column equals Value.
type Equals struct {
	Column string
	Value  any
}

// SeqRange matches From <= seq <= To. A zero bound is open.
type SeqRange struct {
	From uint64
	To   uint64
}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And []Predicate

// blitColumns are the columns a Predicate may reference.
var blitColumns = map[string]bool{
	"seq":          true,
	"context_id":   true,
	"op":           true,
	"effective_op": true,
	"outcome":      true,
	"error":        true,
	"started":      true,
}

func (e Equals) compile() (string, []any, error) {
	if !blitColumns[e.Column] {
		return "", nil, fmt.Errorf("unknown column %q", e.Column)
	}
	switch v := e.Value.(type) {
	case string, int64:
		return e.Column + " = ?", []any{v}, nil
	case int:
		return e.Column + " = ?", []any{int64(v)}, nil
	case uint64:
		return e.Column + " = ?", []any{int64(v)}, nil
	case bool:
		return e.Column + " = ?", []any{boolInt(v)}, nil
	default:
		return "", nil, fmt.Errorf("column %s: unsupported value type %T", e.Column, e.Value)
	}
}

func (r SeqRange) compile() (string, []any, error) {
	if r.To != 0 && r.From > r.To {
		return "", nil, fmt.Errorf("empty seq range %d..%d", r.From, r.To)
	}
	var parts []string
	var params []any
	if r.From != 0 {
		parts = append(parts, "seq >= ?")
		params = append(params, int64(r.From))
	}
	if r.To != 0 {
		parts = append(parts, "seq <= ?")
		params = append(params, int64(r.To))
	}
	if len(parts) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(parts, " AND "), params, nil
}

func (a And) compile() (string, []any, error) {
	if len(a) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(a))
	var params []any
	for _, p := range a {
		if p == nil {
			continue
		}
		sql, ps, err := p.compile()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(parts, " AND "), params, nil
}

// compileBlitQuery builds the SELECT for SelectBlits. Every query orders by
// seq so results are deterministic.
func compileBlitQuery(where Predicate) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT seq, context_id, op, effective_op, outcome, error, started FROM blits")

	var params []any
	if where != nil {
		sql, ps, err := where.compile()
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(sql)
		params = ps
	}
	sb.WriteString(" ORDER BY seq ASC")
	return sb.String(), params, nil
}

// SelectBlits returns the blit records matching where, ordered by seq. A nil
// predicate selects every row.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) SelectBlits(ctx context.Context, where Predicate) ([]BlitRecord, error) {
	query, params, err := compileBlitQuery(where)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query blits: %w", err)
	}
	defer rows.Close()

	records := []BlitRecord{}
	for rows.Next() {
		rec, err := scanBlit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blits: %w", err)
	}
	return records, nil
}
