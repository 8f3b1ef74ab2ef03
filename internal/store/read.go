package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadBlits returns every blit record ordered by seq.
//
// Returns an empty slice (not nil) if the table is empty.
func (s *Store) ReadBlits(ctx context.Context) ([]BlitRecord, error) {
	return s.SelectBlits(ctx, nil)
}

// ReadBlit returns the record for seq. The bool is false if none exists.
func (s *Store) ReadBlit(ctx context.Context, seq uint64) (BlitRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, context_id, op, effective_op, outcome, error, started
		FROM blits
		WHERE seq = ?
	`, int64(seq))
	rec, err := scanBlit(row)
	if err == sql.ErrNoRows {
		return BlitRecord{}, false, nil
	}
	if err != nil {
		return BlitRecord{}, false, err
	}
	return rec, true, nil
}

// ReadDumps returns the dumps recorded for seq, oldest first.
func (s *Store) ReadDumps(ctx context.Context, seq uint64) ([]Dump, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, body
		FROM dumps
		WHERE seq = ?
		ORDER BY id ASC
	`, int64(seq))
	if err != nil {
		return nil, fmt.Errorf("query dumps: %w", err)
	}
	defer rows.Close()

	dumps := []Dump{}
	for rows.Next() {
		var d Dump
		var rowSeq int64
		if err := rows.Scan(&d.ID, &rowSeq, &d.Kind, &d.Body); err != nil {
			return nil, fmt.Errorf("scan dump: %w", err)
		}
		d.Seq = uint64(rowSeq)
		dumps = append(dumps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dumps: %w", err)
	}
	return dumps, nil
}

// CountOutcomes returns the number of blits per outcome.
func (s *Store) CountOutcomes(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM blits
		GROUP BY outcome
		ORDER BY outcome ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

// MaxSeq returns the highest recorded seq, or 0 for an empty database.
// A new engine resumes numbering after it.
func (s *Store) MaxSeq(ctx context.Context) (uint64, error) {
	var maxSeq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM blits`).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	if !maxSeq.Valid {
		return 0, nil
	}
	return uint64(maxSeq.Int64), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlit(row scanner) (BlitRecord, error) {
	var rec BlitRecord
	var seq int64
	var started int
	err := row.Scan(&seq, &rec.ContextID, &rec.Op, &rec.EffectiveOp, &rec.Outcome, &rec.Error, &started)
	if err == sql.ErrNoRows {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("scan blit: %w", err)
	}
	rec.Seq = uint64(seq)
	rec.Started = started != 0
	return rec, nil
}
