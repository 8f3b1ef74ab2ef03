package store

import (
	"context"
	"fmt"
)

// BlitRecord is one row of the blits table.
type BlitRecord struct {
	Seq         uint64
	ContextID   string
	Op          string
	EffectiveOp string
	Outcome     string
	Error       string
	// Started reports whether the hardware was started for the command.
	Started bool
}

// Dump is one row of the dumps table.
type Dump struct {
	ID   int64
	Seq  uint64
	Kind string
	Body string
}

// OutcomeStarted marks a row whose command has started but not finished.
const OutcomeStarted = "started"

// WriteStart records that the hardware was started for seq. The row is
// completed by WriteBlit.
func (s *Store) WriteStart(ctx context.Context, seq uint64, contextID, op string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blits (seq, context_id, op, outcome, started)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(seq) DO UPDATE SET started = 1
	`, int64(seq), contextID, op, OutcomeStarted)
	if err != nil {
		return fmt.Errorf("write start: %w", err)
	}
	return nil
}

// WriteBlit records the result of a command. A row left by WriteStart is
// updated in place and keeps its started flag.
func (s *Store) WriteBlit(ctx context.Context, rec BlitRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blits (seq, context_id, op, effective_op, outcome, error, started)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO UPDATE SET
			context_id = excluded.context_id,
			op = excluded.op,
			effective_op = excluded.effective_op,
			outcome = excluded.outcome,
			error = excluded.error,
			started = MAX(blits.started, excluded.started)
	`,
		int64(rec.Seq),
		rec.ContextID,
		rec.Op,
		rec.EffectiveOp,
		rec.Outcome,
		rec.Error,
		boolInt(rec.Started),
	)
	if err != nil {
		return fmt.Errorf("write blit: %w", err)
	}
	return nil
}

// WriteDump appends a postmortem dump for seq.
func (s *Store) WriteDump(ctx context.Context, seq uint64, kind, body string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dumps (seq, kind, body) VALUES (?, ?, ?)
	`, int64(seq), kind, body)
	if err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
