package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileBlitQuery_NoFilter(t *testing.T) {
	sql, params, err := compileBlitQuery(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT seq, context_id, op, effective_op, outcome, error, started FROM blits ORDER BY seq ASC", sql)
	assert.Empty(t, params)
}

func TestCompileBlitQuery_Parameterized(t *testing.T) {
	sql, params, err := compileBlitQuery(And{
		Equals{Column: "outcome", Value: "failed"},
		Equals{Column: "started", Value: true},
		SeqRange{From: 3, To: 9},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE outcome = ? AND started = ? AND seq >= ? AND seq <= ?")
	assert.Contains(t, sql, "ORDER BY seq ASC")
	assert.NotContains(t, sql, "failed") // value is bound, never interpolated
	assert.Equal(t, []any{"failed", 1, int64(3), int64(9)}, params)
}

func TestCompileBlitQuery_Errors(t *testing.T) {
	tests := []struct {
		name  string
		where Predicate
	}{
		{"unknown column", Equals{Column: "1=1; DROP TABLE blits; --", Value: "x"}},
		{"unsupported value", Equals{Column: "op", Value: 1.5}},
		{"inverted range", SeqRange{From: 9, To: 3}},
		{"nested error", And{Equals{Column: "op", Value: "SRC"}, Equals{Column: "nope", Value: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compileBlitQuery(tt.where)
			assert.Error(t, err)
		})
	}
}

func TestCompileBlitQuery_OpenRanges(t *testing.T) {
	sql, params, err := SeqRange{}.compile()
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, params)

	sql, params, err = SeqRange{From: 5}.compile()
	require.NoError(t, err)
	assert.Equal(t, "seq >= ?", sql)
	assert.Equal(t, []any{int64(5)}, params)

	sql, _, err = And{}.compile()
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
}

func TestSelectBlits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []BlitRecord{
		{Seq: 1, ContextID: "a", Op: "SRC_OVER", EffectiveOp: "SRC", Outcome: "completed", Started: true},
		{Seq: 2, ContextID: "b", Op: "DST", EffectiveOp: "DST", Outcome: "skipped"},
		{Seq: 3, ContextID: "a", Op: "XOR", EffectiveOp: "XOR", Outcome: "failed", Error: "DEVICE_TIMEOUT", Started: true},
		{Seq: 4, ContextID: "b", Op: "ADD", EffectiveOp: "ADD", Outcome: "drained", Error: "DEVICE_FAULTED"},
	}
	for _, rec := range rows {
		require.NoError(t, s.WriteBlit(ctx, rec))
	}

	got, err := s.SelectBlits(ctx, Equals{Column: "context_id", Value: "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(3), got[1].Seq)

	got, err = s.SelectBlits(ctx, And{Equals{Column: "started", Value: false}, SeqRange{From: 3}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rows[3], got[0])

	got, err = s.SelectBlits(ctx, Equals{Column: "outcome", Value: "recovered"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = s.SelectBlits(ctx, Equals{Column: "bogus", Value: "x"})
	assert.Error(t, err)
}
