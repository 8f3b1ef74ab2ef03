package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blitcore/internal/store"
)

func TestBenchInvalidFlags(t *testing.T) {
	cmd := NewBenchCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, "--count", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBenchSoftJSON(t *testing.T) {
	profile := writeFile(t, t.TempDir(), "soft.cue", softProfile)

	cmd := NewBenchCommand(&RootOptions{Format: "json", Profile: profile})
	out, err := execute(cmd, "--count", "20", "--workers", "3", "--size", "8")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   BenchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	r := resp.Data
	assert.Equal(t, "soft", r.Generation)
	assert.Equal(t, 20, r.Blits)
	assert.False(t, r.Faulted)

	// Workers submit 7, 7 and 6 blits; index 3 of each is DST.
	assert.Equal(t, map[string]int{"completed": 17, "skipped": 3}, r.Outcomes)
	assert.Equal(t, uint64(17), r.HardwareStarts)
}

func TestBenchText(t *testing.T) {
	cmd := NewBenchCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "--count", "10", "--workers", "2", "--size", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Bench: g2d4x, 10 blits, 2 workers")
	assert.Contains(t, out, "Throughput:")
	assert.Contains(t, out, "✓ No faults")
}

func TestBenchRecordsTrace(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bench.db")

	cmd := NewBenchCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, "--count", "8", "--workers", "2", "--size", "4", "--progress=false", "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	counts, err := st.CountOutcomes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"completed": 6, "skipped": 2}, counts)

	maxSeq, err := st.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), maxSeq)
}
