package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/engine"
)

// DrainTimeout bounds SubmitAndWait.
const DrainTimeout = 5 * time.Second

// SubmitAndWait submits cmds from one new context and waits until the
// context has nothing in flight and the engine is idle.
func SubmitAndWait(t *testing.T, e *engine.Engine, cmds ...*blit.Command) {
	t.Helper()
	c := e.NewContext()
	for _, cmd := range cmds {
		require.NoError(t, e.Submit(c, cmd))
	}

	ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	select {
	case <-e.Idle():
	case <-ctx.Done():
		t.Fatal("engine not idle")
	}
}
