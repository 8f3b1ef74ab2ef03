package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const skipScenario = `name: skip
description: An opaque source reduces SRC_OVER and DST never starts the device.
generation: soft
latency: 50us
commands:
  - context: a
    op: SRC_OVER
    src: {addr: memory, format: XRGB_8888, width: 4, height: 4, dma: 0x1000, rect: {x2: 4, y2: 4}}
    dst: {addr: memory, format: ARGB_8888, width: 4, height: 4, dma: 0x2000, rect: {x2: 4, y2: 4}}
  - context: b
    op: DST
    dst: {addr: memory, format: ARGB_8888, width: 4, height: 4, dma: 0x2000, rect: {x2: 4, y2: 4}}
assertions:
  - type: effective_op
    command: 0
    op: SRC
  - type: outcome
    command: 1
    outcome: skipped
  - type: hardware_starts
    count: 1
`

const failingScenario = `name: failing
description: Expects a skipped command to have completed.
generation: soft
latency: 50us
commands:
  - context: a
    op: DST
    dst: {addr: memory, format: ARGB_8888, width: 4, height: 4, dma: 0x2000, rect: {x2: 4, y2: 4}}
assertions:
  - type: outcome
    command: 0
    outcome: completed
`

const hangScenario = `name: hang
description: A hung transfer faults the engine and the next command drains.
generation: g2d4x
timeout: 30ms
faults:
  hang: [0]
commands:
  - context: a
    op: SRC_OVER
    src: {addr: memory, format: ARGB_8888, width: 8, height: 8, dma: 0x1000, rect: {x2: 8, y2: 8}}
    dst: {addr: memory, format: ARGB_8888, width: 8, height: 8, dma: 0x2000, rect: {x2: 8, y2: 8}}
  - context: a
    op: SRC_OVER
    src: {addr: memory, format: ARGB_8888, width: 8, height: 8, dma: 0x1000, rect: {x2: 8, y2: 8}}
    dst: {addr: memory, format: ARGB_8888, width: 8, height: 8, dma: 0x2000, rect: {x2: 8, y2: 8}}
assertions:
  - type: outcome
    command: 0
    outcome: failed
  - type: outcome
    command: 1
    outcome: drained
  - type: engine_error
    faulted: true
`

const softProfile = `generation: "soft"
latency:    "20us"
timeout:    "500ms"
`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
