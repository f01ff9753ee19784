package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRun(t *testing.T) {
	e := NewLocalExecutor()
	assert.Equal(t, "localhost", e.Target())

	out, err := e.Run(context.Background(), "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Contains(t, out, "out")
	assert.Contains(t, out, "err")
}

func TestLocalRunFailureKeepsOutput(t *testing.T) {
	out, err := NewLocalExecutor().Run(context.Background(), "echo 'ERROR: Could not find a profile'; exit 1")
	assert.Error(t, err)
	assert.Contains(t, out, "ERROR: Could not find a profile")
}

func TestLocalRunCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := NewLocalExecutor().Run(ctx, "sleep 5")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

var _ Executor = (*LocalExecutor)(nil)
var _ Executor = (*SSHExecutor)(nil)
