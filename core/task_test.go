package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubRunner struct{}

func (stubRunner) PostTask(Task)                       {}
func (stubRunner) PostDelayedTask(Task, time.Duration) {}

// TestGetCurrentTaskRunner verifies extracting task runner from context
// Given: A plain context and a context containing task runner value
// When: GetCurrentTaskRunner is called
// Then: It returns nil for plain context and the stored runner for annotated context
func TestGetCurrentTaskRunner(t *testing.T) {
	assert.Nil(t, GetCurrentTaskRunner(context.Background()))

	var runner TaskRunner = stubRunner{}
	ctx := context.WithValue(context.Background(), taskRunnerKey, runner)
	assert.Equal(t, runner, GetCurrentTaskRunner(ctx))
}
