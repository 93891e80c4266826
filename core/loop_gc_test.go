package core_test

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-channel/core"
	"github.com/stretchr/testify/require"
)

type payload struct {
	data []byte
}

// TestLoop_GC_ClosureCapturedObjects verifies closure-captured object GC
// Given: 100 objects captured by task closures
// When: tasks complete and objects go out of scope
// Then: all 100 objects are garbage collected and finalizers called
func TestLoop_GC_ClosureCapturedObjects(t *testing.T) {
	loop := core.NewLoopWithConfig("gc", &core.RunnerConfig{Logger: core.NewNoOpLogger()})
	defer loop.Stop()

	var finalized atomic.Int32
	func() {
		for i := 0; i < 100; i++ {
			obj := &payload{data: make([]byte, 64*1024)}
			runtime.SetFinalizer(obj, func(*payload) { finalized.Add(1) })
			loop.PostTask(func(context.Context) { _ = len(obj.data) })
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, loop.WaitIdle(ctx))
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return finalized.Load() == 100
	}, 3*time.Second, 20*time.Millisecond)
}

// TestSequencedTaskRunner_GC_TaskWithStructMethod verifies struct method GC
// Given: a struct with finalizer posted as a task method
// When: the task completes and object goes out of scope
// Then: the struct is garbage collected and finalizer is called
func TestSequencedTaskRunner_GC_TaskWithStructMethod(t *testing.T) {
	pool := core.NewWorkerPool("gc-pool", 2)
	pool.Start(context.Background())
	defer pool.Stop()

	runner := core.NewSequencedTaskRunner(pool)

	var finalized atomic.Bool
	func() {
		obj := &payload{data: make([]byte, 1024*1024)}
		runtime.SetFinalizer(obj, func(*payload) { finalized.Store(true) })
		runner.PostTask(obj.process)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, runner.WaitIdle(ctx))
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return finalized.Load()
	}, 3*time.Second, 20*time.Millisecond)
}

func (p *payload) process(context.Context) {
	p.data[0] = 1
}
