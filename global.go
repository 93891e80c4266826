package channel

import (
	"sync"

	"github.com/Swind/go-channel/core"
)

// =============================================================================
// Global Loop Helper (Singleton)
// =============================================================================

var (
	globalLoop *core.Loop
	globalMu   sync.Mutex
)

// InitGlobalLoop starts the process-wide loop that channels use unless
// WithRunner says otherwise. Calling it again is a no-op.
func InitGlobalLoop() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLoop != nil {
		return // Already initialized
	}
	globalLoop = core.NewLoop("global-loop")
}

// GlobalLoop returns the process-wide loop, starting it on first use.
func GlobalLoop() *core.Loop {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLoop == nil {
		globalLoop = core.NewLoop("global-loop")
	}
	return globalLoop
}

// ShutdownGlobalLoop stops the global loop. Channels created afterwards get
// a fresh one; channels bound to the old loop stop making progress.
func ShutdownGlobalLoop() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLoop != nil {
		globalLoop.Stop()
		globalLoop = nil
	}
}
