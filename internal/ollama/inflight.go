package ollama

import (
	"sync"

	"github.com/promptlab/promptlab/internal/fault"
)

// Op identifies a logical client operation kind. Each kind has its own
// in-flight guard so a long refine does not block a concurrent test.
type Op string

const (
	OpHealth Op = "health"
	OpModels Op = "models"
	OpRefine Op = "refine"
	OpTest   Op = "test"
)

// inflight tracks which operation kinds have a pending request. A second
// call of the same kind fails fast instead of queueing, mirroring the UI's
// disable-button-while-pending contract.
type inflight struct {
	mu     sync.Mutex
	active map[Op]bool
}

func newInflight() *inflight {
	return &inflight{active: make(map[Op]bool)}
}

func (g *inflight) acquire(op Op) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[op] {
		return fault.New(fault.AlreadyInProgress, "a %s request is already in progress", op)
	}
	g.active[op] = true
	return nil
}

func (g *inflight) release(op Op) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, op)
}
