package sync

import (
	"sync"

	"github.com/rtlmb/member-sync/internal/domain"
)

// aggregator accumulates per-row outcomes. Counters are mutex-guarded so
// the orchestrator can run rows in parallel; with one worker the lock is
// uncontended and effectively free.
type aggregator struct {
	mu      sync.Mutex
	created int
	updated int
	errors  []domain.ImportRowError
}

func newAggregator() *aggregator {
	return &aggregator{}
}

func (a *aggregator) addCreated() {
	a.mu.Lock()
	a.created++
	a.mu.Unlock()
}

func (a *aggregator) addUpdated() {
	a.mu.Lock()
	a.updated++
	a.mu.Unlock()
}

func (a *aggregator) addError(e domain.ImportRowError) {
	a.mu.Lock()
	a.errors = append(a.errors, e)
	a.mu.Unlock()
}

func (a *aggregator) snapshot() (created, updated int, errors []domain.ImportRowError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.errors == nil {
		return a.created, a.updated, []domain.ImportRowError{}
	}
	return a.created, a.updated, a.errors
}
