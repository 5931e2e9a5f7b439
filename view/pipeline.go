package view

import (
	"sync"

	"github.com/rpupo63/portfolio-dashboard-core/models"
	"github.com/rpupo63/portfolio-dashboard-core/store"
)

// Pipeline caches the last list derived from one store. It recomputes only
// when the store's snapshot version or the params change. Versions are only
// comparable within a store, so a pipeline never reads from another one.
type Pipeline struct {
	store *store.Store

	mu      sync.Mutex
	valid   bool
	version uint64
	key     string
	result  []models.Project
}

func NewPipeline(st *store.Store) *Pipeline {
	return &Pipeline{store: st}
}

// View returns the derived list of the store's current snapshot. Callers must
// not modify the returned slice; it is shared by every call that hits the
// cache.
func (p *Pipeline) View(params Params) []models.Project {
	snap := p.store.Snapshot()
	key := params.key()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.valid && p.version == snap.Version && p.key == key {
		return p.result
	}
	p.result = Derive(snap.Projects, params)
	p.version = snap.Version
	p.key = key
	p.valid = true
	return p.result
}

// Reset drops the cached result.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.valid = false
	p.result = nil
	p.mu.Unlock()
}
