package constraints

import (
	"fmt"
	"sync"

	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
)

// Manager caches the last merged Params keyed by a fingerprint of the
// configuration that produced them, guarded by a mutex. The cache is
// never mutated in place, only wholesale-replaced, matching the single
// deterministic merge path in MergeParameters.
type Manager struct {
	mu          sync.RWMutex
	fingerprint string
	params      *Params
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Parameters returns the merged Params for the given dataset and
// configuration, reusing the cached value when the configuration is
// unchanged and recomputing (never mutating) otherwise.
func (m *Manager) Parameters(ds *facade.Dataset, cfg config.Constraints) (*Params, error) {
	fp := fingerprint(ds, cfg)

	m.mu.RLock()
	if m.fingerprint == fp && m.params != nil {
		cached := m.params
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	params, err := MergeParameters(ds, cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.fingerprint = fp
	m.params = params
	m.mu.Unlock()

	return params, nil
}

func fingerprint(ds *facade.Dataset, cfg config.Constraints) string {
	return fmt.Sprintf("%v|%+v", ds.Rounds(), cfg)
}
