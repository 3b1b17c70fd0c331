// Package session owns the single live allocation session: the loaded
// dataset, the merged parameters, and the outcome of the most recent
// solve.
//
// There is exactly one session per process. A second upload replaces
// the first wholesale; nothing here supports concurrent independent
// sessions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cigdist/huoyuan-allocator/internal/allocator"
	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/cigdist/huoyuan-allocator/internal/cache"
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/cigdist/huoyuan-allocator/internal/obslog"
)

// Snapshot is an immutable, read-only copy of the session's state at
// one instant, returned by Current so callers never hold the lock
// across their own work.
type Snapshot struct {
	ID         string
	UploadedAt time.Time
	Dataset    *facade.Dataset
	Params     *constraints.Params
	Config     config.Config
	LastResult *allocator.Result
	SolvedAt   time.Time
}

// Session guards the process-wide current session behind a
// sync.RWMutex, serializing upload/configure/solve/fetch against each
// other.
type Session struct {
	mu sync.RWMutex

	id          string
	uploadedAt  time.Time
	ds          *facade.Dataset
	params      *constraints.Params
	cfg         config.Config
	paramsCache *cache.ParamsCache
	lastResult  *allocator.Result
	solvedAt    time.Time
}

// New returns an empty session; Upload must be called before Solve.
func New() *Session {
	return &Session{cfg: config.Default()}
}

// NewWithCache returns a session whose parameter merges consult the
// given cache before recomputing. pc may be nil, which degrades to New.
func NewWithCache(pc *cache.ParamsCache) *Session {
	s := New()
	s.paramsCache = pc
	return s
}

// mergeParams resolves merged parameters through the optional cache.
// Both tiers are purely an optimization over the single deterministic
// MergeParameters path; a miss or cache outage never changes the answer.
func (s *Session) mergeParams(ds *facade.Dataset, cfg config.Constraints) (*constraints.Params, error) {
	if s.paramsCache == nil {
		return constraints.MergeParameters(ds, cfg)
	}

	ctx := context.Background()
	key := paramsKey(ds, cfg)
	if params, ok := s.paramsCache.Get(ctx, key); ok {
		return params, nil
	}
	params, err := constraints.MergeParameters(ds, cfg)
	if err != nil {
		return nil, err
	}
	_ = s.paramsCache.Set(ctx, key, params)
	return params, nil
}

func paramsKey(ds *facade.Dataset, cfg config.Constraints) string {
	table := make([]facade.RoundConstraint, 0, len(ds.Rounds()))
	for _, r := range ds.Rounds() {
		rc, _ := ds.RoundConstraint(r)
		table = append(table, rc)
	}
	return fmt.Sprintf("alloc:params:%v|%+v", table, cfg)
}

// Upload replaces the current session's dataset wholesale and resets
// any prior solve result.
func (s *Session) Upload(id string, ds *facade.Dataset, cfg config.Config) error {
	params, err := s.mergeParams(ds, cfg.Constraints)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.ds = ds
	s.cfg = cfg
	s.params = params
	s.uploadedAt = time.Now()
	s.lastResult = nil
	return nil
}

// Configure re-merges parameters against a new configuration record
// without requiring a fresh upload. MergeParameters is always the
// entrypoint; there is no partial-update variant.
func (s *Session) Configure(cfg config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return allocerr.NewConfigError("Configure", "no dataset uploaded yet")
	}
	params, err := s.mergeParams(s.ds, cfg.Constraints)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.params = params
	return nil
}

// Solve runs Allocate against the session's current dataset and
// parameters and records the result.
func (s *Session) Solve(log *obslog.Logger) (*allocator.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return nil, allocerr.NewConfigError("Solve", "no dataset uploaded yet")
	}

	result, err := allocator.Allocate(s.ds, s.params, s.cfg, log)
	if err != nil {
		return nil, err
	}

	s.lastResult = result
	s.solvedAt = time.Now()

	return result, nil
}

// Current returns a read-only snapshot of the session, or ok=false if
// nothing has been uploaded yet.
func (s *Session) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		ID:         s.id,
		UploadedAt: s.uploadedAt,
		Dataset:    s.ds,
		Params:     s.params,
		Config:     s.cfg,
		LastResult: s.lastResult,
		SolvedAt:   s.solvedAt,
	}, true
}

// LastResult is a convenience accessor for /api/result; ok=false means
// no solve has completed yet in this session.
func (s *Session) LastResult() (*allocator.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult, s.lastResult != nil
}
