package cmd

import (
	"fmt"

	"github.com/substratelabs/memcore/internal/cache"
	"github.com/substratelabs/memcore/internal/config"
	"github.com/substratelabs/memcore/internal/consolidate"
	coreerrors "github.com/substratelabs/memcore/internal/errors"
	"github.com/substratelabs/memcore/internal/index"
	"github.com/substratelabs/memcore/internal/memory"
	"github.com/substratelabs/memcore/internal/search"
	"github.com/substratelabs/memcore/internal/store"
)

// runtime bundles the wired components the subcommands share. Every
// command opens the same stack; only serve keeps it running.
type runtime struct {
	cfg          *config.Config
	store        *store.SQLiteStore
	cache        *cache.QueryCache
	index        *index.Maintainer
	service      *memory.Service
	engine       *search.Engine
	consolidator *consolidate.Engine
	lock         *store.ProcessLock
}

// openRuntime loads configuration from the working directory and opens
// the store. When exclusive is set it also takes the process lock,
// required for anything that writes (serve, reindex, consolidate).
func openRuntime(exclusive bool) (*runtime, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var lock *store.ProcessLock
	if exclusive {
		lock = store.NewProcessLock(cfg.Storage.Path)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, coreerrors.New(coreerrors.ErrCodeStoreLocked,
				fmt.Sprintf("another memcore process holds %s", lock.Path()), nil)
		}
	}

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	ttl, err := cfg.CacheTTL()
	if err != nil {
		_ = st.Close()
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}
	qc := cache.New(cfg.Cache.Size, ttl)

	maintainer := index.NewMaintainer(st)
	service := memory.NewService(st, maintainer, qc)

	engine, err := search.NewEngine(st, qc,
		search.WithFusionWeights(search.FusionWeights{
			Exact:    cfg.Search.ExactWeight,
			Fuzzy:    cfg.Search.FuzzyWeight,
			Semantic: cfg.Search.SemanticWeight,
		}),
		search.WithTrigramBudget(cfg.Search.TrigramBudget),
	)
	if err != nil {
		_ = st.Close()
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}

	return &runtime{
		cfg:          cfg,
		store:        st,
		cache:        qc,
		index:        maintainer,
		service:      service,
		engine:       engine,
		consolidator: consolidate.NewEngine(st, maintainer, qc),
		lock:         lock,
	}, nil
}

// Close releases the store and the process lock.
func (r *runtime) Close() error {
	err := r.store.Close()
	if r.lock != nil {
		if lerr := r.lock.Unlock(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}
