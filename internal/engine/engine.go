// Package engine exposes the public food query API. All storage access is
// serialized through a single owning goroutine (the access actor): the
// underlying SQLite handle has no concurrency guarantee of its own, so at
// most one storage operation is ever in flight and concurrent callers queue
// in FIFO arrival order.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/config"
	"github.com/akeen90/nutrasafe-beta-sub013/internal/model"
	"github.com/akeen90/nutrasafe-beta-sub013/internal/provision"
	"github.com/akeen90/nutrasafe-beta-sub013/internal/store"
)

// ErrClosed is returned for operations submitted after Close.
var ErrClosed = eris.New("engine: closed")

// Engine is the concurrency-safe facade over the embedded food store.
type Engine struct {
	cfg *config.Config
	log *zap.Logger

	ops     chan func()
	quit    chan struct{}
	stopped chan struct{}
	closer  sync.Once

	// Lazy one-time initialization: the boolean short-circuits repeat calls,
	// the singleflight group collapses concurrent first calls. A failed init
	// is retried on the next call rather than cached, so a missing dataset is
	// recoverable on a later attempt.
	inited  atomic.Bool
	initsfl singleflight.Group

	// One-shot full-text rebuild guard for the process lifetime.
	reindexStarted atomic.Bool

	// st is owned by the actor goroutine; no other goroutine touches it
	// between Start and loop exit.
	st *store.SQLite
}

// New builds an Engine and starts its actor loop. The store is not opened
// until the first operation arrives.
func New(cfg *config.Config) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     zap.L().Named("engine"),
		ops:     make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case fn := <-e.ops:
			fn()
		case <-e.quit:
			if e.st != nil {
				if err := e.st.Close(); err != nil {
					e.log.Warn("store close failed", zap.Error(err))
				}
			}
			return
		}
	}
}

// Close shuts the actor down and releases the store handle. Operations
// already queued may be abandoned.
func (e *Engine) Close() {
	e.closer.Do(func() { close(e.quit) })
	<-e.stopped
}

// submit queues fn onto the actor and waits for completion. A cancelled
// context abandons the wait but not the queued operation; operations are not
// separately cancellable once accepted.
func (e *Engine) submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case e.ops <- wrapped:
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "engine: submit")
	}
	select {
	case <-done:
		return nil
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "engine: wait")
	}
}

// ensureInit performs the one-time provision → open → schema → diagnostic
// sequence. Every public entry point gates on it; after the first success the
// boolean flag short-circuits without suspension.
func (e *Engine) ensureInit(ctx context.Context) error {
	if e.inited.Load() {
		return nil
	}
	_, err, _ := e.initsfl.Do("init", func() (any, error) {
		if e.inited.Load() {
			return nil, nil
		}
		var initErr error
		// Init runs on the actor so provisioning's file copy can never
		// interleave with statement execution on the same file.
		if err := e.submit(context.Background(), func() { initErr = e.initLocked(ctx) }); err != nil {
			return nil, err
		}
		if initErr != nil {
			return nil, initErr
		}
		e.inited.Store(true)
		return nil, nil
	})
	return err
}

// initLocked runs inside the actor goroutine.
func (e *Engine) initLocked(ctx context.Context) error {
	prov := provision.New(e.cfg.Bundle, e.cfg.Store.WritablePath())
	path, err := prov.EnsureWritable()
	if err != nil {
		// Provisioning failures are soft; the store may still open fresh.
		e.log.Warn("dataset provisioning failed", zap.Error(err))
		path = e.cfg.Store.WritablePath()
	}

	st, err := store.Open(path)
	if err != nil {
		// The one hard initialization failure: no usable store file at all.
		return eris.Wrapf(err, "engine: open store %s", path)
	}

	rank := store.DefaultRankConfig()
	if p := e.cfg.Search.RankConfigPath; p != "" {
		if rc, err := store.LoadRankConfig(p); err != nil {
			e.log.Warn("rank config load failed, using defaults", zap.String("path", p), zap.Error(err))
		} else {
			rank = rc
		}
	}
	st.SetRankConfig(rank)
	st.SetOverfetch(e.cfg.Search.OverfetchFactor)

	st.EnsureSchema(ctx)

	if n, err := st.CountFoods(ctx); err != nil {
		e.log.Warn("dataset count failed", zap.Error(err))
	} else if n == 0 {
		e.log.Warn("food dataset is empty; run the import pipeline to populate it",
			zap.String("path", path))
	} else {
		e.log.Info("food dataset ready", zap.String("path", path), zap.Int("foods", n))
	}

	e.st = st
	return nil
}

// Search runs the ranked free-text search. Query failures are logged and
// collapse to an empty result: search backs a live-typing UI and must never
// propagate a hard failure to the caller.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]model.FoodSearchResult, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.cfg.Search.DefaultLimit
	}

	var results []model.FoodSearchResult
	err := e.submit(ctx, func() {
		var sErr error
		results, sErr = e.st.Search(ctx, query, limit)
		if sErr != nil {
			e.log.Error("search failed", zap.String("query", query), zap.Error(sErr))
			results = nil
		}
	})
	if err != nil {
		return nil, err
	}

	// First search of the process triggers the deferred full-text rebuild.
	// Dispatched only after the triggering search has completed, so that
	// search can never end up queued behind its own rebuild.
	if e.reindexStarted.CompareAndSwap(false, true) {
		go e.backgroundReindex()
	}
	return results, nil
}

// DeepSearch resolves foods through the full-text shadow index, matching
// name, brand, and ingredient text. Results follow the index's match order,
// not the ranked tiers, and a never-built or stale index simply yields fewer
// rows. Like Search it is best-effort: match failures (including malformed
// match syntax) log and collapse to empty.
func (e *Engine) DeepSearch(ctx context.Context, query string, limit int) ([]model.FoodSearchResult, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.cfg.Search.DefaultLimit
	}
	var results []model.FoodSearchResult
	err := e.submit(ctx, func() {
		ids, mErr := e.st.MatchSearchIndex(ctx, query, limit)
		if mErr != nil {
			e.log.Error("index match failed", zap.String("query", query), zap.Error(mErr))
			return
		}
		for _, id := range ids {
			r, gErr := e.st.GetFood(ctx, id)
			if gErr != nil {
				e.log.Error("id lookup failed", zap.String("id", id), zap.Error(gErr))
				continue
			}
			if r != nil {
				results = append(results, *r)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SearchByBarcode resolves an exact barcode. Returns nil without error when
// no record matches or the lookup fails.
func (e *Engine) SearchByBarcode(ctx context.Context, code string) (*model.FoodSearchResult, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}
	var result *model.FoodSearchResult
	err := e.submit(ctx, func() {
		var sErr error
		result, sErr = e.st.GetFoodByBarcode(ctx, code)
		if sErr != nil {
			e.log.Error("barcode lookup failed", zap.String("barcode", code), zap.Error(sErr))
			result = nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchByID resolves an exact identifier. Returns nil without error when no
// record matches or the lookup fails.
func (e *Engine) SearchByID(ctx context.Context, id string) (*model.FoodSearchResult, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}
	var result *model.FoodSearchResult
	err := e.submit(ctx, func() {
		var sErr error
		result, sErr = e.st.GetFood(ctx, id)
		if sErr != nil {
			e.log.Error("id lookup failed", zap.String("id", id), zap.Error(sErr))
			result = nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stats returns the operational dataset aggregates.
func (e *Engine) Stats(ctx context.Context) (model.FoodStats, error) {
	var st model.FoodStats
	if err := e.ensureInit(ctx); err != nil {
		return st, err
	}
	var sErr error
	if err := e.submit(ctx, func() { st, sErr = e.st.Stats(ctx) }); err != nil {
		return st, err
	}
	return st, sErr
}

// IndexSize reports the current full-text shadow row count.
func (e *Engine) IndexSize(ctx context.Context) (int, error) {
	if err := e.ensureInit(ctx); err != nil {
		return 0, err
	}
	var n int
	var sErr error
	if err := e.submit(ctx, func() { n, sErr = e.st.SearchIndexSize(ctx) }); err != nil {
		return 0, err
	}
	return n, sErr
}

// RebuildIndex forces a synchronous full-text rebuild, for the ops CLI.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	if err := e.ensureInit(ctx); err != nil {
		return err
	}
	e.reindexStarted.Store(true)
	var sErr error
	if err := e.submit(ctx, func() { sErr = e.st.RebuildSearchIndex(ctx) }); err != nil {
		return err
	}
	return sErr
}

// Insert writes a food record through the actor. Used by the import producer
// and the dormant ingredient/additive population path.
func (e *Engine) Insert(ctx context.Context, f model.Food) (string, error) {
	if err := e.ensureInit(ctx); err != nil {
		return "", err
	}
	var id string
	var sErr error
	if err := e.submit(ctx, func() { id, sErr = e.st.InsertFood(ctx, f) }); err != nil {
		return "", err
	}
	return id, sErr
}

// Delete removes a food record and its cascading children through the actor.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.ensureInit(ctx); err != nil {
		return err
	}
	var sErr error
	if err := e.submit(ctx, func() { sErr = e.st.DeleteFood(ctx, id) }); err != nil {
		return err
	}
	return sErr
}

// backgroundReindex runs the one-shot deferred rebuild. Failures leave the
// shadow table stale or empty, which the ranked path tolerates.
func (e *Engine) backgroundReindex() {
	ctx := context.Background()
	err := e.submit(ctx, func() {
		if rErr := e.st.RebuildSearchIndex(ctx); rErr != nil {
			e.log.Warn("deferred full-text rebuild failed", zap.Error(rErr))
		} else {
			e.log.Info("full-text shadow index rebuilt")
		}
	})
	if err != nil && !eris.Is(err, ErrClosed) {
		e.log.Warn("deferred full-text rebuild not scheduled", zap.Error(err))
	}
}
