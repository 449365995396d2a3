package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/config"
	"github.com/akeen90/nutrasafe-beta-sub013/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e := New(&config.Config{
		Store:  config.StoreConfig{DataDir: dir, FileName: "foods.db"},
		Bundle: config.BundleConfig{AssetName: "absent.db", SearchDirs: []string{dir}},
		Search: config.SearchConfig{DefaultLimit: 20, OverfetchFactor: 2},
	})
	t.Cleanup(e.Close)
	return e
}

func seedEngine(t *testing.T, e *Engine, foods ...model.Food) {
	t.Helper()
	for _, f := range foods {
		_, err := e.Insert(context.Background(), f)
		require.NoError(t, err)
	}
}

// --- Lookup paths ---

func TestEngine_SearchRanked(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e,
		model.Food{ID: "loaf", Name: "Banana Loaf", Brand: "Soreen"},
		model.Food{ID: "plain", Name: "Banana (small)", Brand: "Generic"},
	)

	results, err := e.Search(context.Background(), "banana", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "plain", results[0].ID)
	assert.Equal(t, "loaf", results[1].ID)
}

func TestEngine_Search_DefaultLimit(t *testing.T) {
	e := newTestEngine(t)
	e.cfg.Search.DefaultLimit = 3
	for i := 0; i < 5; i++ {
		seedEngine(t, e, model.Food{Name: fmt.Sprintf("Banana %d", i)})
	}

	results, err := e.Search(context.Background(), "banana", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestEngine_DeepSearchByIngredient(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedEngine(t, e, model.Food{ID: "bar", Name: "Fruit Bar", Brand: "Nakd",
		Ingredients: []string{"Dates", "Cashews", "Raisins"}})

	require.NoError(t, e.RebuildIndex(ctx))

	// The ranked path cannot reach ingredient text; the index match can.
	ranked, err := e.Search(ctx, "cashews", 10)
	require.NoError(t, err)
	assert.Empty(t, ranked)

	deep, err := e.DeepSearch(ctx, "cashews", 10)
	require.NoError(t, err)
	require.Len(t, deep, 1)
	assert.Equal(t, "bar", deep[0].ID)
}

func TestEngine_DeepSearch_UnbuiltIndex(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e, model.Food{Name: "Banana"})

	deep, err := e.DeepSearch(context.Background(), "banana", 10)
	require.NoError(t, err)
	assert.Empty(t, deep)
}

func TestEngine_SearchByBarcode(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e, model.Food{ID: "f1", Name: "Wine Gums", Barcode: "5000168001234"})

	got, err := e.SearchByBarcode(context.Background(), "5000168001234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "f1", got.ID)

	missing, err := e.SearchByBarcode(context.Background(), "0000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEngine_SearchByID(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e, model.Food{ID: "f1", Name: "Banana"})

	got, err := e.SearchByID(context.Background(), "f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Banana", got.Name)

	missing, err := e.SearchByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEngine_Stats(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e,
		model.Food{Name: "Banana", Brand: "Generic", Verified: true},
		model.Food{Name: "Apple", Barcode: "12345"},
	)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Verified)
	assert.Equal(t, 1, stats.WithBarcodes)
}

func TestEngine_Delete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedEngine(t, e, model.Food{ID: "f1", Name: "Banana"})

	require.NoError(t, e.Delete(ctx, "f1"))

	got, err := e.SearchByID(ctx, "f1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, e.Delete(ctx, "f1"))
}

// --- Concurrency ---

func TestEngine_ConcurrentSearches(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e, model.Food{ID: "f1", Name: "Banana", Brand: "Generic"})

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			results, err := e.Search(context.Background(), "banana", 10)
			if err != nil {
				return err
			}
			if len(results) != 1 || results[0].ID != "f1" {
				return fmt.Errorf("unexpected results: %+v", results)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestEngine_ConcurrentFirstCalls(t *testing.T) {
	// All callers race the lazy init; every one must see a usable engine.
	e := newTestEngine(t)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := e.Search(context.Background(), "anything", 5)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.True(t, e.inited.Load())
}

// --- Deferred full-text rebuild ---

func TestEngine_BackgroundReindexPopulates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedEngine(t, e, model.Food{Name: "Banana", Ingredients: []string{"Banana"}})

	// First search triggers the detached rebuild.
	_, err := e.Search(ctx, "banana", 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := e.IndexSize(ctx)
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEngine_ReindexTriggersOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedEngine(t, e, model.Food{Name: "Banana"})

	for i := 0; i < 3; i++ {
		_, err := e.Search(ctx, "banana", 10)
		require.NoError(t, err)
	}
	assert.True(t, e.reindexStarted.Load())
}

func TestEngine_RebuildIndexSynchronous(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	seedEngine(t, e,
		model.Food{Name: "Banana"},
		model.Food{Name: "Apple"},
	)

	require.NoError(t, e.RebuildIndex(ctx))

	n, err := e.IndexSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// --- Initialization failure ---

func TestEngine_InitFailureIsRetryable(t *testing.T) {
	dir := t.TempDir()
	// A directory at the dataset path makes the store open fail hard.
	blocked := filepath.Join(dir, "foods.db")
	require.NoError(t, os.MkdirAll(blocked, 0o755))

	e := New(&config.Config{
		Store:  config.StoreConfig{DataDir: dir, FileName: "foods.db"},
		Search: config.SearchConfig{DefaultLimit: 20},
	})
	t.Cleanup(e.Close)

	_, err := e.Search(context.Background(), "banana", 10)
	require.Error(t, err)
	assert.False(t, e.inited.Load())

	// Clear the obstruction; the next call initializes cleanly.
	require.NoError(t, os.Remove(blocked))

	_, err = e.Search(context.Background(), "banana", 10)
	require.NoError(t, err)
	assert.True(t, e.inited.Load())
}

// --- Shutdown ---

func TestEngine_CloseRejectsLaterOps(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e, model.Food{Name: "Banana"})

	e.Close()

	_, err := e.Search(context.Background(), "banana", 10)
	require.Error(t, err)

	// The rebuild dispatches strictly after a completed search; a search
	// that never executed must not have triggered it.
	assert.False(t, e.reindexStarted.Load())
}

func TestEngine_CloseIdempotent(t *testing.T) {
	e := newTestEngine(t)
	e.Close()
	e.Close()
}
