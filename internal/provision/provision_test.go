package provision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/config"
)

func writeBundle(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// --- Bundle resolution ---

func TestResolveBundle_AssetName(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	want := filepath.Join(dirB, "foods.db")
	writeBundle(t, want, "snapshot")

	p := New(config.BundleConfig{
		AssetName:  "foods.db",
		SearchDirs: []string{dirA, dirB},
	}, filepath.Join(t.TempDir(), "foods.db"))

	assert.Equal(t, want, p.ResolveBundle())
}

func TestResolveBundle_SearchOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	first := filepath.Join(dirA, "foods.db")
	writeBundle(t, first, "a")
	writeBundle(t, filepath.Join(dirB, "foods.db"), "b")

	p := New(config.BundleConfig{
		AssetName:  "foods.db",
		SearchDirs: []string{dirA, dirB},
	}, filepath.Join(t.TempDir(), "foods.db"))

	// Earlier search dirs win.
	assert.Equal(t, first, p.ResolveBundle())
}

func TestResolveBundle_DirectPathFallback(t *testing.T) {
	direct := filepath.Join(t.TempDir(), "bundled.db")
	writeBundle(t, direct, "snapshot")

	p := New(config.BundleConfig{
		AssetName:  "foods.db",
		SearchDirs: []string{t.TempDir()},
		DirectPath: direct,
	}, filepath.Join(t.TempDir(), "foods.db"))

	assert.Equal(t, direct, p.ResolveBundle())
}

func TestResolveBundle_Missing(t *testing.T) {
	p := New(config.BundleConfig{
		AssetName:  "foods.db",
		SearchDirs: []string{t.TempDir()},
		DirectPath: filepath.Join(t.TempDir(), "absent.db"),
	}, filepath.Join(t.TempDir(), "foods.db"))

	assert.Empty(t, p.ResolveBundle())
}

func TestResolveBundle_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "foods.db"), 0o755))

	p := New(config.BundleConfig{
		AssetName:  "foods.db",
		SearchDirs: []string{dir},
	}, filepath.Join(t.TempDir(), "foods.db"))

	assert.Empty(t, p.ResolveBundle())
}

// --- EnsureWritable ---

func TestEnsureWritable_FirstCopy(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "foods.db")
	writeBundle(t, bundle, "snapshot-v1")
	writable := filepath.Join(t.TempDir(), "data", "foods.db")

	p := New(config.BundleConfig{DirectPath: bundle}, writable)

	got, err := p.EnsureWritable()
	require.NoError(t, err)
	assert.Equal(t, writable, got)

	data, err := os.ReadFile(writable)
	require.NoError(t, err)
	assert.Equal(t, "snapshot-v1", string(data))
}

func TestEnsureWritable_Idempotent(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "foods.db")
	writeBundle(t, bundle, "snapshot-v1")
	writable := filepath.Join(t.TempDir(), "foods.db")

	p := New(config.BundleConfig{DirectPath: bundle}, writable)

	_, err := p.EnsureWritable()
	require.NoError(t, err)

	stale, err := p.copyNeeded(bundle)
	require.NoError(t, err)
	assert.False(t, stale, "unchanged bundle must not trigger another copy")
}

func TestEnsureWritable_RefreshOnSizeChange(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "foods.db")
	writeBundle(t, bundle, "snapshot-v1")
	writable := filepath.Join(t.TempDir(), "foods.db")

	p := New(config.BundleConfig{DirectPath: bundle}, writable)
	_, err := p.EnsureWritable()
	require.NoError(t, err)

	// Ship a bigger snapshot but keep the timestamp, as packaging can.
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	writeBundle(t, bundle, "snapshot-v2-larger")
	require.NoError(t, os.Chtimes(bundle, mtime, mtime))
	require.NoError(t, os.Chtimes(writable, mtime, mtime))

	_, err = p.EnsureWritable()
	require.NoError(t, err)

	data, err := os.ReadFile(writable)
	require.NoError(t, err)
	assert.Equal(t, "snapshot-v2-larger", string(data))

	// The refreshed copy carries the bundle's mtime so the next pass is a no-op.
	info, err := os.Stat(writable)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))

	stale, err := p.copyNeeded(bundle)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestEnsureWritable_RefreshOnMtimeChange(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "foods.db")
	writeBundle(t, bundle, "snapshot-v1")
	writable := filepath.Join(t.TempDir(), "foods.db")

	p := New(config.BundleConfig{DirectPath: bundle}, writable)
	_, err := p.EnsureWritable()
	require.NoError(t, err)

	// Same size, newer timestamp.
	newer := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(bundle, newer, newer))

	stale, err := p.copyNeeded(bundle)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestEnsureWritable_MissingBundleIsSoft(t *testing.T) {
	writable := filepath.Join(t.TempDir(), "data", "foods.db")

	p := New(config.BundleConfig{
		AssetName:  "foods.db",
		SearchDirs: []string{t.TempDir()},
	}, writable)

	got, err := p.EnsureWritable()
	require.NoError(t, err)
	assert.Equal(t, writable, got)

	// The parent dir exists so the store can create a fresh database there.
	info, err := os.Stat(filepath.Dir(writable))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
