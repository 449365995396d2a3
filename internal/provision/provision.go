// Package provision keeps a writable copy of the read-only bundled food
// dataset in the application's private data directory, refreshing it whenever
// a newer bundled snapshot ships.
package provision

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/config"
)

// Provisioner locates the bundled snapshot and maintains the writable copy.
type Provisioner struct {
	bundle   config.BundleConfig
	writable string
	log      *zap.Logger
}

// New builds a Provisioner for the given bundle resolution settings and
// writable target path.
func New(bundle config.BundleConfig, writablePath string) *Provisioner {
	return &Provisioner{
		bundle:   bundle,
		writable: writablePath,
		log:      zap.L().Named("provision"),
	}
}

// ResolveBundle finds the read-only bundled snapshot. It tries the asset-name
// lookup across the configured search dirs first, then the direct-path
// fallback. Returns "" when no bundle can be found; a missing bundle asset is
// never fatal to the host application.
func (p *Provisioner) ResolveBundle() string {
	if p.bundle.AssetName != "" {
		for _, dir := range p.bundle.SearchDirs {
			candidate := filepath.Join(dir, p.bundle.AssetName)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	if p.bundle.DirectPath != "" {
		if info, err := os.Stat(p.bundle.DirectPath); err == nil && !info.IsDir() {
			return p.bundle.DirectPath
		}
	}
	return ""
}

// EnsureWritable guarantees a writable dataset file path exists for the store
// to open. When the bundled snapshot differs from the writable copy in size or
// modification time the copy is replaced wholesale (delete then copy). The
// caller is expected to serialize EnsureWritable against store access; the
// brief unavailability window during replacement is acceptable because nothing
// else touches the file concurrently.
func (p *Provisioner) EnsureWritable() (string, error) {
	bundle := p.ResolveBundle()
	if bundle == "" {
		p.log.Warn("bundled dataset not found, continuing with writable copy only",
			zap.String("asset", p.bundle.AssetName),
			zap.String("fallback", p.bundle.DirectPath),
		)
		if err := os.MkdirAll(filepath.Dir(p.writable), 0o755); err != nil {
			return "", eris.Wrap(err, "provision: create data dir")
		}
		return p.writable, nil
	}

	stale, err := p.copyNeeded(bundle)
	if err != nil {
		// Comparison failed; keep whatever writable copy exists.
		p.log.Warn("bundle comparison failed", zap.Error(err))
		return p.writable, nil
	}
	if !stale {
		return p.writable, nil
	}

	if err := p.replace(bundle); err != nil {
		p.log.Warn("dataset refresh failed", zap.String("bundle", bundle), zap.Error(err))
		return p.writable, nil
	}

	p.log.Info("writable dataset refreshed from bundle", zap.String("bundle", bundle))
	return p.writable, nil
}

// copyNeeded reports whether the writable copy must be (re)created. Size and
// modification time are both compared: packaging can preserve timestamps
// across size-changing edits, so a pure time comparison is insufficient.
func (p *Provisioner) copyNeeded(bundle string) (bool, error) {
	dst, err := os.Stat(p.writable)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "provision: stat writable")
	}

	src, err := os.Stat(bundle)
	if err != nil {
		return false, eris.Wrap(err, "provision: stat bundle")
	}

	return src.Size() != dst.Size() || !src.ModTime().Equal(dst.ModTime()), nil
}

// replace removes the writable copy and recreates it from the bundle,
// preserving the bundle's modification time so the next comparison is a no-op.
func (p *Provisioner) replace(bundle string) error {
	if err := os.MkdirAll(filepath.Dir(p.writable), 0o755); err != nil {
		return eris.Wrap(err, "provision: create data dir")
	}
	if err := os.Remove(p.writable); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "provision: remove stale copy")
	}

	src, err := os.Open(bundle)
	if err != nil {
		return eris.Wrap(err, "provision: open bundle")
	}
	defer src.Close()

	dst, err := os.Create(p.writable)
	if err != nil {
		return eris.Wrap(err, "provision: create writable copy")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return eris.Wrap(err, "provision: copy bundle")
	}
	if err := dst.Close(); err != nil {
		return eris.Wrap(err, "provision: close writable copy")
	}

	info, err := os.Stat(bundle)
	if err != nil {
		return eris.Wrap(err, "provision: stat bundle")
	}
	if err := os.Chtimes(p.writable, info.ModTime(), info.ModTime()); err != nil {
		return eris.Wrap(err, "provision: set mtime")
	}
	return nil
}
