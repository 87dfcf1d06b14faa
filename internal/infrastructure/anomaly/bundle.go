package anomaly

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// BundleVersion is the serialization version of model bundles. Loading a
// bundle with a different version reports ModelUnavailable.
const BundleVersion = "1"

// ModelBundle is the serialized pre-trained detector artifact: the fitted
// isolation forest plus the standardization state it was trained with. A
// loaded bundle is immutable shared state; concurrent scoring calls read it
// freely and nothing may mutate it.
type ModelBundle struct {
	Version      string           `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	FeatureNames []string         `json:"feature_names"`
	Scaler       *Standardizer    `json:"scaler"`
	Forest       *IsolationForest `json:"forest"`
}

// Compatible reports whether the bundle can score the current feature set.
func (b *ModelBundle) Compatible(featureNames []string) bool {
	if b.Version != BundleVersion || b.Scaler == nil || b.Forest == nil || !b.Forest.Fitted() {
		return false
	}
	if len(b.FeatureNames) != len(featureNames) {
		return false
	}
	for i, name := range featureNames {
		if b.FeatureNames[i] != name {
			return false
		}
	}
	return true
}

// LoadBundle reads a bundle from disk. A missing or malformed file reports
// ModelUnavailable; callers fall back to an on-demand fit.
func LoadBundle(path string) (*ModelBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrModelUnavailable(err.Error())
	}
	var bundle ModelBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.ErrModelUnavailable("malformed bundle: " + err.Error())
	}
	if !bundle.Compatible(models.FeatureNames()) {
		return nil, errors.ErrModelUnavailable("bundle incompatible with current feature set")
	}
	return &bundle, nil
}

// SaveBundle writes a bundle to disk.
func SaveBundle(path string, bundle *ModelBundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "marshal bundle")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ErrModelUnavailable("write bundle: " + err.Error())
	}
	return nil
}

// BundleProvider holds the active pre-trained bundle and hot-reloads it when
// the artifact file changes on disk. Readers get an immutable snapshot;
// absence of a bundle is not fatal.
type BundleProvider struct {
	path    string
	log     logger.Logger
	current atomic.Pointer[ModelBundle]
}

// NewBundleProvider loads the artifact at path if present. A missing or
// incompatible artifact only logs a warning; scoring falls back to on-demand
// fits until a valid bundle appears.
func NewBundleProvider(ctx context.Context, path string, log logger.Logger) *BundleProvider {
	p := &BundleProvider{path: path, log: log.WithComponent("model_bundle")}
	if path == "" {
		return p
	}
	if bundle, err := LoadBundle(path); err != nil {
		p.log.Warn(ctx, "pre-trained bundle unavailable, scoring will fit on demand",
			logger.String("path", path), logger.String("reason", err.Error()))
	} else {
		p.current.Store(bundle)
		p.log.Info(ctx, "pre-trained bundle loaded",
			logger.String("path", path),
			logger.Int("trees", bundle.Forest.NumTrees))
	}
	return p
}

// Current returns the active bundle, or nil when none is loaded.
func (p *BundleProvider) Current() *ModelBundle {
	return p.current.Load()
}

// Watch reloads the bundle whenever its file is rewritten. Blocks until the
// context is cancelled; callers run it in a goroutine.
func (p *BundleProvider) Watch(ctx context.Context) error {
	if p.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "create bundle watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return errors.ErrModelUnavailable("watch bundle dir: " + err.Error())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != p.path || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			bundle, err := LoadBundle(p.path)
			if err != nil {
				p.log.Warn(ctx, "bundle reload failed", logger.String("reason", err.Error()))
				continue
			}
			p.current.Store(bundle)
			p.log.Info(ctx, "bundle reloaded", logger.String("path", p.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Warn(ctx, "bundle watcher error", logger.String("error", err.Error()))
		}
	}
}
