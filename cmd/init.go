package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/canon"
	"github.com/sells-group/catalog-reconcile/internal/pipeline"
	"github.com/sells-group/catalog-reconcile/internal/remote"
	"github.com/sells-group/catalog-reconcile/internal/resilience"
	"github.com/sells-group/catalog-reconcile/internal/store"
)

// openSQLite opens and migrates a SQLite database, creating its directory.
func openSQLite(ctx context.Context, path string) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create %s", dir)
		}
	}
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := openSQLite(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func initManifest(ctx context.Context) (store.Store, error) {
	st, err := openSQLite(ctx, cfg.Manifest.Path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// initCanon returns the default canonicalizer, extended by the configured
// dictionary file when one is set.
func initCanon() (*canon.Canonicalizer, error) {
	path := cfg.Canon.DictionaryPath
	if path == "" {
		return canon.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open dictionary %s", path)
	}
	defer f.Close() //nolint:errcheck

	extra, err := canon.LoadDictionary(f)
	if err != nil {
		return nil, err
	}
	zap.L().Info("canonicalizer dictionary loaded", zap.String("path", path))
	return canon.New(canon.Merge(canon.DefaultDictionary(), extra)), nil
}

func initClient(fs afero.Fs, manifest store.Manifest) *remote.Client {
	r := cfg.Retry
	return remote.NewClient(remote.NewDirService(fs, cfg.Paths.MirrorDir), manifest, remote.Options{
		ManifestTTL: cfg.Manifest.TTL(),
		MinInterval: r.MinInterval,
		Retry:       resilience.FromSettings(r.MaxAttempts, r.BaseDelay, r.MaxBackoff),
	})
}

// app holds the resources a pipeline command opens.
type app struct {
	pipeline *pipeline.Pipeline
	runs     store.Store
	manifest store.Store
}

func (a *app) Close() {
	if a.runs != nil {
		a.runs.Close() //nolint:errcheck
	}
	if a.manifest != nil {
		a.manifest.Close() //nolint:errcheck
	}
}

// initApp wires the pipeline. Offline apps read only already-staged files.
func initApp(ctx context.Context, offline bool) (*app, error) {
	fs := afero.NewOsFs()
	a := &app{}

	runs, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	a.runs = runs

	var client *remote.Client
	if !offline {
		manifest, err := initManifest(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.manifest = manifest
		client = initClient(fs, manifest)
	}

	c, err := initCanon()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline, err = pipeline.New(cfg, fs, runs, client, nil, c)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
