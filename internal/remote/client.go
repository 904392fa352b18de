package remote

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/resilience"
	"github.com/sells-group/catalog-reconcile/internal/store"
)

// DefaultManifestTTL is how long a cached folder listing stays valid.
const DefaultManifestTTL = 24 * time.Hour

// Options configure a Client.
type Options struct {
	// ManifestTTL bounds the age of cached listings. Default 24h.
	ManifestTTL time.Duration
	// MinInterval spaces successive remote calls, retries included.
	MinInterval time.Duration
	// Retry is the backoff policy; zero fields take resilience defaults.
	Retry resilience.RetryConfig
	// Now is the clock stamped on new manifest entries.
	Now func() time.Time
}

// Client wraps a Service with pacing, retries and the listing manifest.
type Client struct {
	svc      Service
	manifest store.Manifest
	pacer    *resilience.Pacer
	opts     Options
}

// NewClient builds a Client. manifest may be nil to disable listing cache.
func NewClient(svc Service, manifest store.Manifest, opts Options) *Client {
	if opts.ManifestTTL <= 0 {
		opts.ManifestTTL = DefaultManifestTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		svc:      svc,
		manifest: manifest,
		pacer:    resilience.NewPacer(opts.MinInterval),
		opts:     opts,
	}
}

// ListSheets returns a folder's sheets, from the manifest when a fresh
// entry exists and from the service otherwise.
func (c *Client) ListSheets(ctx context.Context, folderID string) ([]model.Sheet, error) {
	if c.manifest != nil {
		entry, err := c.manifest.GetManifest(ctx, folderID, c.opts.ManifestTTL)
		if err != nil {
			return nil, eris.Wrap(err, "remote: read manifest")
		}
		if entry != nil {
			zap.L().Debug("manifest hit",
				zap.String("folder_id", folderID),
				zap.Int("sheets", len(entry.Sheets)),
			)
			return entry.Sheets, nil
		}
	}

	sheets, err := resilience.DoVal(ctx, c.retry("list_sheets"), func(ctx context.Context) ([]model.Sheet, error) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return c.svc.ListSheets(ctx, folderID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "remote: list sheets in %s", folderID)
	}

	if c.manifest != nil {
		entry := model.ManifestEntry{FolderID: folderID, ScannedAt: c.opts.Now().UTC(), Sheets: sheets}
		if err := c.manifest.PutManifest(ctx, entry); err != nil {
			return nil, eris.Wrap(err, "remote: write manifest")
		}
	}
	zap.L().Info("listed remote folder",
		zap.String("folder_id", folderID),
		zap.Int("sheets", len(sheets)),
	)
	return sheets, nil
}

// Download reads one tab of a sheet.
func (c *Client) Download(ctx context.Context, sheetID, tab string) ([][]string, error) {
	rows, err := resilience.DoVal(ctx, c.retry("read_tab"), func(ctx context.Context) ([][]string, error) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return c.svc.ReadTab(ctx, sheetID, tab)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "remote: download %s/%s", sheetID, tab)
	}
	return rows, nil
}

// Refresh drops the cached listing of a folder and lists it again.
func (c *Client) Refresh(ctx context.Context, folderID string) ([]model.Sheet, error) {
	if c.manifest != nil {
		if err := c.manifest.ClearManifest(ctx, folderID); err != nil {
			return nil, eris.Wrap(err, "remote: clear manifest")
		}
	}
	return c.ListSheets(ctx, folderID)
}

func (c *Client) retry(op string) resilience.RetryConfig {
	cfg := c.opts.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("remote", op)
	}
	return cfg
}
