// Package remote reads source workbooks from the spreadsheet service that
// holds the monthly exports.
package remote

import (
	"context"
	"errors"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"

	"github.com/sells-group/catalog-reconcile/internal/fetcher"
	"github.com/sells-group/catalog-reconcile/internal/model"
	"github.com/sells-group/catalog-reconcile/internal/resilience"
)

// Service lists and reads spreadsheets. Failures carrying an HTTP-style
// status should be returned as *resilience.StatusError so the client can
// tell transient from permanent ones.
type Service interface {
	ListSheets(ctx context.Context, folderID string) ([]model.Sheet, error)
	ReadTab(ctx context.Context, sheetID, tab string) ([][]string, error)
}

// DirService serves a local mirror of the remote drive: each folder ID is
// a directory under root and each .xlsx file in it is one sheet.
type DirService struct {
	fs   afero.Fs
	root string
}

var _ Service = (*DirService)(nil)

// NewDirService returns a Service over root on fs.
func NewDirService(fs afero.Fs, root string) *DirService {
	return &DirService{fs: fs, root: root}
}

// ListSheets returns the workbooks in a folder sorted by name. A missing
// folder is a 404.
func (d *DirService) ListSheets(ctx context.Context, folderID string) ([]model.Sheet, error) {
	dir := path.Join(d.root, folderID)
	infos, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resilience.NewStatusError(404, eris.Errorf("folder %s not found", folderID))
		}
		return nil, eris.Wrapf(err, "remote: list %s", folderID)
	}

	var sheets []model.Sheet
	for _, fi := range infos {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "remote: list cancelled")
		}
		if fi.IsDir() || !strings.EqualFold(path.Ext(fi.Name()), ".xlsx") || strings.HasPrefix(fi.Name(), "~$") {
			continue
		}
		id := path.Join(folderID, fi.Name())
		data, err := afero.ReadFile(d.fs, path.Join(d.root, id))
		if err != nil {
			return nil, eris.Wrapf(err, "remote: read %s", id)
		}
		tabs, err := fetcher.SheetNamesBytes(data)
		if err != nil {
			return nil, eris.Wrapf(err, "remote: open %s", id)
		}
		sheets = append(sheets, model.Sheet{
			ID:         id,
			Name:       strings.TrimSuffix(fi.Name(), path.Ext(fi.Name())),
			ModifiedAt: fi.ModTime().UTC(),
			Tabs:       tabs,
		})
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Name < sheets[j].Name })
	return sheets, nil
}

// ReadTab returns every row of one tab. Missing sheets and tabs are 404s.
func (d *DirService) ReadTab(_ context.Context, sheetID, tab string) ([][]string, error) {
	data, err := afero.ReadFile(d.fs, path.Join(d.root, sheetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resilience.NewStatusError(404, eris.Errorf("sheet %s not found", sheetID))
		}
		return nil, eris.Wrapf(err, "remote: read %s", sheetID)
	}
	rows, err := fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{SheetName: tab})
	if err != nil {
		if errors.Is(err, fetcher.ErrSheetNotFound) {
			return nil, resilience.NewStatusError(404, err)
		}
		return nil, eris.Wrapf(err, "remote: read %s/%s", sheetID, tab)
	}
	return rows, nil
}
