package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/e3sm/warehouse/pkg/statuslog"
)

// FS looks datasets up in a warehouse directory tree.
type FS struct {
	Fs   afero.Fs
	Base string
	// Ext, if set, keeps only files with this extension, e.g. ".nc".
	Ext string
}

// NewFS returns a catalog of the tree rooted at base.
func NewFS(fsys afero.Fs, base string) *FS {
	return &FS{Fs: fsys, Base: base}
}

// Dir is the directory holding a dataset's versions and status log.
func (c *FS) Dir(datasetID string) string {
	return path.Join(c.Base, IDPath(datasetID))
}

// Lookup returns the paths of every regular, non-hidden file below the
// dataset's directory. A dataset with no directory has no files.
func (c *FS) Lookup(ctx context.Context, datasetID string) ([]string, error) {
	dir := c.Dir(datasetID)
	if _, err := c.Fs.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		log.Debugw("dataset directory does not exist", "dataset", datasetID, "dir", dir)
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading dataset directory %s: %w", dir, err)
	}

	var files []string
	err := afero.Walk(c.Fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			if p != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() && wanted(p, c.Ext) {
			files = append(files, filepath.ToSlash(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files of %s: %w", datasetID, err)
	}
	return files, nil
}

// Datasets returns the id of every dataset below Base that has a status log.
func (c *FS) Datasets(ctx context.Context) ([]string, error) {
	var ids []string
	err := afero.Walk(c.Fs, c.Base, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || info.Name() != statuslog.FileName {
			return nil
		}
		rel, err := filepath.Rel(c.Base, filepath.Dir(p))
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		ids = append(ids, PathID(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding datasets under %s: %w", c.Base, err)
	}
	return ids, nil
}
