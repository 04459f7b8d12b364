// Package cmdutil provides utility functions specifically for the warehouse CLI.
package cmdutil

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/afero"

	"github.com/e3sm/warehouse/pkg/catalog"
	"github.com/e3sm/warehouse/pkg/config"
	"github.com/e3sm/warehouse/pkg/dataset"
	"github.com/e3sm/warehouse/pkg/dsspec"
	"github.com/e3sm/warehouse/pkg/results"
)

var log = logging.Logger("cmdutil")

// Warehouse is the warehouse tree and the catalog configured for it.
type Warehouse struct {
	Fs      afero.Fs
	Tree    *catalog.FS
	Catalog dataset.Catalog
}

// OpenWarehouse sets up the warehouse tree on fsys and the configured
// catalog. The tree always locates status logs; published files are looked
// up in the tree or in the object store.
func OpenWarehouse(fsys afero.Fs, cfg config.Config) (*Warehouse, error) {
	tree := catalog.NewFS(fsys, cfg.Warehouse.Base)
	tree.Ext = cfg.Catalog.Ext

	var cat dataset.Catalog = tree
	if cfg.Catalog.Kind == config.CatalogS3 {
		client, err := catalog.NewMinIOClient(cfg.Catalog.S3.ClientConfig())
		if err != nil {
			return nil, err
		}
		store := catalog.NewObjectStore(client, cfg.Catalog.S3.Bucket, cfg.Catalog.S3.Prefix)
		store.Ext = cfg.Catalog.Ext
		cat = store
		log.Debugw("using object store catalog", "endpoint", cfg.Catalog.S3.Endpoint, "bucket", cfg.Catalog.S3.Bucket)
	}

	if cfg.Catalog.CacheSize > 0 {
		cached, err := catalog.NewCached(cat, cfg.Catalog.CacheSize)
		if err != nil {
			return nil, err
		}
		cat = cached
	}
	return &Warehouse{Fs: fsys, Tree: tree, Catalog: cat}, nil
}

// OpenResults opens the results database, or returns nil if none is
// configured.
func OpenResults(ctx context.Context, cfg config.ResultsConfig) (*results.Repo, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.Dialect() == results.DialectSQLite && cfg.DSN == "" {
		// bit of a hack, ensure the dir always exists
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating results dir: %w", err)
		}
	}
	return results.Open(ctx, cfg.Dialect(), cfg.DataSourceName())
}

// LoadSpec reads the dataset spec file, or returns nil if name is empty.
func LoadSpec(fsys afero.Fs, name string) (*dsspec.Spec, error) {
	if name == "" {
		return nil, nil
	}
	return dsspec.Load(fsys, name)
}

// ReadIDs reads one dataset id per line. Blank lines and lines starting with
// '#' are skipped.
func ReadIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset ids: %w", err)
	}
	return ids, nil
}

// ReadIDsFile is [ReadIDs] on a file, with "-" meaning stdin.
func ReadIDsFile(fsys afero.Fs, name string) ([]string, error) {
	if name == "-" {
		return ReadIDs(os.Stdin)
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening dataset list: %w", err)
	}
	defer f.Close()
	return ReadIDs(f)
}
