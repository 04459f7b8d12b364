// Package catalog finds the files published for a dataset, in a warehouse
// directory tree or in an object store bucket.
//
// Both layouts put a dataset's files under its id with dots turned into path
// separators, with one subdirectory per version.
package catalog

import (
	"path"
	"strings"

	logging "github.com/ipfs/go-log/v2"

	"github.com/e3sm/warehouse/pkg/dataset"
	"github.com/e3sm/warehouse/pkg/statuslog"
)

var log = logging.Logger("pkg/catalog")

var (
	_ dataset.Catalog = (*FS)(nil)
	_ dataset.Catalog = (*ObjectStore)(nil)
	_ dataset.Catalog = (*Cached)(nil)
)

// IDPath is the relative path of a dataset's directory.
func IDPath(datasetID string) string {
	return strings.ReplaceAll(datasetID, ".", "/")
}

// PathID is the inverse of [IDPath].
func PathID(rel string) string {
	return strings.ReplaceAll(strings.Trim(rel, "/"), "/", ".")
}

// wanted reports whether a file belongs in a lookup result. Hidden files,
// including the status log, never do.
func wanted(name, ext string) bool {
	base := path.Base(name)
	if strings.HasPrefix(base, ".") || base == statuslog.FileName {
		return false
	}
	return ext == "" || strings.HasSuffix(base, ext)
}
