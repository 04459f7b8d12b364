package catalog

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/e3sm/warehouse/pkg/dataset"
)

// DefaultCacheSize is the number of datasets [NewCached] remembers when given
// a size of zero.
const DefaultCacheSize = 1024

// Cached remembers the files of datasets that have been published. Empty
// results are not cached, since the dataset may appear at any time.
type Cached struct {
	inner dataset.Catalog
	cache *lru.Cache[string, []string]
}

func NewCached(c dataset.Catalog, size int) (*Cached, error) {
	if size == 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("creating catalog cache: %w", err)
	}
	return &Cached{inner: c, cache: cache}, nil
}

func (c *Cached) Lookup(ctx context.Context, datasetID string) ([]string, error) {
	if files, ok := c.cache.Get(datasetID); ok {
		return slices.Clone(files), nil
	}
	files, err := c.inner.Lookup(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		c.cache.Add(datasetID, slices.Clone(files))
	}
	return files, nil
}

// Purge forgets everything.
func (c *Cached) Purge() {
	c.cache.Purge()
}
