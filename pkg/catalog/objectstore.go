package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ObjectLister is the part of [minio.Client] used by [ObjectStore].
type ObjectLister interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

var _ ObjectLister = (*minio.Client)(nil)

// S3Config holds the connection settings for an S3 compatible store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// NewMinIOClient connects to an S3 compatible store with static credentials.
// The endpoint may be a bare host or a URL; an https URL turns on TLS.
func NewMinIOClient(cfg S3Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid object store endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = useSSL || u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    useSSL,
		Region:    cfg.Region,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return client, nil
}

// ObjectStore looks datasets up in a bucket, under an optional key prefix.
type ObjectStore struct {
	client ObjectLister
	bucket string
	prefix string
	// Ext, if set, keeps only objects with this extension, e.g. ".nc".
	Ext string
}

func NewObjectStore(client ObjectLister, bucket, prefix string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Lookup returns the keys of every non-hidden object under the dataset's
// prefix. Listings are not retried. A store that refuses the listing (403 or
// 404) usually points at a wrong bucket or credentials, so that is logged too.
func (c *ObjectStore) Lookup(ctx context.Context, datasetID string) ([]string, error) {
	prefix := path.Join(c.prefix, IDPath(datasetID)) + "/"

	var keys []string
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			if resp := minio.ToErrorResponse(obj.Err); resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
				log.Warnw("object store refused listing", "bucket", c.bucket, "code", resp.Code)
			}
			return nil, fmt.Errorf("listing objects of %s in bucket %s: %w", datasetID, c.bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || !wanted(obj.Key, c.Ext) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}
