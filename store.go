package batchlearn

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/blobstore/minio"
	"github.com/hupe1980/batchlearn/blobstore/s3"
	"github.com/hupe1980/batchlearn/internal/cache"
)

// Storage schemes understood by ParseLocation.
const (
	SchemeLocal     = "file"
	SchemeS3        = "s3"
	SchemeMinio     = "minio"      // TLS
	SchemeMinioHTTP = "minio+http" // plain HTTP, for local test servers
)

// cacheBlockSize is the block size of the cache in front of remote stores.
const cacheBlockSize = 1 << 20

// Location is a parsed dataset or output path.
type Location struct {
	Scheme   string
	Endpoint string // minio only
	Bucket   string // remote only
	Root     string // local directory or remote key prefix
	Name     string // blob name relative to Root
}

// String returns the location in the form accepted by ParseLocation.
func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		return SchemeS3 + "://" + path.Join(l.Bucket, l.Root, l.Name)
	case SchemeMinio, SchemeMinioHTTP:
		return l.Scheme + "://" + path.Join(l.Endpoint, l.Bucket, l.Root, l.Name)
	default:
		return filepath.Join(l.Root, l.Name)
	}
}

// storeKey identifies the store a location lives in.
func (l Location) storeKey() string {
	return l.Scheme + "|" + l.Endpoint + "|" + l.Bucket + "|" + l.Root
}

// ParseLocation splits a path into the store it lives in and the blob name.
//
//	data/train                          local directory "data", name "train"
//	s3://bucket/prefix/train            bucket "bucket", prefix "prefix"
//	minio://host:9000/bucket/train      endpoint "host:9000", bucket "bucket"
func ParseLocation(p string) (Location, error) {
	scheme, rest, ok := strings.Cut(p, "://")
	if !ok {
		if p == "" {
			return Location{}, fmt.Errorf("%w: empty path", ErrInvalidConfig)
		}
		return Location{
			Scheme: SchemeLocal,
			Root:   filepath.Dir(p),
			Name:   filepath.Base(p),
		}, nil
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	loc := Location{Scheme: scheme}

	switch scheme {
	case SchemeLocal:
		return ParseLocation(rest)
	case SchemeS3:
		if len(parts) < 2 || parts[0] == "" {
			return Location{}, fmt.Errorf("%w: expected s3://bucket/[prefix/]name, got %q", ErrInvalidConfig, p)
		}
		loc.Bucket = parts[0]
		parts = parts[1:]
	case SchemeMinio, SchemeMinioHTTP:
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			return Location{}, fmt.Errorf("%w: expected %s://endpoint/bucket/[prefix/]name, got %q", ErrInvalidConfig, scheme, p)
		}
		loc.Endpoint = parts[0]
		loc.Bucket = parts[1]
		parts = parts[2:]
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfig, scheme)
	}

	loc.Name = parts[len(parts)-1]
	loc.Root = strings.Join(parts[:len(parts)-1], "/")
	return loc, nil
}

// StoreResolver maps a location to the store holding it.
type StoreResolver func(ctx context.Context, loc Location) (blobstore.BlobStore, error)

// storeSet opens each distinct store once per run, so datasets in the same
// directory or bucket prefix share one client and one block cache.
type storeSet struct {
	mu      sync.Mutex
	cfg     *Config
	resolve StoreResolver
	stores  map[string]blobstore.BlobStore
}

func newStoreSet(cfg *Config, resolve StoreResolver) *storeSet {
	s := &storeSet{
		cfg:     cfg,
		resolve: resolve,
		stores:  make(map[string]blobstore.BlobStore),
	}
	if s.resolve == nil {
		s.resolve = s.open
	}
	return s
}

// get returns the store for p and the blob name inside it.
func (s *storeSet) get(ctx context.Context, p string) (blobstore.BlobStore, string, error) {
	loc, err := ParseLocation(p)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := loc.storeKey()
	if st, ok := s.stores[key]; ok {
		return st, loc.Name, nil
	}
	st, err := s.resolve(ctx, loc)
	if err != nil {
		return nil, "", fmt.Errorf("open store for %s: %w", loc, err)
	}
	s.stores[key] = st
	return st, loc.Name, nil
}

// open is the default resolver.
func (s *storeSet) open(ctx context.Context, loc Location) (blobstore.BlobStore, error) {
	var (
		st  blobstore.BlobStore
		err error
	)
	switch loc.Scheme {
	case SchemeS3:
		st, err = s3.New(ctx, loc.Bucket, s3.WithPrefix(loc.Root))
	case SchemeMinio, SchemeMinioHTTP:
		st, err = minio.New(loc.Endpoint, loc.Bucket,
			minio.WithPrefix(loc.Root),
			minio.WithSecure(loc.Scheme == SchemeMinio),
		)
	default:
		var opts []blobstore.LocalOption
		if s.cfg.DisableMmap {
			opts = append(opts, blobstore.WithoutMmap())
		}
		return blobstore.NewLocalStore(loc.Root, opts...), nil
	}
	if err != nil {
		return nil, err
	}

	if s.cfg.CacheBytes > 0 {
		// Bounded by CacheBytes alone; the batch memory budget is not shared.
		c := cache.NewShardedLRUBlockCache(s.cfg.CacheBytes, cacheBlockSize)
		st = blobstore.NewCachingStore(st, c, cacheBlockSize)
	}
	return st, nil
}

// OpenStore opens the store holding p with the default resolver and returns
// it together with the blob name inside it.
func OpenStore(ctx context.Context, p string, cfg Config) (blobstore.BlobStore, string, error) {
	return newStoreSet(&cfg, nil).get(ctx, p)
}
