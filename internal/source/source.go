// Package source lists and opens scenario files from a local directory or
// an S3 prefix.
package source

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNoFiles = errors.New("no files found for schema")

type Source interface {
	// List returns the names of the files whose base name starts with
	// prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Location() string
}

// Match lists the files for a schema prefix and fails with ErrNoFiles when
// there are none.
func Match(ctx context.Context, src Source, prefix string) ([]string, error) {
	names, err := src.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s*", ErrNoFiles, location(src, prefix))
	}
	return names, nil
}

func location(src Source, prefix string) string {
	loc := src.Location()
	if strings.HasSuffix(loc, "/") {
		return loc + prefix
	}
	return loc + string(filepath.Separator) + prefix
}

// Dir is a local directory of scenario files.
type Dir struct {
	Path string
}

func (d Dir) Location() string {
	abs, err := filepath.Abs(d.Path)
	if err != nil {
		return d.Path
	}
	return abs
}

func (d Dir) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.Path, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d Dir) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Path, name))
	if err != nil {
		return nil, err
	}
	return maybeGunzip(name, f)
}

// Parse picks the source for a location: s3://bucket/prefix or a local path.
func Parse(location string, s3api S3API) (Source, error) {
	if strings.HasPrefix(location, "s3://") {
		if s3api == nil {
			return nil, fmt.Errorf("no S3 client for %s", location)
		}
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("invalid S3 location %q", location)
		}
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		return &Bucket{API: s3api, Name: bucket, Prefix: prefix}, nil
	}
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", location, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", location)
	}
	return Dir{Path: location}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	file io.Closer
}

func (g gzipReadCloser) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}

func maybeGunzip(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	if !strings.HasSuffix(name, ".gz") {
		return rc, nil
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", name, err)
	}
	return gzipReadCloser{Reader: zr, file: rc}, nil
}
