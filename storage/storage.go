// storage/storage.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package storage reads and writes scenario inputs and run outputs either
// on the local filesystem or in a Google Cloud Storage bucket, selected
// by the "gs://bucket/object" URL form.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/mmp/trajgen/util"
)

// CredentialsEnvVar names the environment variable holding the JSON
// service account credentials used for GCS; public buckets may be read
// without it.
const CredentialsEnvVar = "TRAJGEN_GCS_CREDENTIALS"

type Backend interface {
	OpenRead(path string) (io.ReadCloser, error)
	// Store calls write with a writer for path; the object only appears
	// if write succeeds.
	Store(path string, write func(io.Writer) error) (int64, error)
	Close()
}

// ParseURL splits a "gs://bucket/object" URL into its bucket and object;
// bucket is empty for local paths.
func ParseURL(url string) (bucket, path string, err error) {
	rest, ok := strings.CutPrefix(url, "gs://")
	if !ok {
		return "", url, nil
	}
	bucket, path, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || path == "" {
		return "", "", fmt.Errorf("%s: %w", url, ErrInvalidURL)
	}
	return bucket, path, nil
}

// Open returns the backend for url along with the path to use with it.
func Open(ctx context.Context, url string) (Backend, string, error) {
	bucket, path, err := ParseURL(url)
	if err != nil {
		return nil, "", err
	} else if bucket == "" {
		return LocalBackend{}, path, nil
	}
	b, err := MakeGCSBackend(ctx, bucket)
	return b, path, err
}

// OpenRead opens the local file or GCS object named by url.
func OpenRead(ctx context.Context, url string) (io.ReadCloser, error) {
	b, path, err := Open(ctx, url)
	if err != nil {
		return nil, err
	}
	r, err := b.OpenRead(path)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &backendReader{ReadCloser: r, b: b}, nil
}

// Store writes the local file or GCS object named by url.
func Store(ctx context.Context, url string, write func(io.Writer) error) (int64, error) {
	b, path, err := Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer b.Close()
	return b.Store(path, write)
}

type backendReader struct {
	io.ReadCloser
	b Backend
}

func (r *backendReader) Close() error {
	err := r.ReadCloser.Close()
	r.b.Close()
	return err
}

type CountingWriter struct {
	io.Writer
	N int64
}

func (w *CountingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	w.N += int64(n)
	return n, err
}

///////////////////////////////////////////////////////////////////////////
// LocalBackend

type LocalBackend struct{}

func (LocalBackend) OpenRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (LocalBackend) Store(path string, write func(io.Writer) error) (int64, error) {
	var n int64
	err := util.WriteFileAtomic(path, func(w io.Writer) error {
		cw := &CountingWriter{Writer: w}
		err := write(cw)
		n = cw.N
		return err
	})
	return n, err
}

func (LocalBackend) Close() {}

///////////////////////////////////////////////////////////////////////////
// GCSBackend

type GCSBackend struct {
	ctx    context.Context
	client *storage.Client
	bucket *storage.BucketHandle
}

func MakeGCSBackend(ctx context.Context, bucketName string) (*GCSBackend, error) {
	opt := option.WithoutAuthentication()
	if creds := os.Getenv(CredentialsEnvVar); creds != "" {
		opt = option.WithCredentialsJSON([]byte(creds))
	}

	client, err := storage.NewClient(ctx, opt)
	if err != nil {
		return nil, err
	}

	return &GCSBackend{
		ctx:    ctx,
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

func (g *GCSBackend) OpenRead(path string) (io.ReadCloser, error) {
	return g.bucket.Object(path).NewReader(g.ctx)
}

func (g *GCSBackend) Store(path string, write func(io.Writer) error) (int64, error) {
	ctx, cancel := context.WithCancel(g.ctx)
	defer cancel()

	objw := g.bucket.Object(path).NewWriter(ctx)
	cw := &CountingWriter{Writer: objw}
	if err := write(cw); err != nil {
		// Canceling the context before Close discards the partial object.
		cancel()
		objw.Close()
		return cw.N, err
	}
	return cw.N, objw.Close()
}

func (g *GCSBackend) Close() { g.client.Close() }

// DownloadToTemp copies the object named by url into a temporary file
// in dir and returns its path. Local paths are returned unchanged.
func DownloadToTemp(ctx context.Context, url, dir string) (string, error) {
	bucket, path, err := ParseURL(url)
	if err != nil {
		return "", err
	} else if bucket == "" {
		return path, nil
	}

	r, err := OpenRead(ctx, url)
	if err != nil {
		return "", err
	}
	defer r.Close()

	f, err := os.CreateTemp(dir, "*-"+filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("%s: %w", url, err)
	}
	return f.Name(), f.Close()
}
