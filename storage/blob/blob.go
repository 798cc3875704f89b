// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blob

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/gorse-io/cinematch/config"
	"github.com/juju/errors"
)

const (
	S3Scheme    = "s3"
	GCSScheme   = "gs"
	GCSAlias    = "gcs"
	AzureScheme = "azblob"
	FileScheme  = "file"
)

// Store reads and writes named objects. Close on a writer returned by Create blocks until
// the object is stored and reports the upload error.
type Store interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

// IsRemote reports whether a dataset location points to an object store.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case S3Scheme, GCSScheme, GCSAlias, AzureScheme:
		return true
	default:
		return false
	}
}

// Open a dataset file by location. Supported locations are local paths, file:// URLs,
// s3://bucket/key, gs://bucket/key (or gcs://) and azblob://container/key.
func Open(ctx context.Context, cfg config.BlobConfig, location string) (io.ReadCloser, error) {
	store, name, err := Resolve(cfg, location)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return store.Open(ctx, name)
}

// Create a dataset file by location for writing.
func Create(ctx context.Context, cfg config.BlobConfig, location string) (io.WriteCloser, error) {
	store, name, err := Resolve(cfg, location)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return store.Create(ctx, name)
}

// uploadWriter streams writes into an upload running in the background.
type uploadWriter struct {
	*io.PipeWriter
	result chan error
}

func newUploadWriter(upload func(r io.Reader) error) *uploadWriter {
	pr, pw := io.Pipe()
	w := &uploadWriter{PipeWriter: pw, result: make(chan error, 1)}
	go func() {
		err := upload(pr)
		// unblock pending writes if the upload stopped early
		_ = pr.CloseWithError(err)
		w.result <- err
	}()
	return w
}

func (w *uploadWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(<-w.result)
}

// Resolve splits a location into the store holding it and the object name inside the store.
func Resolve(cfg config.BlobConfig, location string) (Store, string, error) {
	if !strings.Contains(location, "://") {
		return NewPOSIX(""), location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, "", errors.Annotatef(err, "invalid location %q", location)
	}
	key := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case FileScheme:
		return NewPOSIX(""), u.Path, nil
	case S3Scheme:
		if u.Host == "" || key == "" {
			return nil, "", errors.NotValidf("s3 location %q", location)
		}
		store, err := NewS3(cfg.S3, u.Host, "")
		if err != nil {
			return nil, "", errors.Trace(err)
		}
		return store, key, nil
	case GCSScheme, GCSAlias:
		if u.Host == "" || key == "" {
			return nil, "", errors.NotValidf("gcs location %q", location)
		}
		store, err := NewGCS(cfg.GCS, u.Host, "")
		if err != nil {
			return nil, "", errors.Trace(err)
		}
		return store, key, nil
	case AzureScheme:
		if u.Host == "" || key == "" {
			return nil, "", errors.NotValidf("azure blob location %q", location)
		}
		store, err := NewAzureBlob(cfg.Azure, u.Host, "")
		if err != nil {
			return nil, "", errors.Trace(err)
		}
		return store, key, nil
	default:
		return nil, "", errors.NotSupportedf("location scheme %q", u.Scheme)
	}
}
