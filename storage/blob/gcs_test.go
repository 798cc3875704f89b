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
	"testing"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/gorse-io/cinematch/config"
	"github.com/stretchr/testify/assert"
)

func TestGCS(t *testing.T) {
	ctx := context.Background()
	server, err := fakestorage.NewServerWithOptions(fakestorage.Options{
		Scheme:     "http",
		Port:       5050,
		PublicHost: "localhost:5050",
	})
	assert.NoError(t, err)
	defer server.Stop()
	t.Setenv("GCS_EMULATOR_ENDPOINT", "http://localhost:5050/storage/v1/")
	server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: "cinematch-test"})

	client, err := NewGCS(config.GCSConfig{}, "cinematch-test", "datasets")
	assert.NoError(t, err)

	// upload a file
	w, err := client.Create(ctx, "movies.csv")
	assert.NoError(t, err)
	_, err = w.Write([]byte("movieId,title,genres\n1,Toy Story (1995),Animation|Comedy\n"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	// read it through a location
	r, err := Open(ctx, config.BlobConfig{}, "gs://cinematch-test/datasets/movies.csv")
	assert.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "movieId,title,genres\n1,Toy Story (1995),Animation|Comedy\n", string(data))
	assert.NoError(t, r.Close())

	// missing object
	_, err = client.Open(ctx, "missing.csv")
	assert.Error(t, err)
}
