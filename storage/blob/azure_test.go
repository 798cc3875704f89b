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
	"errors"
	"io"
	"os"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gorse-io/cinematch/config"
	"github.com/stretchr/testify/assert"
)

func TestAzureBlob(t *testing.T) {
	ctx := context.Background()
	connectionString := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if connectionString == "" {
		t.Skip("AZURE_STORAGE_CONNECTION_STRING is not set, skipping Azure Blob tests")
	}
	cfg := config.AzureBlobConfig{ConnectionString: connectionString}
	client, err := NewAzureBlob(cfg, "cinematch-test", "datasets")
	assert.NoError(t, err)
	_, err = client.client.CreateContainer(ctx, client.container, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !errors.As(err, &respErr) || respErr.ErrorCode != string(bloberror.ContainerAlreadyExists) {
			assert.NoError(t, err)
		}
	}

	w, err := client.Create(ctx, "movies.csv")
	assert.NoError(t, err)
	_, err = w.Write([]byte("movieId,title,genres\n"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	r, err := Open(ctx, config.BlobConfig{Azure: cfg}, "azblob://cinematch-test/datasets/movies.csv")
	assert.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "movieId,title,genres\n", string(data))
	assert.NoError(t, r.Close())
}

func TestAzureBlobCredentials(t *testing.T) {
	_, err := NewAzureBlob(config.AzureBlobConfig{AccountName: "cinematch"}, "container", "")
	assert.Error(t, err)
}
