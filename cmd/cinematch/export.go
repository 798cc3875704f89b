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

package main

import (
	"context"

	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/dataset"
	"github.com/gorse-io/cinematch/storage/blob"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCommand = &cobra.Command{
	Use:   "export <movies.csv> <ratings.csv>",
	Short: "Export the configured movies and ratings to CSV files.",
	Long:  "Export the configured movies and ratings to CSV files. CSV files are local paths or s3://, gs:// or azblob:// locations.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		ctx := context.Background()
		ds, err := dataset.Load(ctx, conf)
		if err != nil {
			log.Logger().Fatal("failed to load datasets", zap.Error(err))
		}
		if err = exportDataset(ctx, conf.Blob, ds, args[0], args[1]); err != nil {
			log.Logger().Fatal("failed to export datasets", zap.Error(err))
		}
		log.Logger().Info("export datasets successfully",
			zap.String("movies", log.RedactSourceURL(args[0])),
			zap.String("ratings", log.RedactSourceURL(args[1])),
			zap.Int("n_movies", ds.CountMovies()),
			zap.Int("n_ratings", ds.CountRatings()))
	},
}

func exportDataset(ctx context.Context, cfg config.BlobConfig, ds *dataset.Dataset, moviesLocation, ratingsLocation string) error {
	w, err := blob.Create(ctx, cfg, moviesLocation)
	if err != nil {
		return errors.Trace(err)
	}
	if err = dataset.WriteMovies(w, ds.GetMovies()); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		return errors.Trace(err)
	}

	w, err = blob.Create(ctx, cfg, ratingsLocation)
	if err != nil {
		return errors.Trace(err)
	}
	if err = dataset.WriteRatings(w, ds.GetRatings()); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}

func init() {
	rootCommand.AddCommand(exportCommand)
}
