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
	"github.com/gorse-io/cinematch/dataset"
	"github.com/gorse-io/cinematch/storage/blob"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const importBatchSize = 1000

var importCommand = &cobra.Command{
	Use:   "import <movies.csv> <ratings.csv> <database>",
	Short: "Import movies and ratings from CSV files into a database.",
	Long:  "Import movies and ratings from CSV files into a database. CSV files are local paths or s3://, gs:// or azblob:// locations.",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		ctx := context.Background()
		moviesFile, err := blob.Open(ctx, conf.Blob, args[0])
		if err != nil {
			log.Logger().Fatal("failed to open movies",
				zap.String("location", log.RedactSourceURL(args[0])), zap.Error(err))
		}
		defer moviesFile.Close()
		ratingsFile, err := blob.Open(ctx, conf.Blob, args[1])
		if err != nil {
			log.Logger().Fatal("failed to open ratings",
				zap.String("location", log.RedactSourceURL(args[1])), zap.Error(err))
		}
		defer ratingsFile.Close()
		ds, err := dataset.LoadCSV(moviesFile, ratingsFile)
		if err != nil {
			log.Logger().Fatal("failed to load datasets", zap.Error(err))
		}

		database, err := data.Open(args[2], conf.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to connect database",
				zap.String("database", log.RedactSourceURL(args[2])), zap.Error(err))
		}
		defer database.Close()
		purge, _ := cmd.Flags().GetBool("purge")
		if err = importDataset(ctx, database, ds, purge); err != nil {
			log.Logger().Fatal("failed to import datasets", zap.Error(err))
		}
		log.Logger().Info("import datasets successfully",
			zap.Int("n_movies", ds.CountMovies()),
			zap.Int("n_ratings", ds.CountRatings()))
	},
}

func importDataset(ctx context.Context, database data.Database, ds *dataset.Dataset, purge bool) error {
	if err := database.Init(); err != nil {
		return errors.Trace(err)
	}
	if purge {
		if err := database.Purge(); err != nil {
			return errors.Trace(err)
		}
	}
	bar := progressbar.Default(int64(ds.CountMovies()+ds.CountRatings()), "Importing datasets")
	for _, movies := range lo.Chunk(ds.GetMovies(), importBatchSize) {
		if err := database.BatchInsertMovies(ctx, movies); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(movies))
	}
	for _, ratings := range lo.Chunk(ds.GetRatings(), importBatchSize) {
		if err := database.BatchInsertRatings(ctx, ratings); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(ratings))
	}
	return errors.Trace(bar.Finish())
}

func init() {
	importCommand.Flags().Bool("purge", false, "purge existing movies and ratings before importing")
	rootCommand.AddCommand(importCommand)
}
