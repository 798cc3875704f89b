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
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/engine"
	"github.com/gorse-io/cinematch/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Print recommendations for a user and a movie.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		userId, _ := cmd.Flags().GetInt("user")
		title, _ := cmd.Flags().GetString("title")
		alpha, _ := cmd.Flags().GetFloat64("alpha")
		if !cmd.Flags().Changed("alpha") {
			alpha = conf.Recommend.Hybrid.Alpha
		}
		n, _ := cmd.Flags().GetInt("top-n")
		if !cmd.Flags().Changed("top-n") {
			n = conf.Recommend.Hybrid.N
		}

		e := engine.NewEngine(conf, nil)
		if _, err := e.Reload(context.Background()); err != nil {
			log.Logger().Fatal("failed to load recommenders", zap.Error(err))
		}

		var (
			recommendations []logics.Recommendation
			err             error
		)
		switch {
		case cmd.Flags().Changed("user") && cmd.Flags().Changed("title"):
			var hybrid []logics.HybridRecommendation
			hybrid, err = e.HybridRecommend(userId, title, alpha, n)
			recommendations = lo.Map(hybrid, func(r logics.HybridRecommendation, _ int) logics.Recommendation {
				return r.Recommendation
			})
		case cmd.Flags().Changed("title"):
			recommendations, err = e.ContentRecommend(title, n)
		case cmd.Flags().Changed("user"):
			recommendations, err = e.CollaborativeRecommend(userId, n)
		default:
			log.Logger().Fatal("at least one of --user and --title is required")
		}
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		if err = renderRecommendations(os.Stdout, recommendations); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
	},
}

var popularCommand = &cobra.Command{
	Use:   "popular",
	Short: "Print popular movies.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		n, _ := cmd.Flags().GetInt("top-n")
		if !cmd.Flags().Changed("top-n") {
			n = conf.Recommend.Popular.N
		}
		e := engine.NewEngine(conf, nil)
		if _, err := e.Reload(context.Background()); err != nil {
			log.Logger().Fatal("failed to load recommenders", zap.Error(err))
		}
		movies, err := e.PopularMovies(n)
		if err != nil {
			log.Logger().Fatal("failed to rank popular movies", zap.Error(err))
		}
		if err = renderPopularMovies(os.Stdout, movies); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
	},
}

func renderRecommendations(w io.Writer, recommendations []logics.Recommendation) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Title", "Score")
	for i, recommendation := range recommendations {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			recommendation.Title,
			fmt.Sprintf("%.4f", recommendation.Score),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func renderPopularMovies(w io.Writer, movies []logics.PopularMovie) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Title", "Average", "Ratings", "Score")
	for i, movie := range movies {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			movie.Title,
			strconv.FormatFloat(movie.AvgRating, 'f', 2, 64),
			strconv.Itoa(movie.RatingsCount),
			strconv.FormatFloat(movie.Score, 'f', 2, 64),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func init() {
	recommendCommand.Flags().Int("user", 0, "user id for collaborative recommendations")
	recommendCommand.Flags().String("title", "", "movie title for content-based recommendations")
	recommendCommand.Flags().Float64("alpha", 0, "weight of content-based scores")
	recommendCommand.Flags().IntP("top-n", "n", 0, "number of recommendations")
	popularCommand.Flags().IntP("top-n", "n", 0, "number of movies")
	rootCommand.AddCommand(recommendCommand, popularCommand)
}
