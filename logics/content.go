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

package logics

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/common/floats"
	"github.com/gorse-io/cinematch/common/heap"
	"github.com/gorse-io/cinematch/common/parallel"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// tokenPattern matches words of at least two letters or digits.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Tokenize splits text into lowercase terms and drops stop words.
func Tokenize(text string, stopWords mapset.Set[string]) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := tokens[:0]
	for _, token := range tokens {
		if stopWords != nil && stopWords.Contains(token) {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// ContentBased recommends movies with genre profiles similar to a given movie. Genre strings
// are embedded by TF-IDF and compared by cosine similarity.
type ContentBased struct {
	movies     []data.Movie
	titleIndex map[string]int
	vocabulary map[string]int
	idf        []float32
	vectors    [][]float32
	// similarity holds every row when precomputed, otherwise rows are computed on demand
	// and kept in rowCache.
	similarity [][]float32
	rowCache   *ttlcache.Cache[int, []float32]
}

// NewContentBased builds the vector space of movies. The order of movies is the corpus order
// which breaks ties between equal similarities.
func NewContentBased(ctx context.Context, cfg config.ContentConfig, movies []data.Movie, jobs int) (*ContentBased, error) {
	start := time.Now()
	var stopWords mapset.Set[string]
	if cfg.StopWords == config.StopWordsEnglish {
		stopWords = EnglishStopWords()
	}
	c := &ContentBased{
		movies:     movies,
		titleIndex: make(map[string]int, len(movies)),
		vocabulary: make(map[string]int),
	}
	for i, movie := range movies {
		if _, exist := c.titleIndex[movie.Title]; !exist {
			c.titleIndex[movie.Title] = i
		}
	}

	// tokenize documents and count document frequencies
	documents := make([][]string, len(movies))
	var df []int
	for i, movie := range movies {
		documents[i] = Tokenize(movie.Genres, stopWords)
		seen := mapset.NewThreadUnsafeSet[int]()
		for _, term := range documents[i] {
			termId, exist := c.vocabulary[term]
			if !exist {
				termId = len(c.vocabulary)
				c.vocabulary[term] = termId
				df = append(df, 0)
			}
			if seen.Add(termId) {
				df[termId]++
			}
		}
	}

	// smoothed inverse document frequency
	n := float64(len(movies))
	c.idf = make([]float32, len(df))
	for termId, freq := range df {
		c.idf[termId] = float32(math.Log((1+n)/(1+float64(freq))) + 1)
	}

	// term frequency weighted by idf and scaled to unit length
	c.vectors = make([][]float32, len(movies))
	for i, terms := range documents {
		vector := make([]float32, len(c.vocabulary))
		for _, term := range terms {
			vector[c.vocabulary[term]]++
		}
		for termId := range vector {
			vector[termId] *= c.idf[termId]
		}
		floats.Normalize(vector)
		c.vectors[i] = vector
	}

	if cfg.Precompute && len(movies) <= cfg.MaxPrecomputeItems {
		c.similarity = make([][]float32, len(movies))
		if err := parallel.For(ctx, len(movies), jobs, func(i int) {
			c.similarity[i] = c.computeRow(i)
		}); err != nil {
			return nil, errors.Trace(err)
		}
	} else {
		if cfg.Precompute {
			log.Logger().Warn("too many movies to precompute item similarity, compute rows on demand",
				zap.Int("n_movies", len(movies)),
				zap.Int("max_precompute_items", cfg.MaxPrecomputeItems))
		}
		capacity := cfg.RowCacheSize
		if capacity <= 0 {
			capacity = 1
		}
		c.rowCache = ttlcache.New(
			ttlcache.WithCapacity[int, []float32](uint64(capacity)),
			ttlcache.WithDisableTouchOnHit[int, []float32](),
		)
	}
	log.Logger().Info("build content-based recommender complete",
		zap.Int("n_movies", len(movies)),
		zap.Int("n_terms", len(c.vocabulary)),
		zap.Bool("precomputed", c.similarity != nil),
		zap.Duration("used_time", time.Since(start)))
	return c, nil
}

func (c *ContentBased) computeRow(i int) []float32 {
	row := make([]float32, len(c.vectors))
	for j, vector := range c.vectors {
		// vectors are normalized so the inner product is the cosine
		row[j] = floats.Dot(c.vectors[i], vector)
	}
	return row
}

// Similarity returns the cosine similarities between the i-th movie and every movie.
func (c *ContentBased) Similarity(i int) []float32 {
	if c.similarity != nil {
		return c.similarity[i]
	}
	if item := c.rowCache.Get(i); item != nil {
		return item.Value()
	}
	row := c.computeRow(i)
	c.rowCache.Set(i, row, ttlcache.NoTTL)
	return row
}

// Terms returns the vocabulary size.
func (c *ContentBased) Terms() int {
	return len(c.vocabulary)
}

// Vector returns the TF-IDF vector of the i-th movie.
func (c *ContentBased) Vector(i int) []float32 {
	return c.vectors[i]
}

// TitleIndex returns the position of the first movie with the title.
func (c *ContentBased) TitleIndex(title string) (int, bool) {
	i, ok := c.titleIndex[title]
	return i, ok
}

// Recommend returns at most n movies most similar to the movie with the title. The movie
// itself is never recommended.
func (c *ContentBased) Recommend(title string, n int) ([]Recommendation, error) {
	if err := ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	index, ok := c.titleIndex[title]
	if !ok {
		return nil, errors.NotFoundf("movie %q", title)
	}
	row := c.Similarity(index)
	filter := heap.NewTopKFilter[int, float32](n)
	for j, score := range row {
		if j != index {
			filter.Push(j, score)
		}
	}
	elems := filter.PopAll()
	recommendations := make([]Recommendation, len(elems))
	for i, elem := range elems {
		movie := c.movies[elem.Value]
		recommendations[i] = Recommendation{
			MovieId: movie.MovieId,
			Title:   movie.Title,
			Score:   float64(elem.Weight),
		}
	}
	return recommendations, nil
}
