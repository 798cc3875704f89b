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

package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/engine"
	"github.com/gorse-io/cinematch/logics"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

const RequestIdHeader = "X-Request-ID"

// RestServer implements the REST API of recommendations.
type RestServer struct {
	Config     *config.Config
	Engine     *engine.Engine
	WebService *restful.WebService
	server     *http.Server
}

func NewRestServer(cfg *config.Config, e *engine.Engine) *RestServer {
	return &RestServer{
		Config:     cfg,
		Engine:     e,
		WebService: new(restful.WebService),
	}
}

// RankedRecommendation is a recommendation with its 1-based rank.
type RankedRecommendation struct {
	Rank  int     `json:"rank"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type HybridResponse struct {
	UserId          int                    `json:"user_id"`
	MovieTitle      string                 `json:"movie_title"`
	Recommendations []RankedRecommendation `json:"recommendations"`
}

type ContentResponse struct {
	MovieTitle      string                 `json:"movie_title"`
	Recommendations []RankedRecommendation `json:"recommendations"`
}

type CollaborativeResponse struct {
	UserId          int                    `json:"user_id"`
	Recommendations []RankedRecommendation `json:"recommendations"`
}

type RankedPopularMovie struct {
	Rank            int     `json:"rank"`
	Title           string  `json:"title"`
	AvgRating       float64 `json:"avg_rating"`
	RatingsCount    int     `json:"ratings_count"`
	PopularityScore float64 `json:"popularity_score"`
}

type PopularResponse struct {
	PopularMovies []RankedPopularMovie `json:"popular_movies"`
}

type MovieResult struct {
	MovieId int    `json:"movieId"`
	Title   string `json:"title"`
	Genres  string `json:"genres"`
}

type SearchResponse struct {
	Results []MovieResult `json:"results"`
}

type ReloadResponse struct {
	Version   int64     `json:"version"`
	Movies    int       `json:"n_movies"`
	Ratings   int       `json:"n_ratings"`
	Users     int       `json:"n_users"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")

	ws.Route(ws.GET("/recommend").To(s.getHybridRecommend).
		Doc("Get hybrid recommendations for a user and a movie.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("integer").Required(true)).
		Param(ws.QueryParameter("movie_title", "title of the movie").DataType("string").Required(true)).
		Param(ws.QueryParameter("alpha", "weight of content-based scores").DataType("number")).
		Param(ws.QueryParameter("top_n", "number of recommendations").DataType("integer")).
		Writes(HybridResponse{}))
	ws.Route(ws.GET("/recommend/content").To(s.getContentRecommend).
		Doc("Get movies with similar genres.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("movie_title", "title of the movie").DataType("string").Required(true)).
		Param(ws.QueryParameter("top_n", "number of recommendations").DataType("integer")).
		Writes(ContentResponse{}))
	ws.Route(ws.GET("/recommend/collaborative").To(s.getCollaborativeRecommend).
		Doc("Get movies rated highly by similar users.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("integer").Required(true)).
		Param(ws.QueryParameter("top_n", "number of recommendations").DataType("integer")).
		Writes(CollaborativeResponse{}))
	ws.Route(ws.GET("/popular-movies").To(s.getPopularMovies).
		Doc("Get popular movies.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("top_n", "number of movies").DataType("integer")).
		Writes(PopularResponse{}))
	ws.Route(ws.GET("/search").To(s.searchMovies).
		Doc("Search movies by title and genre.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.QueryParameter("query", "text in the title").DataType("string")).
		Param(ws.QueryParameter("genre", "text in the genres").DataType("string")).
		Param(ws.QueryParameter("top_n", "maximum number of results").DataType("integer")).
		Writes(SearchResponse{}))
	ws.Route(ws.GET("/genre-movies").To(s.getGenreMovies).
		Doc("Filter movies by genre.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.QueryParameter("genre", "text in the genres").DataType("string").Required(true)).
		Param(ws.QueryParameter("top_n", "maximum number of results").DataType("integer")).
		Writes(SearchResponse{}))
	ws.Route(ws.POST("/reload").To(s.reload).
		Doc("Reload datasets and rebuild recommenders.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
		Writes(ReloadResponse{}))
}

// NewContainer creates a container serving the REST API, its OpenAPI document and metrics.
func (s *RestServer) NewContainer() *restful.Container {
	container := restful.NewContainer()
	container.Add(s.WebService)
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle("/metrics", promhttp.Handler())
	cors := restful.CrossOriginResourceSharing{
		AllowedDomains: s.Config.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		ExposeHeaders:  []string{RequestIdHeader},
		CookiesAllowed: true,
		Container:      container,
	}
	container.Filter(RequestIdFilter)
	container.Filter(cors.Filter)
	container.Filter(container.OPTIONSFilter)
	container.Filter(otelrestful.OTelFilter("cinematch"))
	container.Filter(LogFilter)
	return container
}

// StartHttpServer starts the REST-ful API server. It returns after the server is shut down.
func (s *RestServer) StartHttpServer() {
	s.CreateWebService()
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port),
		Handler: s.NewContainer(),
	}
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.Host, s.Config.Server.Port)))
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		log.Logger().Fatal("failed to start http server", zap.Error(err))
	}
}

// Shutdown stops the REST-ful API server.
func (s *RestServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// RequestIdFilter tags every response with a request id, generated if the client sent none.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(RequestIdHeader)
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set(RequestIdHeader, requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	path := req.SelectedRoutePath()
	if path == "" {
		path = req.Request.URL.Path
	}
	RequestsTotalVec.WithLabelValues(path, strconv.Itoa(resp.StatusCode())).Inc()
	log.ResponseLogger(resp).Debug(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("used_time", time.Since(start)))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	if valueString == "" {
		return fallback, nil
	}
	value, err = strconv.Atoi(valueString)
	if err != nil {
		return 0, errors.NotValidf("%s = %q", name, valueString)
	}
	return
}

// ParseFloat parses floats from the query parameter.
func ParseFloat(request *restful.Request, name string, fallback float64) (value float64, err error) {
	valueString := request.QueryParameter(name)
	if valueString == "" {
		return fallback, nil
	}
	value, err = strconv.ParseFloat(valueString, 64)
	if err != nil {
		return 0, errors.NotValidf("%s = %q", name, valueString)
	}
	return
}

// RequireInt parses a required integer query parameter.
func RequireInt(request *restful.Request, name string) (int, error) {
	if request.QueryParameter(name) == "" {
		return 0, errors.NotValidf("missing %s", name)
	}
	return ParseInt(request, name, 0)
}

// RequireString reads a required query parameter.
func RequireString(request *restful.Request, name string) (string, error) {
	value := request.QueryParameter(name)
	if value == "" {
		return "", errors.NotValidf("missing %s", name)
	}
	return value, nil
}

func rank(recommendations []logics.Recommendation) []RankedRecommendation {
	return lo.Map(recommendations, func(r logics.Recommendation, i int) RankedRecommendation {
		return RankedRecommendation{Rank: i + 1, Title: r.Title, Score: r.Score}
	})
}

func (s *RestServer) getHybridRecommend(request *restful.Request, response *restful.Response) {
	start := time.Now()
	userId, err := RequireInt(request, "user_id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	title, err := RequireString(request, "movie_title")
	if err != nil {
		BadRequest(response, err)
		return
	}
	alpha, err := ParseFloat(request, "alpha", s.Config.Recommend.Hybrid.Alpha)
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "top_n", s.Config.Recommend.Hybrid.N)
	if err != nil {
		BadRequest(response, err)
		return
	}
	recommendations, err := s.Engine.HybridRecommend(userId, title, alpha, n)
	if err != nil {
		WriteError(response, err)
		return
	}
	HybridRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, HybridResponse{
		UserId:     userId,
		MovieTitle: title,
		Recommendations: lo.Map(recommendations, func(r logics.HybridRecommendation, i int) RankedRecommendation {
			return RankedRecommendation{Rank: i + 1, Title: r.Title, Score: r.Score}
		}),
	})
}

func (s *RestServer) getContentRecommend(request *restful.Request, response *restful.Response) {
	start := time.Now()
	title, err := RequireString(request, "movie_title")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "top_n", s.Config.Recommend.Hybrid.N)
	if err != nil {
		BadRequest(response, err)
		return
	}
	recommendations, err := s.Engine.ContentRecommend(title, n)
	if err != nil {
		WriteError(response, err)
		return
	}
	ContentRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, ContentResponse{MovieTitle: title, Recommendations: rank(recommendations)})
}

func (s *RestServer) getCollaborativeRecommend(request *restful.Request, response *restful.Response) {
	start := time.Now()
	userId, err := RequireInt(request, "user_id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "top_n", s.Config.Recommend.Hybrid.N)
	if err != nil {
		BadRequest(response, err)
		return
	}
	recommendations, err := s.Engine.CollaborativeRecommend(userId, n)
	if err != nil {
		WriteError(response, err)
		return
	}
	CollaborativeRecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, CollaborativeResponse{UserId: userId, Recommendations: rank(recommendations)})
}

func (s *RestServer) getPopularMovies(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, "top_n", s.Config.Recommend.Popular.N)
	if err != nil {
		BadRequest(response, err)
		return
	}
	movies, err := s.Engine.PopularMovies(n)
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, PopularResponse{
		PopularMovies: lo.Map(movies, func(m logics.PopularMovie, i int) RankedPopularMovie {
			return RankedPopularMovie{
				Rank:            i + 1,
				Title:           m.Title,
				AvgRating:       m.AvgRating,
				RatingsCount:    m.RatingsCount,
				PopularityScore: m.Score,
			}
		}),
	})
}

func (s *RestServer) searchMovies(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, "top_n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	movies, err := s.Engine.SearchMovies(request.QueryParameter("query"), request.QueryParameter("genre"), n)
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, SearchResponse{Results: lo.Map(movies, func(m data.Movie, _ int) MovieResult {
		return MovieResult{MovieId: m.MovieId, Title: m.Title, Genres: m.Genres}
	})})
}

func (s *RestServer) getGenreMovies(request *restful.Request, response *restful.Response) {
	genre, err := RequireString(request, "genre")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "top_n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	movies, err := s.Engine.GenreMovies(genre, n)
	if err != nil {
		WriteError(response, err)
		return
	}
	Ok(response, SearchResponse{Results: lo.Map(movies, func(m data.Movie, _ int) MovieResult {
		return MovieResult{MovieId: m.MovieId, Title: m.Title, Genres: m.Genres}
	})})
}

func (s *RestServer) reload(request *restful.Request, response *restful.Response) {
	snapshot, err := s.Engine.Reload(request.Request.Context())
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, ReloadResponse{
		Version:   snapshot.Version,
		Movies:    snapshot.Dataset.CountMovies(),
		Ratings:   snapshot.Dataset.CountRatings(),
		Users:     snapshot.Collaborative.CountUsers(),
		Timestamp: snapshot.Timestamp,
	})
}

// WriteError maps errors to status codes.
func WriteError(response *restful.Response, err error) {
	switch {
	case errors.Is(err, errors.NotFound):
		PageNotFound(response, err)
	case errors.Is(err, errors.NotValid):
		BadRequest(response, err)
	case errors.Is(err, errors.NotYetAvailable):
		ServiceUnavailable(response, err)
	default:
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// ServiceUnavailable returns a service unavailable error.
func ServiceUnavailable(response *restful.Response, err error) {
	if err = response.WriteError(http.StatusServiceUnavailable, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
