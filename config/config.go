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

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	StopWordsEnglish = "english"
	StopWordsNone    = "none"
)

// Config is the configuration for the recommender.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Master    MasterConfig    `mapstructure:"master"`
	Server    ServerConfig    `mapstructure:"server"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// DatabaseConfig locates the movies and ratings datasets.
type DatabaseConfig struct {
	Movies      string `mapstructure:"movies" validate:"required"`
	Ratings     string `mapstructure:"ratings" validate:"required"`
	TablePrefix string `mapstructure:"table_prefix"`
}

type BlobConfig struct {
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Endpoint         string `mapstructure:"endpoint"`
}

type MasterConfig struct {
	NumJobs int `mapstructure:"jobs" validate:"gt=0"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	DefaultN       int      `mapstructure:"default_n" validate:"gt=0"`
}

type RecommendConfig struct {
	Content       ContentConfig       `mapstructure:"content"`
	Collaborative CollaborativeConfig `mapstructure:"collaborative"`
	Hybrid        HybridConfig        `mapstructure:"hybrid"`
	Popular       PopularConfig       `mapstructure:"popular"`
}

type ContentConfig struct {
	StopWords          string `mapstructure:"stop_words" validate:"oneof=english none"`
	Precompute         bool   `mapstructure:"precompute"`
	MaxPrecomputeItems int    `mapstructure:"max_precompute_items" validate:"gte=0"`
	RowCacheSize       int    `mapstructure:"row_cache_size" validate:"gte=0"`
}

type CollaborativeConfig struct {
	// Neighbors is the number of similar users averaged for a recommendation.
	Neighbors int `mapstructure:"neighbors" validate:"gt=0"`
	// MaxUsers bounds the dense user-user similarity matrix.
	MaxUsers int `mapstructure:"max_users" validate:"gt=0"`
	// DistinguishZeroRatings excludes movies rated 0 from recommendations. By default
	// a stored 0 is indistinguishable from a missing rating.
	DistinguishZeroRatings bool `mapstructure:"distinguish_zero_ratings"`
}

type HybridConfig struct {
	// FetchSize is the number of candidates fetched from each recommender before fusion.
	FetchSize    int     `mapstructure:"fetch_size" validate:"gt=0"`
	Alpha        float64 `mapstructure:"alpha" validate:"gte=0,lte=1"`
	N            int     `mapstructure:"n" validate:"gt=0"`
	AllowPartial bool    `mapstructure:"allow_partial"`
}

type PopularConfig struct {
	Score  string        `mapstructure:"score" validate:"required"`
	Filter string        `mapstructure:"filter"`
	Window time.Duration `mapstructure:"window" validate:"gte=0"`
	N      int           `mapstructure:"n" validate:"gt=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Movies:  "data/movies.csv",
			Ratings: "data/ratings.csv",
		},
		Master: MasterConfig{
			NumJobs: 1,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:5173"},
			DefaultN:       10,
		},
		Recommend: RecommendConfig{
			Content: ContentConfig{
				StopWords:          StopWordsEnglish,
				MaxPrecomputeItems: 5000,
				RowCacheSize:       256,
			},
			Collaborative: CollaborativeConfig{
				Neighbors: 5,
				MaxUsers:  10000,
			},
			Hybrid: HybridConfig{
				FetchSize: 20,
				Alpha:     0.6,
				N:         5,
			},
			Popular: PopularConfig{
				Score: "mean * count",
				N:     10,
			},
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [database]
	viper.SetDefault("database.movies", defaultConfig.Database.Movies)
	viper.SetDefault("database.ratings", defaultConfig.Database.Ratings)
	viper.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [blob]
	viper.SetDefault("blob.s3.endpoint", defaultConfig.Blob.S3.Endpoint)
	viper.SetDefault("blob.s3.access_key_id", defaultConfig.Blob.S3.AccessKeyID)
	viper.SetDefault("blob.s3.secret_access_key", defaultConfig.Blob.S3.SecretAccessKey)
	viper.SetDefault("blob.s3.use_ssl", defaultConfig.Blob.S3.UseSSL)
	viper.SetDefault("blob.gcs.credentials_file", defaultConfig.Blob.GCS.CredentialsFile)
	viper.SetDefault("blob.azure.account_name", defaultConfig.Blob.Azure.AccountName)
	viper.SetDefault("blob.azure.account_key", defaultConfig.Blob.Azure.AccountKey)
	viper.SetDefault("blob.azure.connection_string", defaultConfig.Blob.Azure.ConnectionString)
	viper.SetDefault("blob.azure.endpoint", defaultConfig.Blob.Azure.Endpoint)
	// [master]
	viper.SetDefault("master.jobs", defaultConfig.Master.NumJobs)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	viper.SetDefault("server.allowed_origins", defaultConfig.Server.AllowedOrigins)
	viper.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	// [recommend.content]
	viper.SetDefault("recommend.content.stop_words", defaultConfig.Recommend.Content.StopWords)
	viper.SetDefault("recommend.content.precompute", defaultConfig.Recommend.Content.Precompute)
	viper.SetDefault("recommend.content.max_precompute_items", defaultConfig.Recommend.Content.MaxPrecomputeItems)
	viper.SetDefault("recommend.content.row_cache_size", defaultConfig.Recommend.Content.RowCacheSize)
	// [recommend.collaborative]
	viper.SetDefault("recommend.collaborative.neighbors", defaultConfig.Recommend.Collaborative.Neighbors)
	viper.SetDefault("recommend.collaborative.max_users", defaultConfig.Recommend.Collaborative.MaxUsers)
	viper.SetDefault("recommend.collaborative.distinguish_zero_ratings", defaultConfig.Recommend.Collaborative.DistinguishZeroRatings)
	// [recommend.hybrid]
	viper.SetDefault("recommend.hybrid.fetch_size", defaultConfig.Recommend.Hybrid.FetchSize)
	viper.SetDefault("recommend.hybrid.alpha", defaultConfig.Recommend.Hybrid.Alpha)
	viper.SetDefault("recommend.hybrid.n", defaultConfig.Recommend.Hybrid.N)
	viper.SetDefault("recommend.hybrid.allow_partial", defaultConfig.Recommend.Hybrid.AllowPartial)
	// [recommend.popular]
	viper.SetDefault("recommend.popular.score", defaultConfig.Recommend.Popular.Score)
	viper.SetDefault("recommend.popular.filter", defaultConfig.Recommend.Popular.Filter)
	viper.SetDefault("recommend.popular.window", defaultConfig.Recommend.Popular.Window)
	viper.SetDefault("recommend.popular.n", defaultConfig.Recommend.Popular.N)
	// [tracing]
	viper.SetDefault("tracing.enable_tracing", defaultConfig.Tracing.EnableTracing)
	viper.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	viper.SetDefault("tracing.collector_endpoint", defaultConfig.Tracing.CollectorEndpoint)
	viper.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	viper.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from a TOML file. Environment variables override
// values from the file. An empty path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	// set default config
	viper.Reset()
	setDefault()

	// bind environment bindings
	bindings := []configBinding{
		{"database.movies", "CINEMATCH_MOVIES"},
		{"database.ratings", "CINEMATCH_RATINGS"},
		{"database.table_prefix", "CINEMATCH_TABLE_PREFIX"},
		{"blob.s3.endpoint", "S3_ENDPOINT"},
		{"blob.s3.access_key_id", "S3_ACCESS_KEY_ID"},
		{"blob.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
		{"blob.gcs.credentials_file", "GCS_CREDENTIALS_FILE"},
		{"blob.azure.account_name", "AZURE_STORAGE_ACCOUNT"},
		{"blob.azure.account_key", "AZURE_STORAGE_KEY"},
		{"blob.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
		{"master.jobs", "CINEMATCH_JOBS"},
		{"server.host", "CINEMATCH_HOST"},
		{"server.port", "CINEMATCH_PORT"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// load config file
	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}

	// validate config file
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks value ranges of the configuration.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	if config.Recommend.Content.Precompute && config.Recommend.Content.MaxPrecomputeItems == 0 {
		return errors.NotValidf("max_precompute_items = 0 with precompute enabled")
	}
	if strings.TrimSpace(config.Database.Movies) == "" || strings.TrimSpace(config.Database.Ratings) == "" {
		return errors.NotValidf("empty dataset source")
	}
	return nil
}
