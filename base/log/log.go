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

package log

import (
	"net/url"
	"os"
	"strings"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"

	timeLayout = "2006-01-02 15:04:05.999999"
)

var logger = zap.Must(zap.NewDevelopment())

// Logger get current logger
func Logger() *zap.Logger {
	return logger
}

// ResponseLogger returns the logger tagged with the request id of a response.
func ResponseLogger(resp *restful.Response) *zap.Logger {
	return logger.With(zap.String("request_id", resp.Header().Get("X-Request-ID")))
}

// CloseLogger silences everything below fatal.
func CloseLogger() {
	logger = zap.New(zapcore.NewNopCore())
}

// Options of the logger, read from command line flags.
type Options struct {
	Level      zapcore.Level
	Format     string
	Path       string
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.String("log-level", "", "log level (debug, info, warn, error), overrides --debug")
	flagSet.String("log-format", "", "log format (console, json), console in debug mode and json otherwise")
	flagSet.String("log-path", "", "path of log file")
	flagSet.Int("log-max-size", 100, "maximum size in megabytes of the log file")
	flagSet.Int("log-max-age", 0, "maximum number of days to retain old log files")
	flagSet.Int("log-max-backups", 0, "maximum number of old log files to retain")
}

// ParseFlags reads logger options from flags registered by AddFlags.
func ParseFlags(flagSet *pflag.FlagSet, debug bool) (Options, error) {
	opts := Options{Level: zapcore.InfoLevel, Format: FormatJSON}
	if debug {
		opts.Level, opts.Format = zapcore.DebugLevel, FormatConsole
	}
	if level, _ := flagSet.GetString("log-level"); level != "" {
		if err := opts.Level.UnmarshalText([]byte(level)); err != nil {
			return opts, err
		}
	}
	if format, _ := flagSet.GetString("log-format"); format != "" {
		opts.Format = format
	}
	opts.Path, _ = flagSet.GetString("log-path")
	opts.MaxSize, _ = flagSet.GetInt("log-max-size")
	opts.MaxAge, _ = flagSet.GetInt("log-max-age")
	opts.MaxBackups, _ = flagSet.GetInt("log-max-backups")
	return opts, nil
}

// SetLogger replaces the logger by one built from flags. Invalid flags keep the current logger.
func SetLogger(flagSet *pflag.FlagSet, debug bool) {
	opts, err := ParseFlags(flagSet, debug)
	if err != nil {
		logger.Error("invalid log flags", zap.Error(err))
		return
	}
	logger = NewLogger(opts)
}

// NewLogger writes to stdout and, if a path is set, to a file rotated by lumberjack.
func NewLogger(opts Options) *zap.Logger {
	var encoder zapcore.Encoder
	if opts.Format == FormatConsole {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		encoder = zapcore.NewJSONEncoder(cfg)
	}
	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opts.Path != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
		}))
	}
	return zap.New(zapcore.NewCore(encoder, zap.CombineWriteSyncers(writers...), opts.Level))
}

const mysqlPrefix = "mysql://"

// secretParams are query parameters of object store URLs carrying credentials.
var secretParams = []string{"sig", "X-Amz-Signature", "X-Amz-Credential", "X-Amz-Security-Token", "access_key", "secret_key"}

// RedactSourceURL masks credentials in a dataset source before it is logged. Sources are
// database URLs, object store URLs or plain paths.
func RedactSourceURL(rawURL string) string {
	if strings.HasPrefix(rawURL, mysqlPrefix) {
		parsed, err := mysql.ParseDSN(rawURL[len(mysqlPrefix):])
		if err != nil {
			return rawURL
		}
		parsed.User = strings.Repeat("x", len(parsed.User))
		parsed.Passwd = strings.Repeat("x", len(parsed.Passwd))
		return mysqlPrefix + parsed.FormatDSN()
	}
	if !strings.Contains(rawURL, "://") {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.User != nil {
		username := parsed.User.Username()
		password, _ := parsed.User.Password()
		parsed.User = url.UserPassword(strings.Repeat("x", len(username)), strings.Repeat("x", len(password)))
	}
	if parsed.RawQuery != "" {
		query := parsed.Query()
		for _, param := range secretParams {
			if query.Has(param) {
				query.Set(param, "xxx")
			}
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func GetErrorHandler() otel.ErrorHandler {
	return &errorHandler{}
}

type errorHandler struct{}

func (h *errorHandler) Handle(err error) {
	Logger().Error("opentelemetry failure", zap.Error(err))
}
