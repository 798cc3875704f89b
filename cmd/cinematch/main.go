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
	"os"
	"os/signal"
	"time"

	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/cmd/version"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/dataset"
	"github.com/gorse-io/cinematch/engine"
	"github.com/gorse-io/cinematch/server"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "cinematch",
	Short: "Hybrid movie recommender.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		otel.SetErrorHandler(log.GetErrorHandler())
	},
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over the REST API.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		if host, _ := cmd.Flags().GetString("host"); cmd.Flags().Changed("host") {
			conf.Server.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			conf.Server.Port = port
		}

		tracerProvider, err := conf.Tracing.NewTracerProvider()
		if err != nil {
			log.Logger().Fatal("failed to create tracer provider", zap.Error(err))
		}
		otel.SetTracerProvider(tracerProvider)

		e := engine.NewEngine(conf, nil)
		if _, err := e.Reload(context.Background()); err != nil {
			if dataset.IsDataLoadError(err) {
				log.Logger().Fatal("failed to load datasets", zap.Error(err))
			}
			log.Logger().Fatal("failed to build recommenders", zap.Error(err))
		}

		s := server.NewRestServer(conf, e)
		done := make(chan struct{})
		go func() {
			sigint := make(chan os.Signal, 1)
			signal.Notify(sigint, os.Interrupt)
			<-sigint
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				log.Logger().Error("failed to shutdown http server", zap.Error(err))
			}
			close(done)
		}()
		s.StartHttpServer()
		<-done
		log.Logger().Info("stop cinematch successfully")
	},
}

func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return conf
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.Flags().BoolP("version", "v", false, "cinematch version")

	serveCommand.Flags().String("host", "", "host of the REST API server")
	serveCommand.Flags().Int("port", 0, "port of the REST API server")
	rootCommand.AddCommand(serveCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
