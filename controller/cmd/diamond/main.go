// Copyright 2024 Netlab Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The diamond binary is the OpenFlow controller of the four switch diamond.
package main

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/netlab/diamond/controller"
	"github.com/netlab/diamond/controller/balance"
	"github.com/netlab/diamond/controller/config"
	"github.com/netlab/diamond/controller/diamond"
	"github.com/netlab/diamond/controller/mgmtapi"
	"github.com/netlab/diamond/controller/ofchannel"
	"github.com/netlab/diamond/controller/signal"
	"github.com/netlab/diamond/controller/switches"
	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/processmetrics"
	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/app"
	"github.com/netlab/diamond/private/app/feature"
	"github.com/netlab/diamond/private/app/launcher"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "Diamond Controller",
		Main:       realMain,
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	m := controller.NewMetrics(metrics.Factory{})
	if err := processmetrics.Init(prometheus.DefaultRegisterer); err != nil {
		log.Info("Process metrics are not exported", "err", err)
	}

	router := diamond.NewRouter(log.New("component", "router"), m.Router)
	if globalCfg.Feature.LearnIPv4Only {
		router.LearningOptions = append(router.LearningOptions,
			switches.WithIPv4OnlyLearning())
	}
	manager := balance.NewManager(router, log.New("component", "balance"), m.Balance)

	listener, err := signal.Listen(globalCfg.Signal.ListenAddr, manager,
		log.New("component", "signal"), m.Signal)
	if err != nil {
		return serrors.Wrap("listening for signals", err)
	}

	var cleanup app.Cleanup
	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer log.HandlePanic()
		return listener.Run(errCtx, globalCfg.Signal.PollRate)
	})

	server := ofchannel.NewServer(router, ofchannel.Options{
		PollRate:  globalCfg.OpenFlow.PollRate,
		MaxReads:  globalCfg.OpenFlow.MaxReads,
		MaxWrites: globalCfg.OpenFlow.MaxWrites,
		Logger:    log.New("component", "ofchannel"),
		Periodic:  m.OpenFlow,
	})
	g.Go(func() error {
		defer log.HandlePanic()
		return server.ListenAndServe(errCtx, globalCfg.OpenFlow.ListenAddr)
	})

	// Initialise and start the management API endpoints.
	if globalCfg.API.Addr != "" {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
		}))
		r.Mount("/api/v1", mgmtapi.Handler(&mgmtapi.Server{
			Flows:    manager,
			Switches: router,
			Config:   &globalCfg,
			Info: mgmtapi.Info{
				ID:       globalCfg.General.ID,
				Version:  version(),
				Features: feature.Enabled(globalCfg.Feature),
			},
		}))
		log.Info("Exposing API", "addr", globalCfg.API.Addr)
		mgmtServer := &http.Server{
			Addr:    globalCfg.API.Addr,
			Handler: r,
		}
		cleanup.Add(mgmtServer.Close)
		g.Go(func() error {
			defer log.HandlePanic()
			err := mgmtServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving management API", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})

	g.Go(func() error {
		defer log.HandlePanic()
		<-errCtx.Done()
		return cleanup.Do()
	})

	return g.Wait()
}

func version() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		return bi.Main.Version
	}
	return "(unknown)"
}
