// Copyright 2020 Anapaya Systems
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

// Package launcher runs a controller binary: it parses the command line,
// loads the TOML configuration, sets up logging and hands control to the
// application's Main function.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/app/command"
	libconfig "github.com/netlab/diamond/private/config"
	"github.com/netlab/diamond/private/env"
)

// Configuration keys used by the launcher.
const (
	cfgConfigFile              = "config"
	cfgLogConsoleLevel         = "log.console.level"
	cfgLogConsoleFormat        = "log.console.format"
	cfgLogConsoleDisableCaller = "log.console.disable_caller"
	cfgGeneralID               = "general.id"
)

// Application models a controller binary.
type Application struct {
	// TOMLConfig holds the Go data structure for the application-specific
	// TOML configuration. It is loaded from the file passed with --config,
	// defaulted and validated before Main runs.
	TOMLConfig libconfig.Config

	// ShortName is the short name of the application. If empty, the
	// executable name is used.
	ShortName string

	// Main is the custom logic of the application. If nil, only the
	// setup/teardown harness runs. The context is canceled on SIGINT and
	// SIGTERM.
	Main func(ctx context.Context) error

	// ErrorWriter specifies where error output should be printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	// Registerer receives the launcher's own metrics. If nil, the default
	// registerer is used.
	Registerer prometheus.Registerer

	cmd    *cobra.Command
	config *viper.Viper
}

// Run sets up the harness and passes control to Main. It exits the process
// with a non-zero code if anything fails.
//
// Run uses the following globals:
//
//	os.Args
func (a *Application) Run() {
	if err := a.run(os.Args[0], os.Args[1:]); err != nil {
		fmt.Fprintf(a.getErrorWriter(), "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func (a *Application) run(arg0 string, args []string) error {
	executable := filepath.Base(arg0)
	shortName := a.getShortName(executable)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.cmd = newCommandTemplate(executable, shortName, a.TOMLConfig)
	a.cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return a.executeCommand(cmd.Context(), shortName)
	}
	a.cmd.SetArgs(args)
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, log.DefaultConsoleLevel)
	a.config.SetDefault(cfgLogConsoleFormat, "human")
	a.config.SetDefault(cfgGeneralID, executable)
	// The configuration file location is specified through command-line
	// flags. Once the flags are parsed, viper picks it up.
	if err := a.config.BindPFlag(cfgConfigFile, a.cmd.Flags().Lookup(cfgConfigFile)); err != nil {
		return err
	}
	return a.cmd.ExecuteContext(ctx)
}

func (a *Application) executeCommand(ctx context.Context, shortName string) error {
	os.Setenv("TZ", "UTC")

	// Load launcher configurations from the same config file as the custom
	// application configuration.
	file := a.config.GetString(cfgConfigFile)
	a.config.SetConfigType("toml")
	a.config.SetConfigFile(file)
	if err := a.config.ReadInConfig(); err != nil {
		return serrors.Wrap("loading generic server config from file", err, "file", file)
	}
	if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
		return serrors.Wrap("loading config from file", err, "file", file)
	}
	a.TOMLConfig.InitDefaults()

	factory := metrics.Factory{Registerer: a.Registerer}
	logEntries := factory.NewCounter("log_emitted_entries_total",
		"Total number of log entries emitted.", "level")
	if err := log.Setup(a.getLogging(), log.WithEntriesCounter(logEntries)); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()

	id := a.config.GetString(cfgGeneralID)
	if err := env.LogAppStarted(shortName, id); err != nil {
		return err
	}
	defer env.LogAppStopped(shortName, id)
	defer log.HandlePanic()

	exportBuildInfo(factory, id)
	if err := a.TOMLConfig.Validate(); err != nil {
		return serrors.Wrap("validate config", err)
	}
	if a.Main == nil {
		return nil
	}
	return a.Main(ctx)
}

func (a *Application) getLogging() log.Config {
	return log.Config{
		Console: log.ConsoleConfig{
			Level:         a.config.GetString(cfgLogConsoleLevel),
			Format:        a.config.GetString(cfgLogConsoleFormat),
			DisableCaller: a.config.GetBool(cfgLogConsoleDisableCaller),
		},
	}
}

func (a *Application) getShortName(executable string) string {
	if a.ShortName != "" {
		return a.ShortName
	}
	return executable
}

func (a *Application) getErrorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

func newCommandTemplate(executable, shortName string, config libconfig.Sampler) *cobra.Command {
	cmd := &cobra.Command{
		Use:           executable + " --config <config.toml>",
		Short:         shortName,
		Example:       fmt.Sprintf("  %[1]s --config %[1]s.toml", executable),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}
	cmd.AddCommand(
		command.NewSample(cmd, config),
		command.NewVersion(cmd),
		command.NewGendocs(cmd),
	)
	cmd.Flags().String(cfgConfigFile, "", "Configuration file (required)")
	cmd.MarkFlagRequired(cfgConfigFile)
	return cmd
}

// exportBuildInfo exports the version of the binary and the instance id as a
// constant gauge.
func exportBuildInfo(factory metrics.Factory, id string) {
	version := "(unknown)"
	if bi, ok := debug.ReadBuildInfo(); ok {
		version = bi.Main.Version
	}
	g := factory.NewGauge("build_info", "Build information of the binary.",
		"version", "go_version", "id")
	metrics.GaugeSet(metrics.GaugeWith(g,
		"version", version, "go_version", runtime.Version(), "id", id), 1)
}
