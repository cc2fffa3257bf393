// Copyright 2018 ETH Zurich
// Copyright 2020 ETH Zurich, Anapaya Systems
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

// Package config contains the configuration of the diamond controller.
package config

import (
	"fmt"
	"io"
	"net"

	"github.com/netlab/diamond/controller/signal"
	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/app/feature"
	"github.com/netlab/diamond/private/config"
	"github.com/netlab/diamond/private/connpoll"
	"github.com/netlab/diamond/private/env"
	api "github.com/netlab/diamond/private/mgmtapi"
)

const (
	// DefaultOpenFlowAddr is the address switches connect to.
	DefaultOpenFlowAddr = "0.0.0.0:6633"
	// DefaultSignalAddr is the address open and close signals are sent to.
	DefaultSignalAddr = "0.0.0.0:6634"
)

var _ config.Config = (*Config)(nil)

type Config struct {
	General  env.General `toml:"general,omitempty"`
	Features []string    `toml:"features,omitempty"`
	Logging  log.Config  `toml:"log,omitempty"`
	Metrics  env.Metrics `toml:"metrics,omitempty"`
	API      api.Config  `toml:"api,omitempty"`
	OpenFlow OpenFlow    `toml:"openflow,omitempty"`
	Signal   Signal      `toml:"signal,omitempty"`

	// Feature is the parsed form of Features. It is set by Validate.
	Feature feature.Default `toml:"-"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.OpenFlow,
		&cfg.Signal,
	)
}

func (cfg *Config) Validate() error {
	f, err := feature.ParseDefault(cfg.Features)
	if err != nil {
		return serrors.Wrap("parsing features", err)
	}
	cfg.Feature = f
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.OpenFlow,
		&cfg.Signal,
	)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	// Top level keys must precede all tables.
	config.WriteString(dst, featuresSample)
	config.WriteSample(dst, path, config.CtxMap{config.ID: idSample},
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.OpenFlow,
		&cfg.Signal,
	)
}

func (cfg *Config) ConfigName() string {
	return "diamond_config"
}

// OpenFlow configures the switch control channels.
type OpenFlow struct {
	// ListenAddr is the TCP address the switches connect to.
	ListenAddr string `toml:"listen_addr,omitempty"`
	// PollRate is the rate in Hz at which the channels are polled.
	PollRate float64 `toml:"poll_rate,omitempty"`
	// MaxReads limits the reads per channel and poll. Zero means no limit.
	MaxReads int `toml:"max_reads,omitempty"`
	// MaxWrites limits the writes per channel and poll. Zero means no limit.
	MaxWrites int `toml:"max_writes,omitempty"`
}

func (cfg *OpenFlow) InitDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultOpenFlowAddr
	}
	if cfg.PollRate == 0 {
		cfg.PollRate = connpoll.DefaultRate
	}
}

func (cfg *OpenFlow) Validate() error {
	if err := validateAddr(cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.PollRate <= 0 {
		return serrors.New("poll_rate must be positive", "poll_rate", cfg.PollRate)
	}
	if cfg.MaxReads < 0 || cfg.MaxWrites < 0 {
		return serrors.New("io limits must not be negative",
			"max_reads", cfg.MaxReads, "max_writes", cfg.MaxWrites)
	}
	return nil
}

func (cfg *OpenFlow) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(openFlowSample, DefaultOpenFlowAddr,
		connpoll.DefaultRate))
}

func (cfg *OpenFlow) ConfigName() string {
	return "openflow"
}

// Signal configures the UDP socket receiving connection signals.
type Signal struct {
	// ListenAddr is the UDP address signals are received on.
	ListenAddr string `toml:"listen_addr,omitempty"`
	// PollRate is the rate in Hz at which pending signals are handled.
	PollRate float64 `toml:"poll_rate,omitempty"`
}

func (cfg *Signal) InitDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultSignalAddr
	}
	if cfg.PollRate == 0 {
		cfg.PollRate = signal.DefaultRate
	}
}

func (cfg *Signal) Validate() error {
	if err := validateAddr(cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.PollRate <= 0 {
		return serrors.New("poll_rate must be positive", "poll_rate", cfg.PollRate)
	}
	return nil
}

func (cfg *Signal) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(signalSample, DefaultSignalAddr, signal.DefaultRate))
}

func (cfg *Signal) ConfigName() string {
	return "signal"
}

func validateAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return serrors.Wrap("invalid listen_addr", err, "addr", addr)
	}
	return nil
}
