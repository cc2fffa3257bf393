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

package config

import (
	"bytes"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlab/diamond/private/env/envtest"
	apitest "github.com/netlab/diamond/private/mgmtapi/mgmtapitest"
)

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg Config
	cfg.Sample(&sample, nil, nil)

	InitTestConfig(&cfg)
	err := toml.NewDecoder(bytes.NewReader(sample.Bytes())).DisallowUnknownFields().Decode(&cfg)
	assert.NoError(t, err)
	CheckTestConfig(t, &cfg, idSample)
}

func InitTestConfig(cfg *Config) {
	envtest.InitTestGeneral(&cfg.General)
	envtest.InitTestMetrics(&cfg.Metrics)
	apitest.InitConfig(&cfg.API)
	cfg.Features = []string{"will be overwritten"}
	cfg.Logging.Console.Level = "will be overwritten"
	cfg.OpenFlow.MaxReads = 42
	cfg.Signal.PollRate = 42
}

func CheckTestConfig(t *testing.T, cfg *Config, id string) {
	envtest.CheckTestGeneral(t, &cfg.General, id)
	envtest.CheckTestMetrics(t, &cfg.Metrics)
	apitest.CheckConfig(t, &cfg.API)
	assert.Empty(t, cfg.Features)
	assert.Equal(t, "info", cfg.Logging.Console.Level)
	assert.Equal(t, DefaultOpenFlowAddr, cfg.OpenFlow.ListenAddr)
	assert.Equal(t, 10.0, cfg.OpenFlow.PollRate)
	assert.Zero(t, cfg.OpenFlow.MaxReads)
	assert.Zero(t, cfg.OpenFlow.MaxWrites)
	assert.Equal(t, DefaultSignalAddr, cfg.Signal.ListenAddr)
	assert.Equal(t, 2.0, cfg.Signal.PollRate)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "diamond", cfg.General.ID)
	assert.Equal(t, DefaultOpenFlowAddr, cfg.OpenFlow.ListenAddr)
	assert.Equal(t, DefaultSignalAddr, cfg.Signal.ListenAddr)
	assert.False(t, cfg.Feature.LearnIPv4Only)
}

func TestConfigValidate(t *testing.T) {
	testCases := map[string]struct {
		Modify    func(cfg *Config)
		assertErr assert.ErrorAssertionFunc
	}{
		"defaults": {
			Modify:    func(*Config) {},
			assertErr: assert.NoError,
		},
		"known feature": {
			Modify: func(cfg *Config) {
				cfg.Features = []string{"learn_ipv4_only"}
			},
			assertErr: assert.NoError,
		},
		"unknown feature": {
			Modify: func(cfg *Config) {
				cfg.Features = []string{"teleport"}
			},
			assertErr: assert.Error,
		},
		"bad openflow address": {
			Modify: func(cfg *Config) {
				cfg.OpenFlow.ListenAddr = "6633"
			},
			assertErr: assert.Error,
		},
		"negative io limit": {
			Modify: func(cfg *Config) {
				cfg.OpenFlow.MaxWrites = -1
			},
			assertErr: assert.Error,
		},
		"bad signal rate": {
			Modify: func(cfg *Config) {
				cfg.Signal.PollRate = -2
			},
			assertErr: assert.Error,
		},
		"bad log level": {
			Modify: func(cfg *Config) {
				cfg.Logging.Console.Level = "loud"
			},
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			cfg.InitDefaults()
			tc.Modify(&cfg)
			tc.assertErr(t, cfg.Validate())
		})
	}
}

func TestConfigFeatures(t *testing.T) {
	cfg := Config{Features: []string{"learn_ipv4_only"}}
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Feature.LearnIPv4Only)
}
