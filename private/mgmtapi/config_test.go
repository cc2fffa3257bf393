// Copyright 2021 Anapaya Systems
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

package mgmtapi_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"

	api "github.com/netlab/diamond/private/mgmtapi"
	apitest "github.com/netlab/diamond/private/mgmtapi/mgmtapitest"
)

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg api.Config
	cfg.Sample(&sample, nil, nil)
	apitest.InitConfig(&cfg)
	err := toml.NewDecoder(bytes.NewReader(sample.Bytes())).DisallowUnknownFields().Decode(&cfg)
	assert.NoError(t, err)
	apitest.CheckConfig(t, &cfg)
}

func TestConfigValidate(t *testing.T) {
	testCases := map[string]struct {
		Addr      string
		assertErr assert.ErrorAssertionFunc
	}{
		"disabled":      {Addr: "", assertErr: assert.NoError},
		"port only":     {Addr: ":8080", assertErr: assert.NoError},
		"host and port": {Addr: "127.0.0.1:8080", assertErr: assert.NoError},
		"missing port":  {Addr: "127.0.0.1", assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := api.Config{Addr: tc.Addr}
			tc.assertErr(t, cfg.Validate())
		})
	}
}

func TestSendProblem(t *testing.T) {
	rr := httptest.NewRecorder()
	api.SendProblem(rr, http.StatusBadRequest, "malformed query", "side must be up or down")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"type": "about:blank",
		"title": "malformed query",
		"status": 400,
		"detail": "side must be up or down"
	}`, rr.Body.String())
}
