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

// Package mgmtapi implements the read-only management API of the diamond
// controller together with the runtime log level knob.
package mgmtapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/netlab/diamond/controller/balance"
	"github.com/netlab/diamond/controller/diamond"
	"github.com/netlab/diamond/pkg/log"
	api "github.com/netlab/diamond/private/mgmtapi"
)

// FlowStore exposes the routed connections per side.
type FlowStore interface {
	Snapshot() map[diamond.Side][]balance.Flow
}

// SwitchStore exposes the state of the diamond switches.
type SwitchStore interface {
	Switches() []diamond.SwitchInfo
}

// Info describes the running controller.
type Info struct {
	ID       string   `json:"id"`
	Version  string   `json:"version"`
	Features []string `json:"features,omitempty"`
}

// Server serves the management API.
type Server struct {
	Flows    FlowStore
	Switches SwitchStore
	Info     Info
	// Config is rendered as TOML by the config endpoint.
	Config any
}

// Handler returns the routes of s. The caller mounts them under a base path.
func Handler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/info", s.GetInfo)
	r.Get("/config", s.GetConfig)
	r.Get("/flows", s.GetFlows)
	r.Get("/flows/{side}", s.GetSideFlows)
	r.Get("/switches", s.GetSwitches)
	r.Get("/log/level", s.GetLogLevel)
	r.Put("/log/level", s.SetLogLevel)
	return r
}

// GetInfo returns the controller description.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	api.SendJSON(w, http.StatusOK, s.Info)
}

// GetConfig returns the loaded configuration.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := toml.Marshal(s.Config)
	if err != nil {
		api.SendProblem(w, http.StatusInternalServerError, "encoding config", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write(raw)
}

type flowsRep struct {
	Up   []balance.Flow `json:"up"`
	Down []balance.Flow `json:"down"`
}

// GetFlows returns the routed connections of both sides.
func (s *Server) GetFlows(w http.ResponseWriter, r *http.Request) {
	snap := s.Flows.Snapshot()
	api.SendJSON(w, http.StatusOK, flowsRep{
		Up:   nonNil(snap[diamond.SideUp]),
		Down: nonNil(snap[diamond.SideDown]),
	})
}

// GetSideFlows returns the routed connections of one side.
func (s *Server) GetSideFlows(w http.ResponseWriter, r *http.Request) {
	side := diamond.Side(chi.URLParam(r, "side"))
	if side != diamond.SideUp && side != diamond.SideDown {
		api.SendProblem(w, http.StatusBadRequest, "malformed side",
			"side must be one of up, down")
		return
	}
	api.SendJSON(w, http.StatusOK, nonNil(s.Flows.Snapshot()[side]))
}

// GetSwitches returns the state of the four diamond switches.
func (s *Server) GetSwitches(w http.ResponseWriter, r *http.Request) {
	api.SendJSON(w, http.StatusOK, s.Switches.Switches())
}

type logLevel struct {
	Level string `json:"level"`
}

// GetLogLevel returns the current console log level.
func (s *Server) GetLogLevel(w http.ResponseWriter, r *http.Request) {
	api.SendJSON(w, http.StatusOK, logLevel{
		Level: zapcore.Level(log.CurrentLevel()).String(),
	})
}

// SetLogLevel changes the console log level.
func (s *Server) SetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req logLevel
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.SendProblem(w, http.StatusBadRequest, "malformed body", err.Error())
		return
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(req.Level)); err != nil {
		api.SendProblem(w, http.StatusBadRequest, "unknown level", err.Error())
		return
	}
	log.SetLevel(log.Level(lvl))
	log.Info("Changed log level", "level", lvl.String())
	api.SendJSON(w, http.StatusOK, logLevel{Level: lvl.String()})
}

func nonNil(flows []balance.Flow) []balance.Flow {
	if flows == nil {
		return []balance.Flow{}
	}
	return flows
}
