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

// Package command contains the sub-commands shared by the binaries.
package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netlab/diamond/private/config"
	"github.com/netlab/diamond/private/env"
)

// Pather returns the path of a command in the command tree.
type Pather interface {
	CommandPath() string
}

// StringPather is a Pather with a fixed path.
type StringPather string

func (s StringPather) CommandPath() string {
	return string(s)
}

// NewSample returns a command that prints a sample configuration.
func NewSample(pather Pather, cfg config.Sampler) *cobra.Command {
	name := strings.Fields(pather.CommandPath())[0]
	return &cobra.Command{
		Use:   "sample",
		Short: "Display sample configuration file",
		Example: fmt.Sprintf("  %[1]s sample > %[2]s.toml\n  %[2]s --config %[2]s.toml",
			pather.CommandPath(), name),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Sample(cmd.OutOrStdout(), nil, config.CtxMap{config.ID: name})
			return nil
		},
	}
}

// NewVersion returns a command that prints the version information.
func NewVersion(pather Pather) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show detailed version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s", pather.CommandPath(), env.VersionInfo())
			return nil
		},
	}
}
