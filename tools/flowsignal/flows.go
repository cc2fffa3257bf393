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

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/app/command"
	"github.com/netlab/diamond/private/mgmtapi"
)

type flowRow struct {
	Side string `json:"side" yaml:"side"`
	A    string `json:"a" yaml:"a"`
	B    string `json:"b" yaml:"b"`
	Uses int    `json:"uses" yaml:"uses"`
}

var sideColors = map[string]color.Attribute{
	"up":   color.FgGreen,
	"down": color.FgCyan,
}

func newFlows(pather command.Pather) *cobra.Command {
	var flags struct {
		api     string
		side    string
		format  string
		timeout time.Duration
	}
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "List the connections routed by the controller",
		Example: "  " + pather.CommandPath() + " flows --api http://127.0.0.1:8080\n" +
			"  " + pather.CommandPath() + " flows --api http://127.0.0.1:8080 --side up",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := getPrintf(flags.format, cmd.OutOrStdout()); err != nil {
				return err
			}
			sides, err := selectSides(flags.side)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()
			flows, err := fetchFlows(ctx, flags.api)
			if err != nil {
				return err
			}
			rows := []flowRow{}
			for _, side := range sides {
				for _, f := range flows[side] {
					f.Side = side
					rows = append(rows, f)
				}
			}

			w := cmd.OutOrStdout()
			switch flags.format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml":
				enc := yaml.NewEncoder(w)
				defer enc.Close()
				return enc.Encode(rows)
			}
			renderFlows(w, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.api, "api", "http://127.0.0.1:8080",
		"Base URL of the controller management API")
	cmd.Flags().StringVar(&flags.side, "side", "",
		"Only list the connections of one side (up|down)")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second,
		"Timeout for the API request")
	return cmd
}

func selectSides(side string) ([]string, error) {
	switch side {
	case "":
		return []string{"up", "down"}, nil
	case "up", "down":
		return []string{side}, nil
	default:
		return nil, serrors.New("side not supported", "side", side)
	}
}

func fetchFlows(ctx context.Context, api string) (map[string][]flowRow, error) {
	url := strings.TrimSuffix(api, "/") + "/api/v1/flows"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, serrors.Wrap("building request", err, "url", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap("querying controller", err, "url", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var p mgmtapi.Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.Title == "" {
			return nil, serrors.New("unexpected response", "url", url, "status", resp.Status)
		}
		detail := ""
		if p.Detail != nil {
			detail = *p.Detail
		}
		return nil, serrors.New(p.Title, "status", p.Status, "detail", detail)
	}
	var flows map[string][]flowRow
	if err := json.NewDecoder(resp.Body).Decode(&flows); err != nil {
		return nil, serrors.Wrap("decoding flows", err, "url", url)
	}
	return flows, nil
}

func renderFlows(w io.Writer, rows []flowRow) {
	if len(rows) == 0 {
		io.WriteString(w, "No routed connections\n")
		return
	}
	colored := isTerminal(w)
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"SIDE", "HOST A", "HOST B", "USES"})
	for _, r := range rows {
		side := r.Side
		if colored {
			c := color.New(sideColors[r.Side])
			c.EnableColor()
			side = c.Sprint(side)
		}
		table.Append([]string{side, r.A, r.B, strconv.Itoa(r.Uses)})
	}
	table.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
