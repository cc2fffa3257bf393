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

// The flowsignal tool sends open and close signals to the diamond controller.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/netlab/diamond/controller/signal"
	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/app/command"
	"github.com/netlab/diamond/private/app/flag"
)

const defaultSignalPort = "6634"

func main() {
	if err := newRoot().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func newRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flowsignal",
		Short:         "Send connection signals to the diamond controller and list its flows",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}
	cmd.AddCommand(
		newSignal(cmd, signal.StateOpen),
		newSignal(cmd, signal.StateClose),
		newFlows(cmd),
		command.NewVersion(cmd),
		command.NewGendocs(cmd),
	)
	return cmd
}

type result struct {
	To    string `json:"to" yaml:"to"`
	State string `json:"state" yaml:"state"`
	Src   string `json:"src" yaml:"src"`
	Dest  string `json:"dest" yaml:"dest"`
}

func newSignal(pather command.Pather, state string) *cobra.Command {
	var flags struct {
		src     flag.IPVal
		dest    flag.IPVal
		to      flag.HostPortVal
		format  string
		timeout time.Duration
	}
	flags.to = flag.HostPortVal{
		Value:       "127.0.0.1:" + defaultSignalPort,
		DefaultPort: defaultSignalPort,
	}

	cmd := &cobra.Command{
		Use:   state + " --src <ip> --dest <ip>",
		Short: fmt.Sprintf("Signal that a connection is %s", pastTense(state)),
		Example: fmt.Sprintf("  %[1]s %[2]s --src 10.0.0.1 --dest 10.0.0.3\n"+
			"  %[1]s %[2]s --src 10.0.0.1 --dest 10.0.0.3 --to 192.0.2.1",
			pather.CommandPath(), state),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			msg := signal.Message{
				State: state,
				Src:   flags.src.String(),
				Dest:  flags.dest.String(),
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()
			if err := signal.Publish(ctx, flags.to.Value, msg); err != nil {
				if serrors.IsTimeout(err) {
					return serrors.Wrap("sending signal timed out", err,
						"to", flags.to.Value, "timeout", flags.timeout)
				}
				return serrors.Wrap("sending signal", err)
			}

			res := result{To: flags.to.Value, State: state, Src: msg.Src, Dest: msg.Dest}
			switch flags.format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(res)
			}
			printf("Sent %s signal %s <-> %s to %s\n", state, res.Src, res.Dest, res.To)
			return nil
		},
	}
	flag.RequiredIP(cmd.Flags(), &flags.src, "src", "Source address of the connection")
	flag.RequiredIP(cmd.Flags(), &flags.dest, "dest", "Destination address of the connection")
	cmd.Flags().Var(&flags.to, "to", "Signal address of the controller")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 2*time.Second,
		"Time to wait until the signal is handed to the socket")
	return cmd
}

// getPrintf returns a printf function for the "human" format and an empty one
// for the machine readable formats.
func getPrintf(output string, w io.Writer) (func(format string, ctx ...any), error) {
	switch output {
	case "human":
		return func(format string, ctx ...any) {
			fmt.Fprintf(w, format, ctx...)
		}, nil
	case "yaml", "json":
		return func(format string, ctx ...any) {}, nil
	default:
		return nil, serrors.New("format not supported", "format", output)
	}
}

func pastTense(state string) string {
	if state == signal.StateOpen {
		return "opened"
	}
	return "closed"
}
