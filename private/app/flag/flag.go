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

// Package flag contains pflag values for the command line tools.
package flag

import (
	"net"
	"net/netip"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/netlab/diamond/pkg/private/serrors"
)

var (
	_ pflag.Value = (*IPVal)(nil)
	_ pflag.Value = (*HostPortVal)(nil)
)

// IPVal is an IP address flag value.
type IPVal netip.Addr

func (v *IPVal) Set(val string) error {
	ip, err := netip.ParseAddr(val)
	if err != nil {
		return err
	}
	*v = IPVal(ip)
	return nil
}

func (v *IPVal) Type() string { return "ip" }

func (v *IPVal) String() string {
	if !netip.Addr(*v).IsValid() {
		return ""
	}
	return netip.Addr(*v).String()
}

// Addr returns the address, the zero value if the flag was not set.
func (v *IPVal) Addr() netip.Addr {
	return netip.Addr(*v)
}

// HostPortVal is a host:port flag value. A missing port is filled in with the
// default port.
type HostPortVal struct {
	Value       string
	DefaultPort string
}

func (v *HostPortVal) Set(val string) error {
	host, port, err := net.SplitHostPort(val)
	if err != nil {
		// Accept a bare host.
		host, port = val, v.DefaultPort
	}
	if port == "" {
		port = v.DefaultPort
	}
	if host == "" || port == "" {
		return serrors.New("invalid host:port", "value", val)
	}
	v.Value = net.JoinHostPort(host, port)
	return nil
}

func (v *HostPortVal) Type() string   { return "host:port" }
func (v *HostPortVal) String() string { return v.Value }

// RequiredIP registers an IP flag and marks it required.
func RequiredIP(fs *pflag.FlagSet, v *IPVal, name, usage string) {
	fs.Var(v, name, usage)
	if err := cobra.MarkFlagRequired(fs, name); err != nil {
		panic(err)
	}
}
