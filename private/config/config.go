// Copyright 2019 Anapaya Systems
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

// Package config defines how the configuration blocks of the controller are
// defaulted, validated and documented.
//
// Every block implements Config. InitDefaults fills in unset fields,
// Validate checks the result, and Sample writes a commented TOML example of
// the block. A block that nests other blocks calls the helpers of this
// package on them in the same order as its fields.
//
// Each sample has a test that decodes it into a pre-filled block and checks
// that the result equals the defaults, so documentation and code stay in
// sync. The envtest and mgmtapitest packages hold the shared checks.
//
// Sample may panic on write errors, samples are only written to buffers and
// the standard output.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/netlab/diamond/pkg/private/serrors"
)

// ID is the CtxMap key under which the instance ID of the sample is passed.
const ID = "id"

// Config is a configuration block.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator checks a block and all blocks nested in it.
type Validator interface {
	Validate() error
}

// Defaulter fills in the unset fields of a block and of all blocks nested in
// it. Fields that should keep a zero value must be set beforehand.
type Defaulter interface {
	InitDefaults()
}

// Sampler writes a commented TOML example of a block to dst.
type Sampler interface {
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler whose sample is a TOML table named ConfigName.
// The name is shared by all binaries embedding the block.
type TableSampler interface {
	Sampler
	ConfigName() string
}

// Path is the dotted name of a nested TOML table.
type Path []string

// Extend returns a copy of p with s appended.
func (p Path) Extend(s string) Path {
	return append(append(make(Path, 0, len(p)+1), p...), s)
}

// NoValidator can be embedded in blocks without validation.
type NoValidator struct{}

func (NoValidator) Validate() error { return nil }

// NoDefaulter can be embedded in blocks without defaults.
type NoDefaulter struct{}

func (NoDefaulter) InitDefaults() {}

// StringSampler is a table whose sample is the fixed Text.
type StringSampler struct {
	Text string
	Name string
}

func (s StringSampler) Sample(dst io.Writer, _ Path, _ CtxMap) { WriteString(dst, s.Text) }
func (s StringSampler) ConfigName() string                    { return s.Name }

// ValidateAll validates the blocks in order and stops at the first error.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("validating config", err, "block", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

// InitAll initializes the defaults of all blocks.
func InitAll(defaulters ...Defaulter) {
	for _, d := range defaulters {
		d.InitDefaults()
	}
}

// Decode strictly decodes raw TOML into cfg. Unknown keys are an error.
func Decode(raw []byte, cfg any) error {
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// LoadFile strictly decodes the TOML file into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading config file", err, "file", file)
	}
	if err := Decode(raw, cfg); err != nil {
		return serrors.Wrap("decoding config file", err, "file", file)
	}
	return nil
}
