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


// Package feature maps the "features" list of the controller configuration
// onto a struct of boolean flags.
//
// Every bool field of a flag set is a feature. Its name is the value of the
// `feature` struct tag, or the field name if the tag is missing.
package feature

import (
	"errors"
	"reflect"
	"slices"

	"github.com/netlab/diamond/pkg/private/serrors"
)

// Default is the flag set of the controller.
type Default struct {
	// LearnIPv4Only restricts MAC learning to frames that carry an IPv4
	// header.
	LearnIPv4Only bool `feature:"learn_ipv4_only"`
}

// Parse enables the named features on set, which must be a non-nil pointer
// to a struct. All unknown names are reported in the returned error, in
// which case set is left untouched.
func Parse(names []string, set any) error {
	v := reflect.ValueOf(set)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return serrors.New("feature set must be a non-nil struct pointer",
			"type", reflect.TypeOf(set))
	}
	fields := index(v.Type())
	var errs []error
	for _, name := range names {
		if _, ok := fields[name]; !ok {
			errs = append(errs, serrors.New("feature not supported", "feature", name))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for _, name := range names {
		v.Elem().Field(fields[name]).SetBool(true)
	}
	return nil
}

// ParseDefault parses names into a Default flag set.
func ParseDefault(names []string) (Default, error) {
	var d Default
	if err := Parse(names, &d); err != nil {
		return Default{}, err
	}
	return d, nil
}

// Supported returns the sorted names of all features of set.
func Supported(set any) []string {
	return names(set, func(reflect.Value) bool { return true })
}

// Enabled returns the sorted names of the features that are set on set.
func Enabled(set any) []string {
	return names(set, reflect.Value.Bool)
}

func names(set any, keep func(reflect.Value) bool) []string {
	t := reflect.TypeOf(set)
	if t == nil {
		return nil
	}
	v := reflect.ValueOf(set)
	if t.Kind() == reflect.Pointer {
		if v.IsNil() {
			v = reflect.Zero(t.Elem())
		} else {
			v = v.Elem()
		}
	}
	var out []string
	for name, i := range index(t) {
		if keep(v.Field(i)) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// index maps feature names to field indexes.
func index(t reflect.Type) map[string]int {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Bool {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("feature"); ok && tag != "" {
			name = tag
		}
		m[name] = i
	}
	return m
}
