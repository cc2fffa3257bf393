// Copyright 2016 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

// Package serrors provides errors that carry key value context for logging.
// For any err that wraps or joins err2, errors.Is(err, err2) holds.
package serrors

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type field struct {
	key   string
	value any
}

// ctxError is an error with a message or a base error, sorted key value
// context, and an optional cause.
type ctxError struct {
	msg    string
	base   error
	cause  error
	fields []field
}

func newCtxError(msg string, base, cause error, errCtx []any) *ctxError {
	fields := make([]field, 0, len(errCtx)/2)
	for i := 0; i+1 < len(errCtx); i += 2 {
		fields = append(fields, field{key: fmt.Sprint(errCtx[i]), value: errCtx[i+1]})
	}
	slices.SortStableFunc(fields, func(a, b field) int {
		return strings.Compare(a.key, b.key)
	})
	return &ctxError{msg: msg, base: base, cause: cause, fields: fields}
}

// New creates an error with the given message and context.
func New(msg string, errCtx ...any) error {
	return newCtxError(msg, nil, nil, errCtx)
}

// Wrap creates an error with the given message and context that wraps cause.
func Wrap(msg string, cause error, errCtx ...any) error {
	return newCtxError(msg, nil, cause, errCtx)
}

// Join associates err, typically a sentinel, with cause and context. Both
// err and cause match with errors.Is. Join returns nil if both are nil.
func Join(err, cause error, errCtx ...any) error {
	if err == nil {
		if cause == nil {
			return nil
		}
		err, cause = cause, nil
	}
	return newCtxError("", err, cause, errCtx)
}

func (e *ctxError) message() string {
	if e.base != nil {
		return e.base.Error()
	}
	return e.msg
}

func (e *ctxError) Error() string {
	var b strings.Builder
	b.WriteString(e.message())
	if len(e.fields) > 0 {
		b.WriteString(" {")
		for i, f := range e.fields {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s=%v", f.key, f.value)
		}
		b.WriteString("}")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ctxError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.base, e.cause} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e *ctxError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.message())
	if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
		if err := enc.AddObject("cause", m); err != nil {
			return err
		}
	} else if e.cause != nil {
		enc.AddString("cause", e.cause.Error())
	}
	for _, f := range e.fields {
		zap.Any(f.key, f.value).AddTo(enc)
	}
	return nil
}

// IsTimeout reports whether err is or is caused by a timeout error.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
