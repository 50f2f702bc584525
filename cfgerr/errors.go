// Copyright 2026 The Cascade Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfgerr defines the error taxonomy shared by the configuration and
// memory-stream packages. Every error raised across package boundaries is a
// *Error carrying a Kind, so callers can branch on failure category without
// depending on any package's internal sentinel values.
package cfgerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Unknown is the zero value; it should never be returned deliberately.
	Unknown Kind = iota
	// InvalidArgument covers nil/negative inputs and malformed paths.
	InvalidArgument
	// NotSupported covers seeking an unseekable stream, comments on a
	// strategy without comment support, persistence calls on non-root
	// nodes, and attaching a block with a pre-existing predecessor.
	NotSupported
	// AlreadyExists covers adding an item where one already exists.
	AlreadyExists
	// NotFound covers reading a missing item with inheritance disabled.
	NotFound
	// TypeMismatch covers reading an item with the wrong requested type.
	TypeMismatch
	// Persistence covers unsupported types, non-assignable values, and
	// XML load/save/parse failures.
	Persistence
	// ObjectDisposed covers stream use after Close/Dispose.
	ObjectDisposed
	// Cancelled covers an async operation cancelled before or during
	// semaphore acquisition.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid-argument"
	case NotSupported:
		return "not-supported"
	case AlreadyExists:
		return "already-exists"
	case NotFound:
		return "not-found"
	case TypeMismatch:
		return "type-mismatch"
	case Persistence:
		return "persistence"
	case ObjectDisposed:
		return "object-disposed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every package in this
// module. Op identifies the failing operation (e.g. "config.Node.AddItem"),
// Path is the configuration or logical path involved, if any, and Err is the
// wrapped cause (may be nil for errors with no underlying cause).
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the wrapped cause so callers can errors.Is/errors.As
// against it.
func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for the given kind/operation/path, wrapping err
// (which may be nil).
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Is reports whether err is a *Error (possibly wrapped) of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is a *Error (possibly wrapped), or
// Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
