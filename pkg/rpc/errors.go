// Copyright 2026 The Genesis Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rpc implements the three correlated request/reply channels —
// Interface<->Agent, Agent<->Agent and Agent->Function — over the transport
// substrate, each with bounded timeouts and a typed error taxonomy.
package rpc

import "fmt"

// Code classifies why a call failed, independent of the responder's own
// business-level error message.
type Code int

const (
	// CodeBusinessError means the responder itself reported a failure;
	// ErrorMessage carries its explanation.
	CodeBusinessError Code = iota
	// CodeTimeout means no reply arrived before the caller's deadline.
	CodeTimeout
	// CodeNoProvider means no live responder was reachable for the target.
	CodeNoProvider
	// CodeInvalidRequest means the request failed schema validation before
	// it was ever sent.
	CodeInvalidRequest
	// CodeBusy means the responder rejected the call because it was
	// already servicing another request (single-flight agents).
	CodeBusy
	// CodeShuttingDown means the responder is draining and refusing new
	// work.
	CodeShuttingDown
)

func (c Code) String() string {
	switch c {
	case CodeBusinessError:
		return "BusinessError"
	case CodeTimeout:
		return "Timeout"
	case CodeNoProvider:
		return "NoProvider"
	case CodeInvalidRequest:
		return "InvalidRequest"
	case CodeBusy:
		return "Busy"
	case CodeShuttingDown:
		return "ShuttingDown"
	default:
		return "Unknown"
	}
}

// Error is the uniform failure type returned by every RPC call.
type Error struct {
	Code    Code
	Target  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc %s -> %s: %s: %v", e.Code, e.Target, e.Message, e.Err)
	}
	return fmt.Sprintf("rpc %s -> %s: %s", e.Code, e.Target, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is an rpc.Error with CodeTimeout.
func IsTimeout(err error) bool {
	var e *Error
	return asRPCError(err, &e) && e.Code == CodeTimeout
}

// IsNoProvider reports whether err is an rpc.Error with CodeNoProvider.
func IsNoProvider(err error) bool {
	var e *Error
	return asRPCError(err, &e) && e.Code == CodeNoProvider
}

func asRPCError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
