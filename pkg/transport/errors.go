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

package transport

import "fmt"

// Error wraps a transport-level failure with the topic and operation that
// produced it.
type Error struct {
	Op    string
	Topic string
	Err   error
}

func (e *Error) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %s %q: %v", e.Op, e.Topic, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op, topic string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Topic: topic, Err: err}
}
