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

// Package llmtest provides a scripted fake implementation of router.LLM for
// unit tests that exercise the reasoning loop without a real model.
package llmtest

import (
	"context"

	"github.com/genesis-run/genesis/pkg/router"
)

// Fake replays a fixed sequence of Completions, one per call to Complete,
// and records every call it received for assertions.
type Fake struct {
	Completions []router.Completion
	Calls       []Call

	next int
}

// Call records one invocation of Complete for later inspection.
type Call struct {
	Messages []router.Message
	Tools    []router.Schema
}

// New builds a Fake that returns completions in order, then repeats the
// last one if Complete is called more times than there are completions.
func New(completions ...router.Completion) *Fake {
	return &Fake{Completions: completions}
}

// Complete implements router.LLM.
func (f *Fake) Complete(_ context.Context, messages []router.Message, tools []router.Schema) (router.Completion, error) {
	f.Calls = append(f.Calls, Call{Messages: append([]router.Message(nil), messages...), Tools: tools})

	if len(f.Completions) == 0 {
		return router.Completion{}, nil
	}
	idx := f.next
	if idx >= len(f.Completions) {
		idx = len(f.Completions) - 1
	} else {
		f.next++
	}
	return f.Completions[idx], nil
}
