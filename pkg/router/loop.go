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

package router

import (
	"context"
	"fmt"
	"log/slog"
)

// Role identifies the speaker of a Message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in the conversation passed to the LLM.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string // set on RoleTool messages, echoing the Call.ID answered
}

// Completion is what the LLM returns for one round: either a final answer,
// or a set of tool calls to run before it will produce one.
type Completion struct {
	Content   string
	ToolCalls []Call
}

// LLM is the narrow interface the reasoning loop needs. Anything wider
// (streaming, multi-modal input, provider-specific options) belongs behind
// this seam, not inside the loop.
type LLM interface {
	Complete(ctx context.Context, messages []Message, tools []Schema) (Completion, error)
}

// ErrMaxToolRoundsExceeded is returned when the loop exhausts its bounded
// number of tool-call rounds without the LLM producing a final answer.
type ErrMaxToolRoundsExceeded struct{ Limit int }

func (e *ErrMaxToolRoundsExceeded) Error() string {
	return fmt.Sprintf("exceeded max tool rounds (%d) without a final answer", e.Limit)
}

// Router ties an LLM, a Binder and a Dispatcher into the bounded reasoning
// loop: each round the LLM sees the current bound tool set, and any tool
// calls it issues are dispatched concurrently before the next round begins.
type Router struct {
	LLM           LLM
	Binder        *Binder
	Dispatcher    *Dispatcher
	MaxToolRounds int
	log           *slog.Logger
}

// NewRouter builds a Router. maxToolRounds bounds how many LLM<->tool
// round trips a single Run may take before giving up.
func NewRouter(llm LLM, binder *Binder, dispatcher *Dispatcher, maxToolRounds int, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	if maxToolRounds < 1 {
		maxToolRounds = 1
	}
	return &Router{LLM: llm, Binder: binder, Dispatcher: dispatcher, MaxToolRounds: maxToolRounds, log: log}
}

// Run executes the reasoning loop for one user message against the given
// bound tool set snapshot, returning the LLM's final content or an error if
// the round budget is exhausted first.
func (r *Router) Run(ctx context.Context, bound []Binding, history []Message) (string, error) {
	schemas := make([]Schema, len(bound))
	for i, b := range bound {
		schemas[i] = b.Schema
	}

	messages := append([]Message(nil), history...)

	for round := 0; round < r.MaxToolRounds; round++ {
		completion, err := r.LLM.Complete(ctx, messages, schemas)
		if err != nil {
			return "", fmt.Errorf("router: llm completion round %d: %w", round, err)
		}
		if len(completion.ToolCalls) == 0 {
			return completion.Content, nil
		}

		r.log.Debug("router: dispatching tool calls", "round", round, "count", len(completion.ToolCalls))
		results := r.Dispatcher.DispatchAll(ctx, bound, completion.ToolCalls)

		messages = append(messages, Message{Role: RoleAssistant, Content: completion.Content})
		for _, res := range results {
			content := res.ResultJSON
			if res.Error != "" {
				content = fmt.Sprintf(`{"error":%q}`, res.Error)
			}
			messages = append(messages, Message{Role: RoleTool, Content: content, ToolCallID: res.CallID})
		}
	}

	return "", &ErrMaxToolRoundsExceeded{Limit: r.MaxToolRounds}
}
