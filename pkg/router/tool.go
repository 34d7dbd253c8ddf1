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

// Package router implements the unified tool router: it binds Function
// Capabilities, discovered Agents, and process-local tools into one LLM
// tool schema, dispatches calls concurrently, and runs the bounded
// reasoning loop that ties an LLM to all three.
package router

import "context"

// Kind discriminates where a bound tool's call is actually dispatched.
type Kind int

const (
	// KindFunction dispatches over the Agent->Function RPC channel.
	KindFunction Kind = iota
	// KindAgent dispatches over the Agent<->Agent RPC channel.
	KindAgent
	// KindLocal calls a process-local Go function directly, no RPC hop.
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "Function"
	case KindAgent:
		return "Agent"
	case KindLocal:
		return "Local"
	default:
		return "Unknown"
	}
}

// Schema is the LLM-facing tool schema: name, description and JSON Schema
// parameters, the same triple every LLM function-calling API expects.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// LocalHandler is the signature a process-local tool implements.
type LocalHandler func(ctx context.Context, argumentsJSON string) (string, error)

// Binding is one entry in the router's bound tool set: the schema exposed
// to the LLM, the dispatch kind, and enough identity to route a call.
type Binding struct {
	Schema Schema
	Kind   Kind

	// FunctionID identifies the backing Function Capability when Kind is
	// KindFunction.
	FunctionID string
	// AgentID identifies the backing Agent when Kind is KindAgent.
	AgentID string
	// Local is invoked directly when Kind is KindLocal.
	Local LocalHandler
}

// Call is one LLM-issued invocation of a bound tool.
type Call struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// Result is the outcome of dispatching a Call.
type Result struct {
	CallID     string
	Name       string
	ResultJSON string
	Error      string
}
