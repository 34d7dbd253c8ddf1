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

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/transport"
)

// Topics for the three RPC channels; all share RpcChannelQoS.
var (
	TopicInterfaceAgent = transport.Topic{Name: "interface_agent_request", QoS: transport.RpcChannelQoS}
	TopicAgentAgent     = transport.Topic{Name: "agent_agent_request", QoS: transport.RpcChannelQoS}
	TopicAgentFunction  = transport.Topic{Name: "function_request", QoS: transport.RpcChannelQoS}
)

// MaxHopsExceeded is the business error returned when an Agent<->Agent
// request arrives with hop_count already at or above the configured limit.
type MaxHopsExceeded struct {
	ChainID  string
	HopCount int
	Limit    int
}

func (e *MaxHopsExceeded) Error() string {
	return fmt.Sprintf("chain %s exceeded max hops: %d >= %d", e.ChainID, e.HopCount, e.Limit)
}

// InterfaceAgentChannel carries requests from a user-facing Interface to a
// primary agent.
type InterfaceAgentChannel = Channel[capability.InterfaceAgentRequest, capability.AgentReply]

// NewInterfaceAgentChannel binds the Interface<->Agent channel.
func NewInterfaceAgentChannel(p *transport.Participant, log *slog.Logger) *InterfaceAgentChannel {
	return NewChannel[capability.InterfaceAgentRequest, capability.AgentReply]("interface_agent", p, TopicInterfaceAgent, log)
}

// AgentAgentChannel carries requests from one agent to another, tracking
// the call chain across hops.
type AgentAgentChannel = Channel[capability.AgentAgentRequest, capability.AgentReply]

// NewAgentAgentChannel binds the Agent<->Agent channel.
func NewAgentAgentChannel(p *transport.Participant, log *slog.Logger) *AgentAgentChannel {
	return NewChannel[capability.AgentAgentRequest, capability.AgentReply]("agent_agent", p, TopicAgentAgent, log)
}

// CheckHopCount returns MaxHopsExceeded if req has already reached limit.
// Callers must check this before dispatching to an agent-as-tool handler;
// it is what turns an unbounded agent-to-agent cycle into a bounded error.
func CheckHopCount(req capability.AgentAgentRequest, limit int) error {
	if req.HopCount >= limit {
		return &MaxHopsExceeded{ChainID: req.ChainID, HopCount: req.HopCount, Limit: limit}
	}
	return nil
}

// FunctionChannel carries requests from an agent's tool router to a
// function-hosting service, validating arguments against the function's
// published parameter schema before the request ever leaves the process.
type FunctionChannel struct {
	inner *Channel[capability.FunctionRequest, capability.FunctionReply]
}

// NewFunctionChannel binds the Agent->Function channel.
func NewFunctionChannel(p *transport.Participant, log *slog.Logger) *FunctionChannel {
	return &FunctionChannel{inner: NewChannel[capability.FunctionRequest, capability.FunctionReply]("agent_function", p, TopicAgentFunction, log)}
}

// Call validates argumentsJSON against fn.ParameterSchema, then invokes the
// function and returns its reply. A schema violation never reaches the
// wire: it is reported as CodeInvalidRequest immediately.
func (c *FunctionChannel) Call(ctx context.Context, fn capability.Function, argumentsJSON string) (capability.FunctionReply, error) {
	var zero capability.FunctionReply

	if err := validateAgainstSchema(fn.ParameterSchema, argumentsJSON); err != nil {
		return zero, &Error{Code: CodeInvalidRequest, Target: fn.FunctionID, Message: "arguments do not satisfy parameter schema", Err: err}
	}

	req := capability.FunctionRequest{FunctionName: fn.Name, ArgumentsJSON: argumentsJSON}
	return c.inner.Call(ctx, fn.ProviderServiceID, req)
}

func validateAgainstSchema(schemaDoc map[string]any, argumentsJSON string) error {
	if len(schemaDoc) == 0 {
		return nil
	}
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("marshal parameter schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("function_parameters.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("load parameter schema: %w", err)
	}
	schema, err := compiler.Compile("function_parameters.json")
	if err != nil {
		return fmt.Errorf("compile parameter schema: %w", err)
	}

	var args any
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := schema.Validate(args); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
