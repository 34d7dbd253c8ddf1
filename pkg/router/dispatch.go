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
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/rpc"
)

// ChainPublisher is the subset of *monitoring.Monitor the Dispatcher needs
// to record a dispatched call's chain events and, for RPC-bound calls, the
// RpcRequest edge to its target. Narrowed to an interface so router never
// imports package monitoring.
type ChainPublisher interface {
	PublishChainEvent(ctx context.Context, payload capability.ChainPayload) error
	PublishEdge(ctx context.Context, targetID string, edgeType capability.EdgeType) error
}

// FunctionCaller is the subset of the Agent->Function RPC channel the
// router needs, narrowed for testability.
type FunctionCaller interface {
	Call(ctx context.Context, fn capability.Function, argumentsJSON string) (capability.FunctionReply, error)
}

// AgentCaller is the subset of the Agent<->Agent RPC channel the router
// needs.
type AgentCaller interface {
	Call(ctx context.Context, targetKey string, req capability.AgentAgentRequest) (capability.AgentReply, error)
}

// Dispatcher resolves and invokes bound tools by name.
type Dispatcher struct {
	functions    FunctionCaller
	agents       AgentCaller
	functionByID map[string]capability.Function
	log          *slog.Logger

	// ChainID and HopCount propagate to every KindAgent call this
	// dispatcher makes, so a chain of delegations can be traced end to
	// end and bounded by max hops.
	ChainID      string
	ParentCallID string
	HopCount     int
	MaxHops      int

	// Monitor, when set, receives a Chain.Start/Complete-or-Error pair for
	// every dispatched call and an RpcRequest edge for every Function or
	// Agent dispatch. ComponentID identifies this dispatcher's own agent
	// as the chain events' and edges' source. Nil Monitor disables
	// publication entirely, which keeps the Dispatcher usable standalone
	// in tests.
	Monitor     ChainPublisher
	ComponentID string
}

// NewDispatcher builds a Dispatcher. functionByID must contain every
// Function a Binding of KindFunction can reference.
func NewDispatcher(functions FunctionCaller, agents AgentCaller, functionByID map[string]capability.Function, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{functions: functions, agents: agents, functionByID: functionByID, log: log}
}

// DispatchAll invokes every call concurrently against the current bound
// set, returning results in the same order the calls were issued. One
// call's failure never prevents the others from completing.
func (d *Dispatcher) DispatchAll(ctx context.Context, bound []Binding, calls []Call) []Result {
	byName := make(map[string]Binding, len(bound))
	for _, b := range bound {
		byName[b.Schema.Name] = b
	}

	results := make([]Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			b, ok := byName[call.Name]
			if !ok {
				results[i] = Result{CallID: call.ID, Name: call.Name, Error: fmt.Sprintf("unknown tool %q", call.Name)}
				return nil
			}
			results[i] = d.dispatchOne(gctx, b, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, b Binding, call Call) Result {
	switch b.Kind {
	case KindFunction:
		return d.dispatchFunction(ctx, b, call)
	case KindAgent:
		return d.dispatchAgent(ctx, b, call)
	case KindLocal:
		return d.dispatchLocal(ctx, b, call)
	default:
		return Result{CallID: call.ID, Name: call.Name, Error: "unknown dispatch kind"}
	}
}

func (d *Dispatcher) dispatchFunction(ctx context.Context, b Binding, call Call) Result {
	fn, ok := d.functionByID[b.FunctionID]
	if !ok {
		return Result{CallID: call.ID, Name: call.Name, Error: "function capability no longer discovered"}
	}

	callID := d.startChain(ctx, fn.ProviderServiceID)
	d.publishEdge(ctx, fn.ProviderServiceID, capability.EdgeRpcRequest)

	reply, err := d.functions.Call(ctx, fn, call.ArgumentsJSON)
	if err != nil {
		d.completeChain(ctx, fn.ProviderServiceID, callID, err.Error())
		return Result{CallID: call.ID, Name: call.Name, Error: err.Error()}
	}
	if reply.Status != 0 {
		d.completeChain(ctx, fn.ProviderServiceID, callID, reply.ErrorMessage)
		return Result{CallID: call.ID, Name: call.Name, Error: reply.ErrorMessage}
	}
	d.completeChain(ctx, fn.ProviderServiceID, callID, "")
	return Result{CallID: call.ID, Name: call.Name, ResultJSON: reply.ResultJSON}
}

func (d *Dispatcher) dispatchAgent(ctx context.Context, b Binding, call Call) Result {
	if err := rpc.CheckHopCount(capability.AgentAgentRequest{ChainID: d.ChainID, HopCount: d.HopCount}, d.MaxHops); err != nil {
		return Result{CallID: call.ID, Name: call.Name, Error: err.Error()}
	}

	callID := d.startChain(ctx, b.AgentID)
	d.publishEdge(ctx, b.AgentID, capability.EdgeRpcRequest)

	req := capability.AgentAgentRequest{
		Message:      argumentsMessage(call.ArgumentsJSON),
		ChainID:      d.ChainID,
		ParentCallID: callID,
		HopCount:     d.HopCount + 1,
	}
	reply, err := d.agents.Call(ctx, b.AgentID, req)
	if err != nil {
		d.completeChain(ctx, b.AgentID, callID, err.Error())
		return Result{CallID: call.ID, Name: call.Name, Error: err.Error()}
	}
	if reply.Status != 0 {
		d.completeChain(ctx, b.AgentID, callID, reply.ErrorMessage)
		return Result{CallID: call.ID, Name: call.Name, Error: reply.ErrorMessage}
	}
	d.completeChain(ctx, b.AgentID, callID, "")
	return Result{CallID: call.ID, Name: call.Name, ResultJSON: reply.Message}
}

func (d *Dispatcher) dispatchLocal(ctx context.Context, b Binding, call Call) Result {
	callID := d.startChain(ctx, d.ComponentID)

	out, err := b.Local(ctx, call.ArgumentsJSON)
	if err != nil {
		d.completeChain(ctx, d.ComponentID, callID, err.Error())
		return Result{CallID: call.ID, Name: call.Name, Error: err.Error()}
	}
	d.completeChain(ctx, d.ComponentID, callID, "")
	return Result{CallID: call.ID, Name: call.Name, ResultJSON: out}
}

// startChain publishes a Chain.Start event for a freshly dispatched call and
// returns its call_id, or "" when no Monitor is wired (e.g. in unit tests).
func (d *Dispatcher) startChain(ctx context.Context, targetID string) string {
	if d.Monitor == nil {
		return ""
	}
	callID := uuid.NewString()
	if err := d.Monitor.PublishChainEvent(ctx, capability.ChainPayload{
		ChainID:      d.ChainID,
		CallID:       callID,
		ParentCallID: d.ParentCallID,
		SourceID:     d.ComponentID,
		TargetID:     targetID,
		EventType:    capability.ChainStart,
	}); err != nil {
		d.log.Warn("router: publish chain start failed", "target", targetID, "error", err)
	}
	return callID
}

// completeChain publishes the matching Chain.Complete (errMsg empty) or
// Chain.Error event for a call_id startChain returned. A "" callID (no
// Monitor wired) is a no-op.
func (d *Dispatcher) completeChain(ctx context.Context, targetID, callID, errMsg string) {
	if d.Monitor == nil || callID == "" {
		return
	}
	eventType := capability.ChainComplete
	if errMsg != "" {
		eventType = capability.ChainError
	}
	if err := d.Monitor.PublishChainEvent(ctx, capability.ChainPayload{
		ChainID:      d.ChainID,
		CallID:       callID,
		ParentCallID: d.ParentCallID,
		SourceID:     d.ComponentID,
		TargetID:     targetID,
		EventType:    eventType,
		Status:       errMsg,
	}); err != nil {
		d.log.Warn("router: publish chain completion failed", "target", targetID, "error", err)
	}
}

func (d *Dispatcher) publishEdge(ctx context.Context, targetID string, edgeType capability.EdgeType) {
	if d.Monitor == nil {
		return
	}
	if err := d.Monitor.PublishEdge(ctx, targetID, edgeType); err != nil {
		d.log.Warn("router: publish edge failed", "target", targetID, "error", err)
	}
}

// argumentsMessage extracts a human-readable message from a delegate-tool
// call's arguments JSON, falling back to the raw JSON if it has no
// "message" field.
func argumentsMessage(argumentsJSON string) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(argumentsJSON), &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return argumentsJSON
}
