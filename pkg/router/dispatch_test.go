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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genesis-run/genesis/pkg/capability"
)

type fakePublisher struct {
	events []capability.ChainPayload
	edges  []capability.EdgeType
}

func (f *fakePublisher) PublishChainEvent(_ context.Context, payload capability.ChainPayload) error {
	f.events = append(f.events, payload)
	return nil
}

func (f *fakePublisher) PublishEdge(_ context.Context, _ string, edgeType capability.EdgeType) error {
	f.edges = append(f.edges, edgeType)
	return nil
}

type fakeFunctionCaller struct {
	reply capability.FunctionReply
	err   error
}

func (f *fakeFunctionCaller) Call(context.Context, capability.Function, string) (capability.FunctionReply, error) {
	return f.reply, f.err
}

type fakeAgentCaller struct {
	reply capability.AgentAgentRequest
	resp  capability.AgentReply
	err   error
}

func (f *fakeAgentCaller) Call(_ context.Context, _ string, req capability.AgentAgentRequest) (capability.AgentReply, error) {
	f.reply = req
	return f.resp, f.err
}

func TestDispatchFunctionEmitsMatchingStartCompleteAndRpcRequestEdge(t *testing.T) {
	pub := &fakePublisher{}
	fn := capability.Function{FunctionID: "fn-1", ProviderServiceID: "svc-1"}
	d := NewDispatcher(&fakeFunctionCaller{reply: capability.FunctionReply{ResultJSON: "42"}}, nil, map[string]capability.Function{"fn-1": fn}, nil)
	d.ChainID = "chain-1"
	d.Monitor = pub
	d.ComponentID = "agent-1"

	result := d.dispatchOne(context.Background(), Binding{Kind: KindFunction, FunctionID: "fn-1"}, Call{ID: "call-1", Name: "calc"})

	require.Empty(t, result.Error)
	require.Len(t, pub.events, 2)
	require.Equal(t, capability.ChainStart, pub.events[0].EventType)
	require.Equal(t, capability.ChainComplete, pub.events[1].EventType)
	require.Equal(t, pub.events[0].CallID, pub.events[1].CallID)
	require.NotEmpty(t, pub.events[0].CallID)
	require.Equal(t, "agent-1", pub.events[0].SourceID)
	require.Equal(t, "svc-1", pub.events[0].TargetID)
	require.Equal(t, []capability.EdgeType{capability.EdgeRpcRequest}, pub.edges)
}

func TestDispatchFunctionEmitsChainErrorOnFailure(t *testing.T) {
	pub := &fakePublisher{}
	fn := capability.Function{FunctionID: "fn-1", ProviderServiceID: "svc-1"}
	d := NewDispatcher(&fakeFunctionCaller{reply: capability.FunctionReply{Status: 1, ErrorMessage: "boom"}}, nil, map[string]capability.Function{"fn-1": fn}, nil)
	d.Monitor = pub

	result := d.dispatchOne(context.Background(), Binding{Kind: KindFunction, FunctionID: "fn-1"}, Call{ID: "call-1", Name: "calc"})

	require.Equal(t, "boom", result.Error)
	require.Len(t, pub.events, 2)
	require.Equal(t, capability.ChainError, pub.events[1].EventType)
	require.Equal(t, "boom", pub.events[1].Status)
}

func TestDispatchAgentPropagatesCallIDAsNestedParent(t *testing.T) {
	pub := &fakePublisher{}
	agents := &fakeAgentCaller{resp: capability.AgentReply{Message: "ok"}}
	d := NewDispatcher(nil, agents, nil, nil)
	d.ChainID = "chain-1"
	d.ParentCallID = "root-call"
	d.MaxHops = 4
	d.Monitor = pub

	result := d.dispatchOne(context.Background(), Binding{Kind: KindAgent, AgentID: "agent-weather"}, Call{ID: "call-1", Name: "ask_weather", ArgumentsJSON: `{"message":"hi"}`})

	require.Empty(t, result.Error)
	require.Len(t, pub.events, 2)
	startCallID := pub.events[0].CallID
	require.NotEqual(t, "root-call", startCallID)
	require.Equal(t, startCallID, agents.reply.ParentCallID)
	require.Equal(t, []capability.EdgeType{capability.EdgeRpcRequest}, pub.edges)
}

func TestDispatchLocalEmitsSelfScopedChainPair(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(nil, nil, nil, nil)
	d.Monitor = pub
	d.ComponentID = "agent-1"

	binding := Binding{Kind: KindLocal, Local: func(ctx context.Context, argumentsJSON string) (string, error) { return "ok", nil }}
	result := d.dispatchOne(context.Background(), binding, Call{ID: "call-1", Name: "local_tool"})

	require.Empty(t, result.Error)
	require.Empty(t, pub.edges)
	require.Len(t, pub.events, 2)
	require.Equal(t, "agent-1", pub.events[0].SourceID)
	require.Equal(t, "agent-1", pub.events[0].TargetID)
}

func TestDispatchWithoutMonitorSkipsPublicationSafely(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, nil)
	binding := Binding{Kind: KindLocal, Local: func(ctx context.Context, argumentsJSON string) (string, error) { return "ok", nil }}
	result := d.dispatchOne(context.Background(), binding, Call{ID: "call-1", Name: "local_tool"})
	require.Equal(t, "ok", result.ResultJSON)
}
