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

package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genesis-run/genesis/pkg/capability"
)

func TestGraphApplyTopologyNodeThenEdge(t *testing.T) {
	g := NewGraph()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	g.ApplyTopology(capability.TopologySample{
		ElementID: "agent-1", Kind: capability.TopologyNode,
		ComponentName: "Primary", ComponentType: capability.NodePrimaryAgent,
		State: capability.NodeReady, Timestamp: now,
	})
	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	require.Equal(t, capability.NodeReady, nodes[0].State)

	g.ApplyTopology(capability.TopologySample{
		Kind: capability.TopologyEdge, SourceID: "agent-1", TargetID: "fn-1",
		EdgeType: capability.EdgeRpcRequest, Timestamp: now,
	})
	edges := g.Edges()
	require.Len(t, edges, 1)
	require.Equal(t, "agent-1", edges[0].SourceID)
}

func TestGraphChainStartSetsBusyAndCompleteRestoresReady(t *testing.T) {
	g := NewGraph()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	g.ApplyTopology(capability.TopologySample{
		ElementID: "agent-1", Kind: capability.TopologyNode,
		ComponentType: capability.NodePrimaryAgent, State: capability.NodeReady, Timestamp: now,
	})

	startPayload := map[string]any{
		"chain_id": "chain-1", "call_id": "call-1", "source_id": "agent-1",
		"target_id": "agent-2", "event_type": string(capability.ChainStart),
	}
	g.ApplyEvent(capability.Event{Kind: capability.EventChain, Timestamp: now, Payload: startPayload})

	busy := g.Nodes()[0]
	require.Equal(t, capability.NodeBusy, busy.State)

	completePayload := map[string]any{
		"chain_id": "chain-1", "call_id": "call-1", "source_id": "agent-1",
		"target_id": "agent-2", "event_type": string(capability.ChainComplete),
	}
	g.ApplyEvent(capability.Event{Kind: capability.EventChain, Timestamp: now.Add(time.Second), Payload: completePayload})

	ready := g.Nodes()[0]
	require.Equal(t, capability.NodeReady, ready.State)
}

func TestGraphSweepClosesStaleChainsAndDropsOrphanEdges(t *testing.T) {
	g := NewGraph()
	g.chainStale = time.Minute
	g.edgeOrphanGrace = time.Minute
	start := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	g.ApplyTopology(capability.TopologySample{
		ElementID: "agent-1", Kind: capability.TopologyNode,
		ComponentType: capability.NodePrimaryAgent, State: capability.NodeReady, Timestamp: start,
	})
	g.ApplyEvent(capability.Event{Kind: capability.EventChain, Timestamp: start, Payload: map[string]any{
		"chain_id": "chain-1", "call_id": "call-1", "source_id": "agent-1",
		"target_id": "agent-2", "event_type": string(capability.ChainStart),
	}})
	g.ApplyTopology(capability.TopologySample{
		Kind: capability.TopologyEdge, SourceID: "agent-1", TargetID: "ghost-node",
		EdgeType: capability.EdgeRpcRequest, Timestamp: start,
	})

	g.Sweep(start.Add(30 * time.Second))
	require.Equal(t, capability.NodeBusy, g.Nodes()[0].State, "sweep before either window elapses changes nothing")
	require.Len(t, g.Edges(), 1)

	g.Sweep(start.Add(2 * time.Minute))
	require.Equal(t, capability.NodeReady, g.Nodes()[0].State, "stale chain should be closed and node restored to Ready")
	require.Empty(t, g.Edges(), "orphaned edge should be dropped past its grace period")
}

func TestDecodePayloadRejectsMissingCallID(t *testing.T) {
	var out capability.ChainPayload
	require.False(t, decodePayload(map[string]any{"chain_id": "chain-1"}, &out))
	require.False(t, decodePayload(nil, &out))
}
