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
	"sync"
	"time"

	"github.com/genesis-run/genesis/pkg/capability"
)

// DefaultChainStaleTimeout is how long a Chain.Start may go without a
// matching Complete or Error before Sweep drops it from the open calls.
const DefaultChainStaleTimeout = 2 * time.Minute

// DefaultEdgeOrphanGrace is how long an Edge may reference a node that has
// not yet arrived before the graph drops it as orphaned.
const DefaultEdgeOrphanGrace = 30 * time.Second

// Node is one participant's current lifecycle state as seen by the graph.
type Node struct {
	ID        string
	Name      string
	Type      capability.NodeType
	State     capability.NodeState
	UpdatedAt time.Time
}

// Edge is one observed relationship between two participants.
type Edge struct {
	SourceID  string
	TargetID  string
	Type      capability.EdgeType
	UpdatedAt time.Time
}

// chainState tracks one in-flight RPC call for stale detection.
type chainState struct {
	payload   capability.ChainPayload
	startedAt time.Time
}

// Graph is the in-memory reconstruction of the monitoring streams: nodes
// with their Busy/Ready/Failed/Departed lifecycle, edges between them, and
// open chains awaiting completion.
type Graph struct {
	mu              sync.RWMutex
	nodes           map[string]Node
	edges           map[string]Edge
	pendingEdges    map[string]time.Time // edge key -> first-seen time, awaiting an endpoint
	openChains      map[string]chainState
	chainStale      time.Duration
	edgeOrphanGrace time.Duration
}

// NewGraph builds an empty Graph with the default staleness windows.
func NewGraph() *Graph {
	return &Graph{
		nodes:           make(map[string]Node),
		edges:           make(map[string]Edge),
		pendingEdges:    make(map[string]time.Time),
		openChains:      make(map[string]chainState),
		chainStale:      DefaultChainStaleTimeout,
		edgeOrphanGrace: DefaultEdgeOrphanGrace,
	}
}

// ApplyTopology folds one Node or Edge sample into the graph.
func (g *Graph) ApplyTopology(t capability.TopologySample) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch t.Kind {
	case capability.TopologyNode:
		g.nodes[t.ElementID] = Node{
			ID:        t.ElementID,
			Name:      t.ComponentName,
			Type:      t.ComponentType,
			State:     t.State,
			UpdatedAt: t.Timestamp,
		}
		for key := range g.pendingEdges {
			if e, ok := g.edges[key]; ok && e.TargetID == t.ElementID {
				delete(g.pendingEdges, key)
			}
		}
	case capability.TopologyEdge:
		key := t.SourceID + "->" + t.TargetID + ":" + string(t.EdgeType)
		g.edges[key] = Edge{SourceID: t.SourceID, TargetID: t.TargetID, Type: t.EdgeType, UpdatedAt: t.Timestamp}
		if _, ok := g.nodes[t.TargetID]; !ok {
			g.pendingEdges[key] = t.Timestamp
		}
	}
}

// ApplyEvent folds one Chain event into the graph, toggling a node between
// Ready and Busy as its chains open and close. Events of any other kind are
// ignored.
func (g *Graph) ApplyEvent(ev capability.Event) {
	if ev.Kind != capability.EventChain {
		return
	}
	var payload capability.ChainPayload
	if !decodePayload(ev.Payload, &payload) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch payload.EventType {
	case capability.ChainStart:
		g.openChains[payload.CallID] = chainState{payload: payload, startedAt: ev.Timestamp}
		g.setNodeState(payload.SourceID, capability.NodeBusy, ev.Timestamp)
	case capability.ChainComplete, capability.ChainError:
		delete(g.openChains, payload.CallID)
		if !g.sourceHasOpenChains(payload.SourceID) {
			g.setNodeState(payload.SourceID, capability.NodeReady, ev.Timestamp)
		}
	}
}

func (g *Graph) sourceHasOpenChains(sourceID string) bool {
	for _, c := range g.openChains {
		if c.payload.SourceID == sourceID {
			return true
		}
	}
	return false
}

func (g *Graph) setNodeState(id string, state capability.NodeState, at time.Time) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	n.State = state
	n.UpdatedAt = at
	g.nodes[id] = n
}

// Sweep drops any chain open longer than the stale timeout from the open
// calls, restoring its source node to Ready once it has no other open calls,
// and drops any edge still orphaned past its grace period. No Chain.Error
// event with ChainAbandoned status is produced for a dropped chain. Callers
// run this on a ticker.
func (g *Graph) Sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for callID, c := range g.openChains {
		if now.Sub(c.startedAt) > g.chainStale {
			delete(g.openChains, callID)
			if !g.sourceHasOpenChains(c.payload.SourceID) {
				g.setNodeState(c.payload.SourceID, capability.NodeReady, now)
			}
		}
	}
	for key, firstSeen := range g.pendingEdges {
		if now.Sub(firstSeen) > g.edgeOrphanGrace {
			delete(g.edges, key)
			delete(g.pendingEdges, key)
		}
	}
}

// Nodes returns a snapshot of every node currently in the graph.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns a snapshot of every edge currently in the graph.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

func decodePayload(m map[string]any, out *capability.ChainPayload) bool {
	if m == nil {
		return false
	}
	get := func(k string) string {
		v, _ := m[k].(string)
		return v
	}
	out.ChainID = get("chain_id")
	out.CallID = get("call_id")
	out.ParentCallID = get("parent_call_id")
	out.SourceID = get("source_id")
	out.TargetID = get("target_id")
	out.EventType = capability.ChainEventType(get("event_type"))
	out.Status = get("status")
	return out.CallID != ""
}
