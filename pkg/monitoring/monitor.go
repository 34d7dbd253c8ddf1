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

// Package monitoring publishes the durable Topology stream and the
// volatile Event stream, consumes them into an in-memory graph state
// machine, and exposes both a Prometheus metrics surface and an OTel
// tracer as a parallel, non-authoritative observability signal.
package monitoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/transport"
)

// Topics used by the monitoring stream; exported so every participant
// publishes under the same QoS contract.
var (
	TopicTopology = transport.Topic{Name: "topology", QoS: transport.TopologyStreamQoS}
	TopicEvent    = transport.Topic{Name: "event", QoS: transport.EventStreamQoS}
)

// Monitor is a participant's handle onto the monitoring streams: a writer
// for each, and (for viewers and the agent it's embedded in) the consumed
// Graph reconstructed from them.
type Monitor struct {
	componentID string

	topologyWriter *transport.Writer
	eventWriter    *transport.Writer

	Graph *Graph
	log   *slog.Logger
}

// NewMonitor provisions both monitoring topics and returns a Monitor bound
// to componentID, the identity stamped on every sample this process emits.
func NewMonitor(p *transport.Participant, componentID string, log *slog.Logger) (*Monitor, error) {
	if log == nil {
		log = slog.Default()
	}
	topoWriter, err := transport.NewWriter(p, TopicTopology)
	if err != nil {
		return nil, err
	}
	eventWriter, err := transport.NewWriter(p, TopicEvent)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		componentID:    componentID,
		topologyWriter: topoWriter,
		eventWriter:    eventWriter,
		Graph:          NewGraph(),
		log:            log,
	}, nil
}

// PublishNode reports this component's own presence and lifecycle state.
func (m *Monitor) PublishNode(ctx context.Context, name string, typ capability.NodeType, state capability.NodeState) error {
	sample := capability.TopologySample{
		ElementID:     m.componentID,
		Kind:          capability.TopologyNode,
		Timestamp:     time.Now(),
		ComponentName: name,
		ComponentType: typ,
		State:         state,
	}
	return m.publishTopology(ctx, sample)
}

// PublishFunctionNode reports a hosted function's own node record, keyed by
// its function_id rather than this component's id, so the graph holds a
// node per advertised function alongside the service hosting it.
func (m *Monitor) PublishFunctionNode(ctx context.Context, functionID, name string) error {
	sample := capability.TopologySample{
		ElementID:     functionID,
		Kind:          capability.TopologyNode,
		Timestamp:     time.Now(),
		ComponentName: name,
		ComponentType: capability.NodeFunction,
		State:         capability.NodeReady,
	}
	return m.publishTopology(ctx, sample)
}

// PublishEdge reports a relationship this component observed, e.g. having
// discovered another participant or having issued it an RPC request.
func (m *Monitor) PublishEdge(ctx context.Context, targetID string, edgeType capability.EdgeType) error {
	sample := capability.TopologySample{
		ElementID: uuid.NewString(),
		Kind:      capability.TopologyEdge,
		Timestamp: time.Now(),
		SourceID:  m.componentID,
		TargetID:  targetID,
		EdgeType:  edgeType,
	}
	return m.publishTopology(ctx, sample)
}

func (m *Monitor) publishTopology(ctx context.Context, sample capability.TopologySample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return m.topologyWriter.Write(ctx, sample.ElementID, raw)
}

// PublishChainEvent reports one point (Start/Complete/Error) in an RPC
// call's lifecycle.
func (m *Monitor) PublishChainEvent(ctx context.Context, payload capability.ChainPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := capability.Event{
		EventID:     uuid.NewString(),
		Kind:        capability.EventChain,
		Timestamp:   time.Now(),
		ComponentID: m.componentID,
		Severity:    "info",
		Payload:     mustToMap(body),
	}
	return m.publishEvent(ctx, ev)
}

// PublishGeneral reports a free-form severity/message event, e.g. a
// service-level warning unrelated to any specific RPC chain.
func (m *Monitor) PublishGeneral(ctx context.Context, severity, message string) error {
	ev := capability.Event{
		EventID:     uuid.NewString(),
		Kind:        capability.EventGeneral,
		Timestamp:   time.Now(),
		ComponentID: m.componentID,
		Severity:    severity,
		Message:     message,
	}
	return m.publishEvent(ctx, ev)
}

func (m *Monitor) publishEvent(ctx context.Context, ev capability.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return m.eventWriter.Write(ctx, ev.EventID, raw)
}

func mustToMap(raw []byte) map[string]any {
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

// Consume subscribes to both monitoring streams and feeds every sample into
// Graph until ctx is canceled. Viewers and agents both call this to keep
// Graph current.
func (m *Monitor) Consume(ctx context.Context, p *transport.Participant) error {
	topoReader, err := transport.NewReader(p, TopicTopology)
	if err != nil {
		return err
	}
	eventReader, err := transport.NewReader(p, TopicEvent)
	if err != nil {
		return err
	}

	go m.consumeTopology(ctx, topoReader)
	go m.consumeEvents(ctx, eventReader)
	return nil
}

func (m *Monitor) consumeTopology(ctx context.Context, r *transport.Reader) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-r.Samples():
			if !ok {
				return
			}
			var t capability.TopologySample
			if err := json.Unmarshal(sample.Payload, &t); err != nil {
				m.log.Warn("monitoring: undecodable topology sample", "error", err)
				sample.Nak()
				continue
			}
			m.Graph.ApplyTopology(t)
			sample.Ack()
		}
	}
}

func (m *Monitor) consumeEvents(ctx context.Context, r *transport.Reader) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-r.Samples():
			if !ok {
				return
			}
			var ev capability.Event
			if err := json.Unmarshal(sample.Payload, &ev); err != nil {
				m.log.Warn("monitoring: undecodable event sample", "error", err)
				sample.Nak()
				continue
			}
			m.Graph.ApplyEvent(ev)
			sample.Ack()
		}
	}
}
