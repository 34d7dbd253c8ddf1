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

// Package agent composes the transport, discovery, rpc and router packages
// into one running participant: a primary agent or a specialist, serving
// its inbound RPC channels and answering through the unified tool router.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/discovery"
	"github.com/genesis-run/genesis/pkg/monitoring"
	"github.com/genesis-run/genesis/pkg/router"
	"github.com/genesis-run/genesis/pkg/rpc"
	"github.com/genesis-run/genesis/pkg/transport"
)

// Config describes one agent's static identity and reasoning limits.
type Config struct {
	AgentID            string
	DisplayName        string
	Type               capability.AgentType
	Specializations    []string
	Capabilities       []string
	ClassificationTags []string
	DefaultCapable     bool
	MaxToolRounds      int
	MaxHops            int
}

// Agent owns one participant's Monitor, Discovery client and Router, and
// answers whichever RPC channels its role requires: a DefaultCapable agent
// serves Interface<->Agent, every agent serves Agent<->Agent as a delegation
// target for specialists.
type Agent struct {
	cfg Config

	participant *transport.Participant
	monitor     *monitoring.Monitor
	discovery   *discovery.Client

	agentChan    *rpc.AgentAgentChannel
	functionChan *rpc.FunctionChannel

	binder    *router.Binder
	llm       router.LLM
	log       *slog.Logger
	presenceW *transport.Writer
	capW      *transport.Writer
}

// New builds an Agent bound to p, advertises its capability record, and
// starts its liveliness assertion and graph consumption. It does not block;
// call Serve to run until ctx is canceled.
func New(ctx context.Context, p *transport.Participant, cfg Config, llm router.LLM, locals []router.Binding, log *slog.Logger) (*Agent, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxToolRounds < 1 {
		cfg.MaxToolRounds = 8
	}
	if cfg.MaxHops < 1 {
		cfg.MaxHops = 4
	}

	mon, err := monitoring.NewMonitor(p, cfg.AgentID, log)
	if err != nil {
		return nil, fmt.Errorf("agent %s: monitor: %w", cfg.AgentID, err)
	}
	if err := mon.Consume(ctx, p); err != nil {
		return nil, fmt.Errorf("agent %s: monitor consume: %w", cfg.AgentID, err)
	}

	disco, err := discovery.NewClient(ctx, p, log)
	if err != nil {
		return nil, fmt.Errorf("agent %s: discovery: %w", cfg.AgentID, err)
	}

	presenceW, err := transport.NewWriter(p, discovery.TopicPresence)
	if err != nil {
		return nil, err
	}
	capW, err := transport.NewWriter(p, discovery.TopicAgentCapability)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:          cfg,
		participant:  p,
		monitor:      mon,
		discovery:    disco,
		agentChan:    rpc.NewAgentAgentChannel(p, log),
		functionChan: rpc.NewFunctionChannel(p, log),
		binder:       router.NewBinder(locals),
		llm:          llm,
		log:          log,
		presenceW:    presenceW,
		capW:         capW,
	}

	if err := a.advertise(ctx); err != nil {
		return nil, err
	}

	go transport.NewLivelinessAsserter(presenceW, cfg.AgentID, a.presencePayload).Run(ctx)
	go transport.NewLivelinessAsserter(capW, cfg.AgentID, a.capabilityPayload).Run(ctx)
	go a.monitor.RunSweeper(ctx, 10*time.Second)
	go a.watchDiscoveries(ctx)

	return a, nil
}

func (a *Agent) advertise(ctx context.Context) error {
	if err := a.presenceW.Write(ctx, a.cfg.AgentID, a.presencePayload()); err != nil {
		return err
	}
	if err := a.capW.Write(ctx, a.cfg.AgentID, a.capabilityPayload()); err != nil {
		return err
	}
	return a.monitor.PublishNode(ctx, a.cfg.DisplayName, nodeType(a.cfg.Type), capability.NodeReady)
}

func nodeType(t capability.AgentType) capability.NodeType {
	if t == capability.AgentTypeSpecialist {
		return capability.NodeSpecialist
	}
	return capability.NodePrimaryAgent
}

func (a *Agent) presencePayload() []byte {
	p := capability.Presence{AgentID: a.cfg.AgentID, DisplayName: a.cfg.DisplayName, Role: capability.RoleAgent}
	b, _ := json.Marshal(p)
	return b
}

func (a *Agent) capabilityPayload() []byte {
	c := capability.Agent{
		AgentID:            a.cfg.AgentID,
		ServiceEndpoint:    a.cfg.AgentID,
		DisplayName:        a.cfg.DisplayName,
		AgentType:          a.cfg.Type,
		Specializations:    a.cfg.Specializations,
		Capabilities:       a.cfg.Capabilities,
		ClassificationTags: a.cfg.ClassificationTags,
		DefaultCapable:     a.cfg.DefaultCapable,
	}
	b, _ := json.Marshal(c)
	return b
}

// watchDiscoveries publishes a Discovers edge to every Agent or Function
// capability this agent's discovery client adds to its caches, until ctx is
// canceled.
func (a *Agent) watchDiscoveries(ctx context.Context) {
	agentEvents := a.discovery.Agents.Watch()
	fnEvents := a.discovery.Functions.Watch()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-agentEvents:
			if ev.Kind != discovery.Added {
				continue
			}
			if err := a.monitor.PublishEdge(ctx, ev.Item.AgentID, capability.EdgeDiscovers); err != nil {
				a.log.Warn("agent: publish discovers edge failed", "target", ev.Item.AgentID, "error", err)
			}
		case ev := <-fnEvents:
			if ev.Kind != discovery.Added {
				continue
			}
			if err := a.monitor.PublishEdge(ctx, ev.Item.FunctionID, capability.EdgeDiscovers); err != nil {
				a.log.Warn("agent: publish discovers edge failed", "target", ev.Item.FunctionID, "error", err)
			}
		}
	}
}

// Monitor returns this agent's monitoring handle, for serving /healthz,
// /metrics and /graph alongside it.
func (a *Agent) Monitor() *monitoring.Monitor { return a.monitor }

// Serve answers this agent's Interface<->Agent (when DefaultCapable) and
// Agent<->Agent RPC channels until ctx is canceled.
func (a *Agent) Serve(ctx context.Context) error {
	if a.cfg.DefaultCapable {
		if _, err := rpc.Serve(ctx, "interface_agent", a.participant, rpc.TopicInterfaceAgent, a.cfg.AgentID, a.log, a.handleInterfaceRequest); err != nil {
			return err
		}
	}
	if _, err := rpc.Serve(ctx, "agent_agent", a.participant, rpc.TopicAgentAgent, a.cfg.AgentID, a.log, a.handleAgentRequest); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *Agent) handleInterfaceRequest(ctx context.Context, req capability.InterfaceAgentRequest) (capability.AgentReply, error) {
	// An interface-originated request starts a brand new chain: nothing
	// upstream of it carries a chain_id for this agent to reuse.
	chainID := uuid.NewString()
	rootCallID := uuid.NewString()

	if err := a.monitor.PublishChainEvent(ctx, capability.ChainPayload{
		ChainID:   chainID,
		CallID:    rootCallID,
		SourceID:  string(capability.NodeInterface),
		TargetID:  a.cfg.AgentID,
		EventType: capability.ChainStart,
	}); err != nil {
		a.log.Warn("agent: publish chain start failed", "chain_id", chainID, "error", err)
	}

	reply, err := a.converse(ctx, req.Message, chainID, 0, rootCallID)

	status := ""
	if err != nil {
		status = err.Error()
	} else if reply.Status != 0 {
		status = reply.ErrorMessage
	}
	eventType := capability.ChainComplete
	if status != "" {
		eventType = capability.ChainError
	}
	if pubErr := a.monitor.PublishChainEvent(ctx, capability.ChainPayload{
		ChainID:   chainID,
		CallID:    rootCallID,
		SourceID:  string(capability.NodeInterface),
		TargetID:  a.cfg.AgentID,
		EventType: eventType,
		Status:    status,
	}); pubErr != nil {
		a.log.Warn("agent: publish chain completion failed", "chain_id", chainID, "error", pubErr)
	}

	return reply, err
}

func (a *Agent) handleAgentRequest(ctx context.Context, req capability.AgentAgentRequest) (capability.AgentReply, error) {
	if err := rpc.CheckHopCount(req, a.cfg.MaxHops); err != nil {
		return capability.AgentReply{}, err
	}
	return a.converse(ctx, req.Message, req.ChainID, req.HopCount, req.ParentCallID)
}

func (a *Agent) converse(ctx context.Context, message, chainID string, hopCount int, parentCallID string) (capability.AgentReply, error) {
	bound := a.binder.Bind(a.discovery.Functions.List(), a.discovery.Agents.List())

	functionByID := make(map[string]capability.Function, a.discovery.Functions.Count())
	for _, fn := range a.discovery.Functions.List() {
		functionByID[fn.FunctionID] = fn
	}

	dispatcher := router.NewDispatcher(a.functionChan, a.agentChan, functionByID, a.log)
	dispatcher.ChainID = chainID
	dispatcher.ParentCallID = parentCallID
	dispatcher.HopCount = hopCount
	dispatcher.MaxHops = a.cfg.MaxHops
	dispatcher.Monitor = a.monitor
	dispatcher.ComponentID = a.cfg.AgentID

	r := router.NewRouter(a.llm, a.binder, dispatcher, a.cfg.MaxToolRounds, a.log)
	content, err := r.Run(ctx, bound, []router.Message{{Role: router.RoleUser, Content: message}})
	if err != nil {
		return capability.AgentReply{Status: 1, ErrorMessage: err.Error()}, nil
	}
	return capability.AgentReply{Status: 0, Message: content}, nil
}
