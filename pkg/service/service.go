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

// Package service composes the transport, discovery, rpc and monitoring
// packages into a function-hosting participant: it advertises one or more
// Function capabilities and answers the Agent->Function RPC channel for
// them, the symmetric counterpart of what package agent does for agents.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/discovery"
	"github.com/genesis-run/genesis/pkg/monitoring"
	"github.com/genesis-run/genesis/pkg/rpc"
	"github.com/genesis-run/genesis/pkg/transport"
)

// Handler runs one function call's business logic against its raw JSON
// arguments and returns the raw JSON result.
type Handler func(ctx context.Context, argumentsJSON string) (string, error)

// Function is one function capability a Service hosts: the record it
// advertises and the handler invoked for requests naming it.
type Function struct {
	Name            string
	Description     string
	ParameterSchema map[string]any
	Handle          Handler
}

func (f Function) functionID(serviceID string) string {
	return serviceID + "." + f.Name
}

// Config describes one function-hosting service process's static identity.
type Config struct {
	ServiceID   string
	DisplayName string
}

// Service owns one participant's Monitor and advertises every configured
// Function's capability record and HostsFunction edge, serving the
// Agent->Function RPC channel for all of them.
type Service struct {
	cfg         Config
	participant *transport.Participant
	monitor     *monitoring.Monitor
	byName      map[string]Function

	presenceW *transport.Writer
	capW      *transport.Writer
	log       *slog.Logger
}

// New builds a Service bound to p, advertises its Presence and every
// Function's capability record, and starts liveliness reassertion. It does
// not block; call Serve to run until ctx is canceled.
func New(ctx context.Context, p *transport.Participant, cfg Config, functions []Function, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	mon, err := monitoring.NewMonitor(p, cfg.ServiceID, log)
	if err != nil {
		return nil, fmt.Errorf("service %s: monitor: %w", cfg.ServiceID, err)
	}
	if err := mon.Consume(ctx, p); err != nil {
		return nil, fmt.Errorf("service %s: monitor consume: %w", cfg.ServiceID, err)
	}

	presenceW, err := transport.NewWriter(p, discovery.TopicPresence)
	if err != nil {
		return nil, err
	}
	capW, err := transport.NewWriter(p, discovery.TopicFunctionCapability)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Function, len(functions))
	for _, fn := range functions {
		byName[fn.Name] = fn
	}

	s := &Service{
		cfg:         cfg,
		participant: p,
		monitor:     mon,
		byName:      byName,
		presenceW:   presenceW,
		capW:        capW,
		log:         log,
	}

	if err := s.advertise(ctx); err != nil {
		return nil, err
	}

	go s.reassertLiveliness(ctx, discovery.TopicPresence.QoS.LeaseDuration/2)
	go s.monitor.RunSweeper(ctx, 10*time.Second)
	return s, nil
}

func (s *Service) advertise(ctx context.Context) error {
	if err := s.presenceW.Write(ctx, s.cfg.ServiceID, s.presencePayload()); err != nil {
		return err
	}
	if err := s.monitor.PublishNode(ctx, s.cfg.DisplayName, capability.NodeService, capability.NodeReady); err != nil {
		return err
	}
	for _, fn := range s.byName {
		if err := s.advertiseFunction(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

// advertiseFunction publishes fn's capability record, its node in the graph,
// and the HostsFunction edge from this service to it.
func (s *Service) advertiseFunction(ctx context.Context, fn Function) error {
	functionID := fn.functionID(s.cfg.ServiceID)
	record := capability.Function{
		FunctionID:        functionID,
		Name:              fn.Name,
		Description:       fn.Description,
		ParameterSchema:   fn.ParameterSchema,
		ProviderServiceID: s.cfg.ServiceID,
		ServiceEndpoint:   s.cfg.ServiceID,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode function capability %s: %w", fn.Name, err)
	}
	if err := s.capW.Write(ctx, functionID, raw); err != nil {
		return err
	}
	if err := s.monitor.PublishFunctionNode(ctx, functionID, fn.Name); err != nil {
		return err
	}
	return s.monitor.PublishEdge(ctx, functionID, capability.EdgeHostsFunction)
}

func (s *Service) presencePayload() []byte {
	p := capability.Presence{AgentID: s.cfg.ServiceID, DisplayName: s.cfg.DisplayName, Role: capability.RoleService}
	b, _ := json.Marshal(p)
	return b
}

// reassertLiveliness republishes this service's presence and every hosted
// function's capability record at half the capability cache's lease
// duration, the same assert rate transport.LivelinessAsserter uses for a
// single key.
func (s *Service) reassertLiveliness(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.presenceW.Write(ctx, s.cfg.ServiceID, s.presencePayload()); err != nil {
				s.log.Warn("service: reassert presence failed", "service_id", s.cfg.ServiceID, "error", err)
			}
			for _, fn := range s.byName {
				if err := s.advertiseFunction(ctx, fn); err != nil {
					s.log.Warn("service: reassert function failed", "function", fn.Name, "error", err)
				}
			}
		}
	}
}

// Monitor returns this service's monitoring handle, for serving /healthz,
// /metrics and /graph alongside it.
func (s *Service) Monitor() *monitoring.Monitor { return s.monitor }

// Serve answers this service's Agent->Function RPC channel until ctx is
// canceled.
func (s *Service) Serve(ctx context.Context) error {
	if _, err := rpc.Serve(ctx, "agent_function", s.participant, rpc.TopicAgentFunction, s.cfg.ServiceID, s.log, s.handleFunctionRequest); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (s *Service) handleFunctionRequest(ctx context.Context, req capability.FunctionRequest) (capability.FunctionReply, error) {
	fn, ok := s.byName[req.FunctionName]
	if !ok {
		return capability.FunctionReply{Status: 1, ErrorMessage: fmt.Sprintf("function %q not hosted here", req.FunctionName)}, nil
	}
	result, err := fn.Handle(ctx, req.ArgumentsJSON)
	if err != nil {
		return capability.FunctionReply{Status: 1, ErrorMessage: err.Error()}, nil
	}
	return capability.FunctionReply{Status: 0, ResultJSON: result}, nil
}
