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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/genesis-run/genesis/internal/config"
	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/discovery"
	"github.com/genesis-run/genesis/pkg/rpc"
	"github.com/genesis-run/genesis/pkg/transport"
)

// AskCmd joins the mesh as an Interface participant, waits for a default
// agent to be discovered, sends one message and prints its reply.
type AskCmd struct {
	Message string        `arg:"" help:"Message to send to the default agent."`
	Timeout time.Duration `help:"How long to wait for a reply." default:"30s"`
}

// Run implements kong's command execution hook.
func (c *AskCmd) Run(cli *CLI) error {
	backend, err := config.ParseBackendType(cli.ConfigBackend)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.LoaderOptions{Type: backend, Path: cli.ConfigPath})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	p, err := transport.NewParticipant("interface-"+fmt.Sprint(time.Now().UnixNano()), cfg.NATSURL, cfg.DomainID)
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	defer p.Close()

	disco, err := discovery.NewClient(ctx, p, nil)
	if err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	target, ok := disco.AwaitDefaultAgent(ctx)
	if !ok {
		return fmt.Errorf("timed out waiting for a default agent to appear")
	}

	ch := rpc.NewInterfaceAgentChannel(p, nil)
	reply, err := ch.Call(ctx, target.AgentID, capability.InterfaceAgentRequest{Message: c.Message})
	if err != nil {
		return fmt.Errorf("request to %s: %w", target.AgentID, err)
	}
	if reply.Status != 0 {
		return fmt.Errorf("agent error: %s", reply.ErrorMessage)
	}
	fmt.Println(reply.Message)
	return nil
}
