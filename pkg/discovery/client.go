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

package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/transport"
)

// Topics used by Client, exported so writers advertising capabilities share
// the exact same QoS contract.
var (
	TopicAgentCapability    = transport.Topic{Name: "agent_capability", QoS: transport.CapabilityCacheQoS}
	TopicFunctionCapability = transport.Topic{Name: "function_capability", QoS: transport.CapabilityCacheQoS}
	TopicPresence           = transport.Topic{Name: "presence", QoS: transport.CapabilityCacheQoS}
)

// Client is the read side of capability discovery: three live caches kept
// current from the transport, exposed through Added/Updated/Removed watch
// channels and direct lookups.
type Client struct {
	Agents    *Cache[capability.Agent]
	Functions *Cache[capability.Function]
	Presences *Cache[capability.Presence]

	log *slog.Logger
}

// NewClient subscribes to the three capability topics on p and starts
// draining them into the caches. It returns once the readers are
// established; cache population happens asynchronously as samples arrive.
func NewClient(ctx context.Context, p *transport.Participant, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	lease := transport.CapabilityCacheQoS.LeaseDuration

	c := &Client{
		Agents:    NewCache[capability.Agent](lease, log),
		Functions: NewCache[capability.Function](lease, log),
		Presences: NewCache[capability.Presence](lease, log),
		log:       log,
	}

	agentReader, err := transport.NewReader(p, TopicAgentCapability)
	if err != nil {
		return nil, err
	}
	fnReader, err := transport.NewReader(p, TopicFunctionCapability)
	if err != nil {
		return nil, err
	}
	presenceReader, err := transport.NewReader(p, TopicPresence)
	if err != nil {
		return nil, err
	}

	go Run(ctx, c.Agents, agentReader, DecodeJSON[capability.Agent])
	go Run(ctx, c.Functions, fnReader, DecodeJSON[capability.Function])
	go Run(ctx, c.Presences, presenceReader, DecodeJSON[capability.Presence])

	return c, nil
}

// AwaitDefaultAgent blocks until a default-capable general agent is present
// in the cache, or ctx is done. Interfaces use this at startup so the first
// user message has somewhere to land.
func (c *Client) AwaitDefaultAgent(ctx context.Context) (capability.Agent, bool) {
	if a, ok := c.findDefaultAgent(); ok {
		return a, true
	}
	events := c.Agents.Watch()
	for {
		select {
		case <-ctx.Done():
			return capability.Agent{}, false
		case <-events:
			if a, ok := c.findDefaultAgent(); ok {
				return a, true
			}
		}
	}
}

func (c *Client) findDefaultAgent() (capability.Agent, bool) {
	for _, a := range c.Agents.List() {
		if a.DefaultCapable && a.AgentType == capability.AgentTypeGeneral {
			return a, true
		}
	}
	return capability.Agent{}, false
}

// staleAfter returns how long after its last sample a record is considered
// expired: exactly one lease.
func staleAfter(lease time.Duration) time.Duration { return lease }
