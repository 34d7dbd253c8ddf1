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

// Package config loads the static configuration every genesis process
// needs: which NATS deployment and domain to join, this process's agent
// identity (when it runs an agent), and the ambient logging setup.
package config

import "fmt"

// Config is the root configuration document, unmarshaled from YAML
// regardless of which backend (file, consul, etcd, zookeeper) served it.
type Config struct {
	DomainID string        `yaml:"domain_id"`
	NATSURL  string        `yaml:"nats_url"`
	Logging  LoggerConfig  `yaml:"logging"`
	Agent    AgentConfig   `yaml:"agent"`
	Service  ServiceConfig `yaml:"service"`
	HTTPAddr string        `yaml:"http_addr"`
}

// ServiceConfig is the subset of Config describing one function-hosting
// service process's identity; only set when running `genesis serve-function`.
type ServiceConfig struct {
	ServiceID   string `yaml:"service_id"`
	DisplayName string `yaml:"display_name"`
}

// AgentConfig is the subset of Config describing one agent process's
// identity and reasoning limits.
type AgentConfig struct {
	AgentID            string   `yaml:"agent_id"`
	DisplayName        string   `yaml:"display_name"`
	Type               string   `yaml:"type"` // "general" or "specialist"
	Specializations    []string `yaml:"specializations"`
	Capabilities       []string `yaml:"capabilities"`
	ClassificationTags []string `yaml:"classification_tags"`
	DefaultCapable     bool     `yaml:"default_capable"`
	MaxToolRounds      int      `yaml:"max_tool_rounds"`
	MaxHops            int      `yaml:"max_hops"`
}

// LoggerConfig controls the ambient slog setup, mirrored across every
// genesis process regardless of role.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`   // empty means stderr
}

// SetDefaults fills in zero-valued fields with the process's baseline
// configuration.
func (c *Config) SetDefaults() {
	if c.DomainID == "" {
		c.DomainID = "default"
	}
	if c.NATSURL == "" {
		c.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.Logging.SetDefaults()
	c.Agent.SetDefaults()
}

// SetDefaults fills in zero-valued agent fields.
func (a *AgentConfig) SetDefaults() {
	if a.Type == "" {
		a.Type = "general"
	}
	if a.MaxToolRounds == 0 {
		a.MaxToolRounds = 8
	}
	if a.MaxHops == 0 {
		a.MaxHops = 4
	}
}

// SetDefaults fills in zero-valued logging fields.
func (l *LoggerConfig) SetDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

// Validate checks the configuration is self-consistent, returning every
// problem found rather than failing on the first.
func (c *Config) Validate() error {
	var errs []error
	if c.DomainID == "" {
		errs = append(errs, fmt.Errorf("domain_id is required"))
	}
	if c.NATSURL == "" {
		errs = append(errs, fmt.Errorf("nats_url is required"))
	}
	// A document configures either an agent process or a function-hosting
	// service process; only the role actually being run needs validating.
	if c.Service.ServiceID == "" {
		if c.Agent.AgentID == "" {
			errs = append(errs, fmt.Errorf("agent.agent_id is required"))
		}
		switch c.Agent.Type {
		case "general", "specialist":
		default:
			errs = append(errs, fmt.Errorf("agent.type must be %q or %q, got %q", "general", "specialist", c.Agent.Type))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	msg := "invalid configuration:"
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
