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

// Command genesis runs one participant in a GENESIS mesh.
//
// Usage:
//
//	genesis serve --config-path config.yaml
//	genesis validate --config-path config.yaml
//	genesis version
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/genesis-run/genesis/internal/config"
	"github.com/genesis-run/genesis/internal/logging"
	"github.com/genesis-run/genesis/pkg/agent"
	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/router"
	"github.com/genesis-run/genesis/pkg/transport"
)

// CLI defines the genesis command-line interface.
type CLI struct {
	Version       VersionCmd       `cmd:"" help:"Show version information."`
	Serve         ServeCmd         `cmd:"" help:"Run this process's agent and serve its monitoring endpoints."`
	ServeFunction ServeFunctionCmd `cmd:"serve-function" help:"Run this process's function-hosting service."`
	Validate      ValidateCmd      `cmd:"" help:"Validate a configuration file without running anything."`
	Ask           AskCmd           `cmd:"" help:"Send one message to the default agent as an Interface participant."`

	ConfigPath    string `short:"c" help:"Path to the configuration document." type:"path" default:"genesis.yaml"`
	ConfigBackend string `help:"Configuration backend: file, consul, etcd, zookeeper." default:"file"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

// Run implements kong's command execution hook.
func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Printf("genesis %s\n", version)
	return nil
}

// ValidateCmd loads and validates configuration, then exits.
type ValidateCmd struct{}

// Run implements kong's command execution hook.
func (c *ValidateCmd) Run(cli *CLI) error {
	backend, err := config.ParseBackendType(cli.ConfigBackend)
	if err != nil {
		return err
	}
	_, err = config.Load(config.LoaderOptions{Type: backend, Path: cli.ConfigPath})
	if err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}

// ServeCmd runs this process's agent until interrupted.
type ServeCmd struct {
	Watch bool `help:"Reload configuration on change where the backend supports it."`
}

// Run implements kong's command execution hook.
func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	backend, err := config.ParseBackendType(cli.ConfigBackend)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.LoaderOptions{Type: backend, Path: cli.ConfigPath, Watch: c.Watch})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	p, err := transport.NewParticipant(cfg.Agent.AgentID, cfg.NATSURL, cfg.DomainID, transport.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	defer p.Close()

	agentType := capability.AgentTypeGeneral
	if cfg.Agent.Type == "specialist" {
		agentType = capability.AgentTypeSpecialist
	}

	a, err := agent.New(ctx, p, agent.Config{
		AgentID:            cfg.Agent.AgentID,
		DisplayName:        cfg.Agent.DisplayName,
		Type:               agentType,
		Specializations:    cfg.Agent.Specializations,
		Capabilities:       cfg.Agent.Capabilities,
		ClassificationTags: cfg.Agent.ClassificationTags,
		DefaultCapable:     cfg.Agent.DefaultCapable,
		MaxToolRounds:      cfg.Agent.MaxToolRounds,
		MaxHops:            cfg.Agent.MaxHops,
	}, noLLMConfigured{}, nil, log)
	if err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: a.Monitor().NewHTTPHandler()}
	go func() {
		log.Info("serving monitoring endpoints", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("monitoring http server stopped", "error", err)
		}
	}()

	log.Info("agent running", "agent_id", cfg.Agent.AgentID, "domain", cfg.DomainID)
	err = a.Serve(ctx)
	_ = httpServer.Shutdown(context.Background())
	return err
}

// noLLMConfigured is the zero-value router.LLM wired in until a real
// provider integration is configured; it always reports a business error
// rather than panicking so a misconfigured deployment fails loudly but
// safely.
type noLLMConfigured struct{}

func (noLLMConfigured) Complete(ctx context.Context, messages []router.Message, tools []router.Schema) (router.Completion, error) {
	return router.Completion{}, fmt.Errorf("no LLM provider configured for this agent")
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("genesis"),
		kong.Description("Distributed multi-agent runtime."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
