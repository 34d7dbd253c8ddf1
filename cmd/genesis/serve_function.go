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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/genesis-run/genesis/internal/config"
	"github.com/genesis-run/genesis/internal/logging"
	"github.com/genesis-run/genesis/pkg/service"
	"github.com/genesis-run/genesis/pkg/transport"
)

// ServeFunctionCmd runs this process's function-hosting service until
// interrupted, advertising its Function capabilities and answering the
// Agent->Function RPC channel for them.
type ServeFunctionCmd struct{}

// Run implements kong's command execution hook.
func (c *ServeFunctionCmd) Run(cli *CLI) error {
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
	cfg, err := config.Load(config.LoaderOptions{Type: backend, Path: cli.ConfigPath})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Service.ServiceID == "" {
		return fmt.Errorf("service.service_id is required to run serve-function")
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	p, err := transport.NewParticipant(cfg.Service.ServiceID, cfg.NATSURL, cfg.DomainID, transport.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	defer p.Close()

	svc, err := service.New(ctx, p, service.Config{
		ServiceID:   cfg.Service.ServiceID,
		DisplayName: cfg.Service.DisplayName,
	}, builtinFunctions(), log)
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: svc.Monitor().NewHTTPHandler()}
	go func() {
		log.Info("serving monitoring endpoints", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("monitoring http server stopped", "error", err)
		}
	}()

	log.Info("service running", "service_id", cfg.Service.ServiceID, "domain", cfg.DomainID)
	err = svc.Serve(ctx)
	_ = httpServer.Shutdown(context.Background())
	return err
}

// builtinFunctions is the reference Function set a bare `serve-function`
// hosts until a deployment supplies its own; it exercises the full
// advertise/dispatch path end to end without depending on any external
// backend.
func builtinFunctions() []service.Function {
	return []service.Function{
		{
			Name:        "echo",
			Description: "Echoes back the provided text argument.",
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{"type": "string"},
				},
				"required": []string{"text"},
			},
			Handle: func(ctx context.Context, argumentsJSON string) (string, error) {
				var args struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
					return "", fmt.Errorf("decode arguments: %w", err)
				}
				out, err := json.Marshal(map[string]string{"text": args.Text})
				if err != nil {
					return "", err
				}
				return string(out), nil
			},
		},
	}
}
