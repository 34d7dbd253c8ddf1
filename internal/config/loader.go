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

package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/consul/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/etcd/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// conventionalDefaults seeds the lowest-priority config layer so every
// backend only needs to override what differs from a local single-process
// deployment, rather than spell out every key.
var conventionalDefaults = map[string]interface{}{
	"domain_id": "default",
	"nats_url":  "nats://127.0.0.1:4222",
	"http_addr": ":8090",
}

// BackendType selects where configuration is sourced from.
type BackendType string

const (
	BackendFile      BackendType = "file"
	BackendConsul    BackendType = "consul"
	BackendEtcd      BackendType = "etcd"
	BackendZookeeper BackendType = "zookeeper"
)

// ParseBackendType validates and normalizes a backend name from a CLI flag.
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "":
		return BackendFile, nil
	case "consul":
		return BackendConsul, nil
	case "etcd":
		return BackendEtcd, nil
	case "zookeeper", "zk":
		return BackendZookeeper, nil
	default:
		return "", fmt.Errorf("invalid config backend: %s", s)
	}
}

// LoaderOptions selects the backend and path/endpoints Load reads from.
type LoaderOptions struct {
	Type      BackendType
	Path      string
	Endpoints []string
	Watch     bool
	OnChange  func(*Config) error
}

// Loader loads and, optionally, watches a Config from one backend.
type Loader struct {
	k        *koanf.Koanf
	opts     LoaderOptions
	parser   *yaml.YAML
	stopChan chan struct{}
}

// NewLoader builds a Loader from opts, filling in each backend's
// conventional default endpoint when none was given.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Type == "" {
		opts.Type = BackendFile
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if len(opts.Endpoints) == 0 {
		switch opts.Type {
		case BackendConsul:
			opts.Endpoints = []string{"localhost:8500"}
		case BackendEtcd:
			opts.Endpoints = []string{"localhost:2379"}
		case BackendZookeeper:
			opts.Endpoints = []string{"localhost:2181"}
		}
	}
	return &Loader{
		k:        koanf.New("."),
		opts:     opts,
		parser:   yaml.Parser(),
		stopChan: make(chan struct{}),
	}, nil
}

// Load reads the backend once over the conventional defaults, overlays any
// GENESIS_-prefixed environment variables (after first loading .env into the
// process environment, if present), applies defaults and validates the
// result.
func (l *Loader) Load() (*Config, error) {
	_ = godotenv.Load() // optional .env in the working directory; absence is not an error

	if err := l.k.Load(confmap.Provider(conventionalDefaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	provider, parser, err := l.backendProvider()
	if err != nil {
		return nil, err
	}
	if err := l.k.Load(provider, parser); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", l.opts.Type, err)
	}
	if err := l.k.Load(env.Provider("GENESIS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "GENESIS_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}

	if l.opts.Watch {
		go l.watch(provider)
	}
	return cfg, nil
}

func (l *Loader) backendProvider() (koanf.Provider, koanf.Parser, error) {
	switch l.opts.Type {
	case BackendFile:
		return file.Provider(l.opts.Path), l.parser, nil

	case BackendConsul:
		cc := consulapi.DefaultConfig()
		cc.Address = l.opts.Endpoints[0]
		client, err := consulapi.NewClient(cc)
		if err != nil {
			return nil, nil, fmt.Errorf("consul client: %w", err)
		}
		return consul.Provider(consul.Config{Client: client, Key: l.opts.Path}), nil, nil

	case BackendEtcd:
		return etcd.Provider(etcd.Config{
			Endpoints:   l.opts.Endpoints,
			DialTimeout: 5 * time.Second,
			Key:         l.opts.Path,
		}), nil, nil

	case BackendZookeeper:
		zp, err := NewZookeeperProvider(l.opts.Endpoints, l.opts.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("zookeeper provider: %w", err)
		}
		return zp, l.parser, nil

	default:
		return nil, nil, fmt.Errorf("unsupported config backend: %s", l.opts.Type)
	}
}

// Watcher is implemented by providers supporting koanf's reactive reload
// (file, zookeeper); consul and etcd reload via their own polling instead.
type Watcher interface {
	Watch(cb func(event interface{}, err error)) error
}

func (l *Loader) watch(provider koanf.Provider) {
	watcher, ok := provider.(Watcher)
	if !ok {
		log.Printf("config backend %s does not support watching", l.opts.Type)
		return
	}

	err := watcher.Watch(func(event interface{}, err error) {
		select {
		case <-l.stopChan:
			return
		default:
		}
		if err != nil {
			log.Printf("config watch error: %v", err)
			return
		}

		newK := koanf.New(".")
		if err := newK.Load(provider, l.parser); err != nil {
			log.Printf("config reload failed: %v", err)
			return
		}
		l.k = newK

		cfg, err := l.unmarshal()
		if err != nil {
			log.Printf("config reload failed: %v", err)
			return
		}
		if l.opts.OnChange != nil {
			if err := l.opts.OnChange(cfg); err != nil {
				log.Printf("config change callback failed: %v", err)
			}
		}
	})
	if err != nil {
		log.Printf("config watch stopped: %v", err)
	}
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Stop ends any active Watch loop.
func (l *Loader) Stop() { close(l.stopChan) }

// Load is a convenience wrapper around NewLoader+Load for callers that
// never need to Stop a watch.
func Load(opts LoaderOptions) (*Config, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
