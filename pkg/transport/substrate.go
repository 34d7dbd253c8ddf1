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

package transport

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Participant is a single process's handle onto the transport substrate: one
// NATS connection, scoped to one domain, shared by every Writer, Reader,
// Requester and Replier the process creates.
type Participant struct {
	ParticipantID string

	domain string
	nc     *nats.Conn
	js     nats.JetStreamContext
	log    *slog.Logger
}

// Option configures a Participant at construction time.
type Option func(*Participant)

// WithLogger overrides the participant's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Participant) { p.log = l }
}

// NewParticipant dials natsURL and scopes the resulting participant to
// domainID. Every subject this participant publishes or subscribes to is
// prefixed "genesis.<domainID>.".
func NewParticipant(participantID, natsURL, domainID string, opts ...Option) (*Participant, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(participantID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, wrapErr("connect", "", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, wrapErr("jetstream", "", err)
	}

	p := &Participant{
		ParticipantID: participantID,
		domain:        domainID,
		nc:            nc,
		js:            js,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close drains and closes the underlying NATS connection.
func (p *Participant) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return wrapErr("close", "", err)
	}
	return nil
}

// subject returns the fully qualified NATS subject for a topic name, with an
// optional dot-joined key suffix used for content-filtered delivery.
func (p *Participant) subject(topic string, key string) string {
	s := fmt.Sprintf("genesis.%s.%s", p.domain, topic)
	if key == "" {
		return s
	}
	return s + "." + sanitizeToken(key)
}

func sanitizeToken(key string) string {
	return strings.NewReplacer(".", "_", " ", "_", ">", "_", "*", "_").Replace(key)
}

// streamName derives the JetStream stream name backing a durable topic.
func (p *Participant) streamName(topic string) string {
	return fmt.Sprintf("GENESIS_%s_%s", strings.ToUpper(p.domain), strings.ToUpper(topic))
}

// EnsureTopic provisions the JetStream stream a TransientLocal topic needs.
// Volatile topics are core NATS subjects and require no provisioning. It is
// safe to call repeatedly; an existing stream is updated in place.
func (p *Participant) EnsureTopic(t Topic) error {
	if t.QoS.Durability != TransientLocal {
		return nil
	}

	cfg := &nats.StreamConfig{
		Name:     p.streamName(t.Name),
		Subjects: []string{p.subject(t.Name, "") + ".>", p.subject(t.Name, "")},
		Storage:  nats.FileStorage,
		Replicas: 1,
	}

	if t.QoS.History.KeepAll {
		cfg.MaxMsgsPerSubject = -1
	} else {
		depth := t.QoS.History.Depth
		if depth < 1 {
			depth = 1
		}
		cfg.MaxMsgsPerSubject = int64(depth)
	}

	_, err := p.js.AddStream(cfg)
	if err != nil {
		if err == nats.ErrStreamNameAlreadyInUse {
			_, err = p.js.UpdateStream(cfg)
		}
		if err != nil {
			return wrapErr("ensure_topic", t.Name, err)
		}
	}
	return nil
}
