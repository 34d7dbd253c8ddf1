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
	"context"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Sample is a single message delivered to a Reader, along with the subject
// key it was published under (the token after the topic name, if any).
type Sample struct {
	Key       string
	Payload   []byte
	Timestamp time.Time

	ack func()
	nak func()
}

// Ack acknowledges processing of the sample. A no-op for BestEffort topics.
func (s Sample) Ack() {
	if s.ack != nil {
		s.ack()
	}
}

// Nak requests redelivery of the sample. A no-op for BestEffort topics.
func (s Sample) Nak() {
	if s.nak != nil {
		s.nak()
	}
}

// Writer publishes samples onto a topic, keyed for content-filtered reads.
type Writer struct {
	p     *Participant
	topic Topic
}

// NewWriter provisions topic (if durable) and returns a Writer bound to it.
func NewWriter(p *Participant, topic Topic) (*Writer, error) {
	if err := p.EnsureTopic(topic); err != nil {
		return nil, err
	}
	return &Writer{p: p, topic: topic}, nil
}

// Write publishes payload under the given key. An empty key publishes on the
// bare topic subject, which no Reader subscribes to, so such a sample reaches
// no Reader.
func (w *Writer) Write(ctx context.Context, key string, payload []byte) error {
	subj := w.p.subject(w.topic.Name, key)
	if w.topic.QoS.Reliability == Reliable && w.topic.QoS.Durability == TransientLocal {
		_, err := w.p.js.Publish(subj, payload, nats.Context(ctx))
		return wrapErr("write", w.topic.Name, err)
	}
	return wrapErr("write", w.topic.Name, w.p.nc.Publish(subj, payload))
}

// Reader subscribes to every sample published on a topic.
type Reader struct {
	p     *Participant
	topic Topic
	sub   *nats.Subscription
	ch    chan Sample
}

// NewFilteredReader subscribes only to samples published with a matching key,
// or to every sample when filterKey is empty (equivalent to Reader).
//
// A literal filterKey pins delivery to one publisher's stream of keys
// (content-filtered instance targeting); the wildcard case is handled by
// passing an empty filterKey, which subscribes to the topic's root wildcard.
func NewFilteredReader(p *Participant, topic Topic, filterKey string) (*Reader, error) {
	if err := p.EnsureTopic(topic); err != nil {
		return nil, err
	}

	var subj string
	if filterKey == "" {
		subj = p.subject(topic.Name, "") + ".>"
		if topic.QoS.Durability == Volatile {
			subj = p.subject(topic.Name, "*")
		}
	} else {
		subj = p.subject(topic.Name, filterKey)
	}

	r := &Reader{p: p, topic: topic, ch: make(chan Sample, 256)}

	deliver := func(msg *nats.Msg) {
		sample := Sample{
			Key:       strings.TrimPrefix(msg.Subject, p.subject(topic.Name, "")+"."),
			Payload:   msg.Data,
			Timestamp: time.Now(),
		}
		if topic.QoS.Reliability == Reliable && topic.QoS.Durability == TransientLocal {
			sample.ack = func() { _ = msg.Ack() }
			sample.nak = func() { _ = msg.Nak() }
		}
		r.ch <- sample
	}

	var sub *nats.Subscription
	var err error
	if topic.QoS.Reliability == Reliable && topic.QoS.Durability == TransientLocal {
		// A new subscriber must see the retained history before live
		// delivery begins: the full backlog for KeepAll topics (the
		// topology stream), or the last sample per subject for KeepLast
		// ones (the capability caches), never just messages published
		// from this moment on.
		replay := nats.DeliverLastPerSubject()
		if topic.QoS.History.KeepAll {
			replay = nats.DeliverAll()
		}
		sub, err = p.js.Subscribe(subj, deliver, replay)
	} else {
		sub, err = p.nc.Subscribe(subj, deliver)
	}
	if err != nil {
		return nil, wrapErr("subscribe", topic.Name, err)
	}
	r.sub = sub
	return r, nil
}

// NewReader subscribes to every sample published on a topic.
func NewReader(p *Participant, topic Topic) (*Reader, error) {
	return NewFilteredReader(p, topic, "")
}

// Samples returns the channel samples are delivered on. It is closed when
// Close is called.
func (r *Reader) Samples() <-chan Sample { return r.ch }

// Close unsubscribes and stops delivery.
func (r *Reader) Close() error {
	err := r.sub.Unsubscribe()
	close(r.ch)
	return wrapErr("close_reader", r.topic.Name, err)
}
