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
	"errors"

	"github.com/nats-io/nats.go"
)

// ErrNoResponders is returned by Request when the target subject has no
// live subscriber, mirroring the "no provider" outcome of the RPC layer.
var ErrNoResponders = errors.New("transport: no responders")

// Requester sends a request on a channel topic and blocks for exactly one
// reply or ctx's deadline, whichever comes first.
type Requester struct {
	p     *Participant
	topic Topic
}

// NewRequester binds a Requester to a channel topic. Channel topics are
// always Volatile; no stream provisioning is required.
func NewRequester(p *Participant, topic Topic) *Requester {
	return &Requester{p: p, topic: topic}
}

// Request publishes payload under targetKey (the responding instance's
// identity) and waits for its single reply.
func (r *Requester) Request(ctx context.Context, targetKey string, payload []byte) ([]byte, error) {
	subj := r.p.subject(r.topic.Name, targetKey)
	msg, err := r.p.nc.RequestWithContext(ctx, subj, payload)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, wrapErr("request", r.topic.Name, ErrNoResponders)
		}
		return nil, wrapErr("request", r.topic.Name, err)
	}
	return msg.Data, nil
}

// Replier answers requests addressed to one instance key on a channel topic,
// and also competes for requests addressed to no instance in particular
// (target_endpoint_id = "") through a queue group shared with every other
// replier on the same topic, so a broadcast request lands on exactly one of
// them rather than all.
type Replier struct {
	p         *Participant
	topic     Topic
	sub       *nats.Subscription
	broadcast *nats.Subscription
}

// ReplyFunc handles one inbound request and returns the bytes to reply with.
type ReplyFunc func(ctx context.Context, payload []byte) []byte

// NewReplier subscribes under instanceKey (this participant's identity) and
// invokes handle for every request addressed to it, as well as for every
// unaddressed (broadcast) request this topic's queue group happens to route
// here.
func NewReplier(ctx context.Context, p *Participant, topic Topic, instanceKey string, handle ReplyFunc) (*Replier, error) {
	respond := func(msg *nats.Msg) {
		reply := handle(ctx, msg.Data)
		if msg.Reply != "" {
			_ = p.nc.Publish(msg.Reply, reply)
		}
	}

	subj := p.subject(topic.Name, instanceKey)
	sub, err := p.nc.Subscribe(subj, respond)
	if err != nil {
		return nil, wrapErr("reply_subscribe", topic.Name, err)
	}

	broadcastSubj := p.subject(topic.Name, "")
	queueGroup := "genesis-" + topic.Name
	broadcast, err := p.nc.QueueSubscribe(broadcastSubj, queueGroup, respond)
	if err != nil {
		_ = sub.Unsubscribe()
		return nil, wrapErr("reply_subscribe_broadcast", topic.Name, err)
	}

	return &Replier{p: p, topic: topic, sub: sub, broadcast: broadcast}, nil
}

// Close stops answering requests.
func (r *Replier) Close() error {
	err := r.sub.Unsubscribe()
	if bErr := r.broadcast.Unsubscribe(); bErr != nil && err == nil {
		err = bErr
	}
	return wrapErr("close_replier", r.topic.Name, err)
}
