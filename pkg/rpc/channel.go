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

package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/genesis-run/genesis/pkg/transport"
)

// envelope is the wire frame every channel wraps its payload in. The
// responder echoes the request's correlation_id, and the caller discards
// (and counts) any reply whose correlation_id differs from the one it sent.
type envelope struct {
	CorrelationID string          `json:"correlation_id"`
	SentAt        time.Time       `json:"sent_at"`
	Body          json.RawMessage `json:"body"`
}

var lateReplyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "genesis_rpc_late_reply_total",
		Help: "Replies discarded because their correlation id did not match the request's, by channel.",
	},
	[]string{"channel"},
)

func init() {
	prometheus.MustRegister(lateReplyTotal)
}

// Channel is one correlated request/reply RPC channel bound to a topic.
type Channel[Req any, Resp any] struct {
	name      string
	requester *transport.Requester
	log       *slog.Logger
}

// NewChannel binds a Channel to topic on p.
func NewChannel[Req any, Resp any](name string, p *transport.Participant, topic transport.Topic, log *slog.Logger) *Channel[Req, Resp] {
	if log == nil {
		log = slog.Default()
	}
	return &Channel[Req, Resp]{
		name:      name,
		requester: transport.NewRequester(p, topic),
		log:       log,
	}
}

// Call sends req to targetKey and waits for a reply or ctx's deadline.
func (c *Channel[Req, Resp]) Call(ctx context.Context, targetKey string, req Req) (Resp, error) {
	var zero Resp

	body, err := json.Marshal(req)
	if err != nil {
		return zero, &Error{Code: CodeInvalidRequest, Target: targetKey, Message: "encode request", Err: err}
	}

	env := envelope{CorrelationID: uuid.NewString(), SentAt: time.Now(), Body: body}
	raw, err := json.Marshal(env)
	if err != nil {
		return zero, &Error{Code: CodeInvalidRequest, Target: targetKey, Message: "encode envelope", Err: err}
	}

	replyRaw, err := c.requester.Request(ctx, targetKey, raw)
	if err != nil {
		if transport.ErrNoResponders == unwrapTransport(err) {
			return zero, &Error{Code: CodeNoProvider, Target: targetKey, Message: "no live responder"}
		}
		if ctx.Err() != nil {
			return zero, &Error{Code: CodeTimeout, Target: targetKey, Message: "deadline exceeded", Err: ctx.Err()}
		}
		return zero, &Error{Code: CodeTimeout, Target: targetKey, Message: "transport error", Err: err}
	}

	var replyEnv envelope
	if err := json.Unmarshal(replyRaw, &replyEnv); err != nil {
		return zero, &Error{Code: CodeBusinessError, Target: targetKey, Message: "decode envelope", Err: err}
	}
	if replyEnv.CorrelationID != env.CorrelationID {
		lateReplyTotal.WithLabelValues(c.name).Inc()
		c.log.Warn("rpc: discarding reply with mismatched correlation id",
			"channel", c.name, "want", env.CorrelationID, "got", replyEnv.CorrelationID)
		return zero, &Error{Code: CodeTimeout, Target: targetKey, Message: "correlation mismatch"}
	}

	var resp Resp
	if err := json.Unmarshal(replyEnv.Body, &resp); err != nil {
		return zero, &Error{Code: CodeBusinessError, Target: targetKey, Message: "decode response body", Err: err}
	}
	return resp, nil
}

func unwrapTransport(err error) error {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if u, ok := err.(unwrapper); ok {
			err = u.Unwrap()
			continue
		}
		break
	}
	return err
}

// Handler processes one decoded request and returns the response to send
// back, or an error, which Serve sends back as a reply with status 1 and the
// error's text in error_message.
type Handler[Req any, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Serve answers requests addressed to instanceKey on topic until ctx is
// canceled.
func Serve[Req any, Resp any](ctx context.Context, name string, p *transport.Participant, topic transport.Topic, instanceKey string, log *slog.Logger, handle Handler[Req, Resp]) (*transport.Replier, error) {
	if log == nil {
		log = slog.Default()
	}
	return transport.NewReplier(ctx, p, topic, instanceKey, func(ctx context.Context, payload []byte) []byte {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Warn("rpc: undecodable envelope", "channel", name, "error", err)
			return nil
		}

		var req Req
		if err := json.Unmarshal(env.Body, &req); err != nil {
			return encodeErrorReply(env.CorrelationID, err)
		}

		resp, err := handle(ctx, req)
		if err != nil {
			return encodeErrorReply(env.CorrelationID, err)
		}

		body, err := json.Marshal(resp)
		if err != nil {
			return encodeErrorReply(env.CorrelationID, err)
		}
		out, _ := json.Marshal(envelope{CorrelationID: env.CorrelationID, SentAt: time.Now(), Body: body})
		return out
	})
}

func encodeErrorReply(correlationID string, err error) []byte {
	body, _ := json.Marshal(map[string]any{"status": 1, "error_message": err.Error()})
	out, _ := json.Marshal(envelope{CorrelationID: correlationID, SentAt: time.Now(), Body: body})
	return out
}
