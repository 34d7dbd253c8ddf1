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
	"time"
)

// LivelinessAsserter republishes a participant's own last sample on a
// LivelinessManualByTopic topic so readers' lease timers never expire while
// it is alive. Automatic liveliness needs no asserter: the NATS connection's
// own ping/pong heartbeat already satisfies it.
type LivelinessAsserter struct {
	w        *Writer
	key      string
	payload  func() []byte
	interval time.Duration
}

// NewLivelinessAsserter builds an asserter that republishes payload() under
// key at half the topic's lease duration, the conventional DDS assert rate.
func NewLivelinessAsserter(w *Writer, key string, payload func() []byte) *LivelinessAsserter {
	interval := w.topic.QoS.LeaseDuration / 2
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &LivelinessAsserter{w: w, key: key, payload: payload, interval: interval}
}

// Run blocks, republishing on each tick, until ctx is canceled.
func (a *LivelinessAsserter) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = a.w.Write(ctx, a.key, a.payload())
		}
	}
}
