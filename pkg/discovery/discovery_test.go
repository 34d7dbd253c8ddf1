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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genesis-run/genesis/pkg/capability"
)

func TestCacheUpsertFiresAddedThenUpdated(t *testing.T) {
	c := NewCache[capability.Agent](0, nil)
	events := c.Watch()

	a := capability.Agent{AgentID: "agent-1", DisplayName: "Assistant"}
	c.Upsert(a, []byte(`{"agent_id":"agent-1","display_name":"Assistant"}`))

	select {
	case ev := <-events:
		require.Equal(t, Added, ev.Kind)
		require.Equal(t, "agent-1", ev.Item.Key())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Added event")
	}

	a.DisplayName = "Assistant v2"
	c.Upsert(a, []byte(`{"agent_id":"agent-1","display_name":"Assistant v2"}`))

	select {
	case ev := <-events:
		require.Equal(t, Updated, ev.Kind)
		require.Equal(t, "Assistant v2", ev.Item.DisplayName)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Updated event")
	}

	require.Equal(t, 1, c.Count())
}

func TestCacheUpsertDedupsIdenticalContent(t *testing.T) {
	c := NewCache[capability.Agent](0, nil)
	events := c.Watch()

	raw := []byte(`{"agent_id":"agent-1"}`)
	c.Upsert(capability.Agent{AgentID: "agent-1"}, raw)
	<-events // Added

	// Re-publishing identical content must not fire a second event.
	c.Upsert(capability.Agent{AgentID: "agent-1"}, raw)

	select {
	case ev := <-events:
		t.Fatalf("expected no event for identical re-publication, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCacheRemoveFiresRemoved(t *testing.T) {
	c := NewCache[capability.Agent](0, nil)
	events := c.Watch()

	c.Upsert(capability.Agent{AgentID: "agent-1"}, []byte(`{}`))
	<-events

	c.Remove("agent-1")

	select {
	case ev := <-events:
		require.Equal(t, Removed, ev.Kind)
		require.Equal(t, "agent-1", ev.Item.Key())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Removed event")
	}
	require.Equal(t, 0, c.Count())
}

func TestCacheSweepExpiredFiresRemoved(t *testing.T) {
	c := NewCache[capability.Agent](10*time.Millisecond, nil)
	events := c.Watch()

	c.Upsert(capability.Agent{AgentID: "agent-1"}, []byte(`{}`))
	<-events

	gone := c.sweepExpired(time.Now().Add(time.Hour))
	require.Len(t, gone, 1)

	select {
	case ev := <-events:
		require.Equal(t, Removed, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for lease-expiry Removed event")
	}
}
