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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubjectPrefixesDomainAndSanitizesKey(t *testing.T) {
	p := &Participant{domain: "prod"}
	require.Equal(t, "genesis.prod.agent_capability", p.subject("agent_capability", ""))
	require.Equal(t, "genesis.prod.agent_capability.weather_agent", p.subject("agent_capability", "weather.agent"))
}

func TestSanitizeTokenReplacesWildcardAndSeparatorCharacters(t *testing.T) {
	require.Equal(t, "a_b_c_d_e", sanitizeToken("a.b c>d*e"))
}

func TestStreamNameUppercasesDomainAndTopic(t *testing.T) {
	p := &Participant{domain: "prod"}
	require.Equal(t, "GENESIS_PROD_TOPOLOGY", p.streamName("topology"))
}

func TestKeepLastClampsToMinimumOne(t *testing.T) {
	require.Equal(t, History{Depth: 1}, KeepLast(0))
	require.Equal(t, History{Depth: 5}, KeepLast(5))
}

func TestKeepAllHistorySetsKeepAllFlag(t *testing.T) {
	require.True(t, KeepAllHistory().KeepAll)
}

func TestDefaultQoSProfilesMatchDomainContract(t *testing.T) {
	require.Equal(t, TransientLocal, CapabilityCacheQoS.Durability)
	require.Equal(t, Reliable, CapabilityCacheQoS.Reliability)
	require.Equal(t, LivelinessManualByTopic, CapabilityCacheQoS.Liveliness)

	require.Equal(t, Volatile, RpcChannelQoS.Durability)
	require.Equal(t, Reliable, RpcChannelQoS.Reliability)

	require.True(t, TopologyStreamQoS.History.KeepAll)
	require.Equal(t, Volatile, EventStreamQoS.Durability)
	require.Equal(t, BestEffort, EventStreamQoS.Reliability)
}

func TestErrorUnwrapAndMessage(t *testing.T) {
	inner := wrapErr("publish", "topic.name", nil)
	require.NoError(t, inner)

	err := wrapErr("publish", "topic.name", require.AnError)
	require.Error(t, err)
	var te *Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, require.AnError, te.Unwrap())
	require.Contains(t, err.Error(), "topic.name")
}
