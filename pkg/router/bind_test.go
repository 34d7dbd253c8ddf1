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

package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genesis-run/genesis/pkg/capability"
)

func TestBindProducesOneSchemaPerFunctionAndSpecialist(t *testing.T) {
	b := NewBinder(nil)
	bound := b.Bind(
		[]capability.Function{{FunctionID: "fn-1", Name: "add"}},
		[]capability.Agent{{AgentID: "agent-weather", AgentType: capability.AgentTypeSpecialist, DisplayName: "Weather"}},
	)

	require.Len(t, bound, 2)
	names := map[string]Kind{}
	for _, binding := range bound {
		names[binding.Schema.Name] = binding.Kind
	}
	require.Equal(t, KindFunction, names["add"])
	require.Equal(t, KindAgent, names["use_agent_weather"])
}

func TestBindIgnoresGeneralAgents(t *testing.T) {
	b := NewBinder(nil)
	bound := b.Bind(nil, []capability.Agent{{AgentID: "primary", AgentType: capability.AgentTypeGeneral}})
	require.Empty(t, bound)
}

func TestDisambiguateRenamesCollidingNamesDeterministically(t *testing.T) {
	b := NewBinder(nil)
	functions := []capability.Function{
		{FunctionID: "fn-1", Name: "search"},
		{FunctionID: "fn-2", Name: "search"},
	}

	first := b.Bind(functions, nil)
	second := b.Bind(functions, nil)

	require.Len(t, first, 2)
	require.ElementsMatch(t, bindingNames(first), bindingNames(second))

	seen := map[string]bool{}
	for _, binding := range first {
		require.False(t, seen[binding.Schema.Name], "expected unique names, got duplicate %q", binding.Schema.Name)
		seen[binding.Schema.Name] = true
	}
}

func TestBindPrefersSpecializationCandidateOverServiceAndAgentName(t *testing.T) {
	b := NewBinder(nil)
	bound := b.Bind(nil, []capability.Agent{{
		AgentID:         "agent-weather",
		AgentType:       capability.AgentTypeSpecialist,
		DisplayName:     "Weather",
		Specializations: []string{"Weather Forecasting"},
	}})

	require.Len(t, bound, 1)
	require.Equal(t, "get_weather_forecasting_info", bound[0].Schema.Name)
}

func TestBindFallsBackToHashSuffixWhenEveryCandidateCollides(t *testing.T) {
	b := NewBinder(nil)
	// Both agents have identical specializations, service endpoints and
	// display names. The first (AgentID-ordered) agent claims
	// get_weather_info and two functions already hold use_weather_svc and
	// ask_weather, so every candidate for the second agent collides.
	functions := []capability.Function{
		{FunctionID: "fn-1", Name: "use_weather_svc"},
		{FunctionID: "fn-2", Name: "ask_weather"},
	}
	agents := []capability.Agent{
		{AgentID: "agent-a", AgentType: capability.AgentTypeSpecialist, DisplayName: "Weather", ServiceEndpoint: "weather-svc", Specializations: []string{"weather"}},
		{AgentID: "agent-b", AgentType: capability.AgentTypeSpecialist, DisplayName: "Weather", ServiceEndpoint: "weather-svc", Specializations: []string{"weather"}},
	}

	bound := b.Bind(functions, agents)
	require.Len(t, bound, 4)

	names := map[string]string{}
	for _, binding := range bound {
		names[binding.AgentID] = binding.Schema.Name
	}
	require.Equal(t, "get_weather_info", names["agent-a"])
	require.NotEqual(t, "get_weather_info", names["agent-b"])
	require.Contains(t, names["agent-b"], "get_weather_info_")
}

func bindingNames(bindings []Binding) []string {
	out := make([]string, len(bindings))
	for i, b := range bindings {
		out[i] = b.Schema.Name
	}
	return out
}
