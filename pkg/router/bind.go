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
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/genesis-run/genesis/pkg/capability"
)

// Binder assembles the current set of bound tools from discovered
// Functions, discovered Agents, and statically registered local tools. Name
// collisions (an agent and a function sharing a name, two providers of the
// same function name, etc.) are resolved deterministically by suffixing
// every colliding name after the first with a short hash of the binding's
// dispatch identity, so the same inputs always produce the same
// disambiguated name.
type Binder struct {
	locals map[string]Binding
}

// NewBinder creates a Binder seeded with the process's local tools.
func NewBinder(locals []Binding) *Binder {
	m := make(map[string]Binding, len(locals))
	for _, b := range locals {
		m[b.Schema.Name] = b
	}
	return &Binder{locals: m}
}

// Bind produces the current bound tool set from a snapshot of discovered
// functions and agents, alongside the registered local tools. Function and
// Local names are fixed and disambiguated among themselves first; each
// Agent then takes the first name off its ordered candidate list that
// neither a fixed binding nor an earlier (AgentID-ordered) agent has
// already claimed, so the result is deterministic given the same inputs.
func (b *Binder) Bind(functions []capability.Function, agents []capability.Agent) []Binding {
	var fixed []Binding
	for _, fn := range functions {
		fixed = append(fixed, Binding{
			Schema: Schema{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.ParameterSchema,
			},
			Kind:       KindFunction,
			FunctionID: fn.FunctionID,
		})
	}
	for _, local := range b.locals {
		fixed = append(fixed, local)
	}
	fixed = disambiguate(fixed)

	used := make(map[string]bool, len(fixed))
	for _, f := range fixed {
		used[f.Schema.Name] = true
	}

	specialists := make([]capability.Agent, 0, len(agents))
	for _, a := range agents {
		if a.AgentType == capability.AgentTypeSpecialist {
			specialists = append(specialists, a)
		}
	}
	sort.SliceStable(specialists, func(i, j int) bool { return specialists[i].AgentID < specialists[j].AgentID })

	out := fixed
	for _, a := range specialists {
		name := pickAgentToolName(a, used)
		used[name] = true
		out = append(out, Binding{
			Schema: Schema{
				Name:        name,
				Description: agentToolDescription(a),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"message": map[string]any{"type": "string"},
					},
					"required": []string{"message"},
				},
			},
			Kind:    KindAgent,
			AgentID: a.AgentID,
		})
	}
	return out
}

// pickAgentToolName returns the first of a's candidate names not already in
// used. If every candidate collides, it falls back to the most specific
// candidate suffixed with a stable hash of a's agent id.
func pickAgentToolName(a capability.Agent, used map[string]bool) string {
	candidates := agentToolCandidates(a)
	for _, c := range candidates {
		if !used[c] {
			return c
		}
	}
	return fmt.Sprintf("%s_%s", candidates[0], collisionSuffix("agent:"+a.AgentID))
}

// agentToolCandidates builds the ordered candidate list a delegation tool
// name is chosen from: one "get_<specialization>_info" per specialization,
// then "use_<service_name>", then "ask_<agent_name>" as the name that's
// always available since it falls back to the agent's own id.
func agentToolCandidates(a capability.Agent) []string {
	candidates := make([]string, 0, len(a.Specializations)+2)
	for _, spec := range a.Specializations {
		if token := toolNameToken(spec); token != "" {
			candidates = append(candidates, "get_"+token+"_info")
		}
	}
	if token := toolNameToken(agentServiceName(a)); token != "" {
		candidates = append(candidates, "use_"+token)
	}
	candidates = append(candidates, "ask_"+toolNameToken(agentDisplayName(a)))
	return candidates
}

func agentServiceName(a capability.Agent) string {
	if a.ServiceEndpoint != "" {
		return a.ServiceEndpoint
	}
	return a.AgentID
}

func agentDisplayName(a capability.Agent) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.AgentID
}

// toolNameToken lowercases s and replaces every run of non [a-z0-9]
// characters with a single underscore, the same normalization an LLM
// function-calling API's name validation expects.
func toolNameToken(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func agentToolDescription(a capability.Agent) string {
	if a.DisplayName != "" {
		return "Delegate a task to the " + a.DisplayName + " specialist agent."
	}
	return "Delegate a task to specialist agent " + a.AgentID + "."
}

// disambiguate renames every binding past the first with the same name by
// appending "_" plus a 6-hex-digit suffix derived from its dispatch
// identity, so the renaming is stable across repeated calls with the same
// input set.
func disambiguate(candidates []Binding) []Binding {
	sort.SliceStable(candidates, func(i, j int) bool {
		return bindingIdentity(candidates[i]) < bindingIdentity(candidates[j])
	})

	seen := make(map[string]int, len(candidates))
	out := make([]Binding, 0, len(candidates))
	for _, c := range candidates {
		name := c.Schema.Name
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%s", c.Schema.Name, collisionSuffix(bindingIdentity(c)))
		}
		seen[c.Schema.Name]++
		c.Schema.Name = name
		out = append(out, c)
	}
	return out
}

func bindingIdentity(b Binding) string {
	switch b.Kind {
	case KindFunction:
		return "function:" + b.FunctionID
	case KindAgent:
		return "agent:" + b.AgentID
	default:
		return "local:" + b.Schema.Name
	}
}

func collisionSuffix(identity string) string {
	h := xxhash.Sum64String(identity)
	return fmt.Sprintf("%06x", h&0xFFFFFF)
}
