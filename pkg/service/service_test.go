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

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genesis-run/genesis/pkg/capability"
)

func newTestService(functions ...Function) *Service {
	byName := make(map[string]Function, len(functions))
	for _, fn := range functions {
		byName[fn.Name] = fn
	}
	return &Service{cfg: Config{ServiceID: "svc-1", DisplayName: "Calculator Service"}, byName: byName}
}

func TestFunctionIDIsScopedToServiceID(t *testing.T) {
	fn := Function{Name: "add"}
	require.Equal(t, "svc-1.add", fn.functionID("svc-1"))
}

func TestHandleFunctionRequestDispatchesToNamedHandler(t *testing.T) {
	s := newTestService(Function{
		Name: "add",
		Handle: func(ctx context.Context, argumentsJSON string) (string, error) {
			var args struct{ A, B int }
			_ = json.Unmarshal([]byte(argumentsJSON), &args)
			out, _ := json.Marshal(map[string]int{"sum": args.A + args.B})
			return string(out), nil
		},
	})

	reply, err := s.handleFunctionRequest(context.Background(), capability.FunctionRequest{
		FunctionName:  "add",
		ArgumentsJSON: `{"A":2,"B":3}`,
	})
	require.NoError(t, err)
	require.Equal(t, 0, reply.Status)
	require.JSONEq(t, `{"sum":5}`, reply.ResultJSON)
}

func TestHandleFunctionRequestReportsUnknownFunctionAsBusinessError(t *testing.T) {
	s := newTestService()

	reply, err := s.handleFunctionRequest(context.Background(), capability.FunctionRequest{FunctionName: "missing"})
	require.NoError(t, err)
	require.Equal(t, 1, reply.Status)
	require.Contains(t, reply.ErrorMessage, "missing")
}

func TestPresencePayloadAdvertisesServiceRole(t *testing.T) {
	s := newTestService()

	var p capability.Presence
	require.NoError(t, json.Unmarshal(s.presencePayload(), &p))
	require.Equal(t, "svc-1", p.AgentID)
	require.Equal(t, capability.RoleService, p.Role)
}
