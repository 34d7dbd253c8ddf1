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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genesis-run/genesis/pkg/capability"
)

func TestCheckHopCountAllowsUnderLimit(t *testing.T) {
	err := CheckHopCount(capability.AgentAgentRequest{ChainID: "chain-1", HopCount: 2}, 4)
	require.NoError(t, err)
}

func TestCheckHopCountRejectsAtLimit(t *testing.T) {
	err := CheckHopCount(capability.AgentAgentRequest{ChainID: "chain-1", HopCount: 4}, 4)
	require.Error(t, err)
	var exceeded *MaxHopsExceeded
	require.ErrorAs(t, err, &exceeded)
	require.Equal(t, "chain-1", exceeded.ChainID)
}

func TestFunctionChannelCallRejectsArgumentsFailingSchemaBeforeDispatch(t *testing.T) {
	fn := capability.Function{
		FunctionID:        "fn-1",
		Name:              "lookup",
		ProviderServiceID: "svc-1",
		ParameterSchema: map[string]any{
			"type":                 "object",
			"required":             []any{"city"},
			"additionalProperties": false,
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
		},
	}

	ch := NewFunctionChannel(nil, nil)
	_, err := ch.Call(context.Background(), fn, `{"wrong_field":"x"}`)
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, CodeInvalidRequest, rpcErr.Code)
}

func TestFunctionChannelCallAllowsEmptySchema(t *testing.T) {
	err := validateAgainstSchema(nil, `{"anything":true}`)
	require.NoError(t, err)
}

func TestErrorCodeHelpers(t *testing.T) {
	require.True(t, IsTimeout(&Error{Code: CodeTimeout}))
	require.False(t, IsTimeout(&Error{Code: CodeBusy}))
	require.True(t, IsNoProvider(&Error{Code: CodeNoProvider}))
	require.False(t, IsNoProvider(nil))
}
