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
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City to look up"`
	Units string `json:"units,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
}

func TestNewLocalBindingReflectsParameterSchema(t *testing.T) {
	binding := NewLocalBinding(LocalTool{
		Name: "weather", Description: "looks up weather", Args: weatherArgs{},
		Run: func(ctx context.Context, args any) (string, error) { return "sunny", nil },
	})

	require.Equal(t, KindLocal, binding.Kind)
	props, ok := binding.Schema.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "city")
	require.Contains(t, props, "units")
}

func TestNewLocalBindingDecodesArgumentsBeforeRun(t *testing.T) {
	var seen weatherArgs
	binding := NewLocalBinding(LocalTool{
		Name: "weather", Args: weatherArgs{},
		Run: func(ctx context.Context, args any) (string, error) {
			seen = args.(weatherArgs)
			return "ok", nil
		},
	})

	out, err := binding.Local(context.Background(), `{"city":"Berlin","units":"celsius"}`)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, "Berlin", seen.City)
	require.Equal(t, "celsius", seen.Units)
}
