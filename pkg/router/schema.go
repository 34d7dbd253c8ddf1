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
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// reflectParameters builds the JSON Schema "parameters" object for a local
// tool from its argument struct, the same reflection-based approach the
// teacher's function-tool layer uses so every local tool's schema stays in
// lockstep with its Go argument type instead of being hand-maintained.
func reflectParameters(args any) map[string]any {
	r := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	schema := r.Reflect(args)
	raw, err := schema.MarshalJSON()
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// LocalTool describes a process-local tool whose schema is reflected from
// Args and whose Run receives arguments already decoded into a fresh copy of
// Args (not raw JSON), keeping handler bodies free of marshaling code.
type LocalTool struct {
	Name        string
	Description string
	// Args is a zero-value instance of the struct Run's argument should be
	// decoded into; only its type and jsonschema struct tags are used.
	Args any
	Run  func(ctx context.Context, args any) (string, error)
}

// NewLocalBinding reflects t.Args into a tool schema and wraps t.Run behind
// the LocalHandler signature the router dispatches, decoding the LLM's
// arguments_json through an intermediate map with mapstructure so Run always
// receives a typed copy rather than a raw map[string]any.
func NewLocalBinding(t LocalTool) Binding {
	return Binding{
		Schema: Schema{Name: t.Name, Description: t.Description, Parameters: reflectParameters(t.Args)},
		Kind:   KindLocal,
		Local: func(ctx context.Context, argumentsJSON string) (string, error) {
			var raw map[string]any
			if argumentsJSON != "" {
				if err := json.Unmarshal([]byte(argumentsJSON), &raw); err != nil {
					return "", fmt.Errorf("decode arguments: %w", err)
				}
			}

			target := reflect.New(reflect.TypeOf(t.Args)).Interface()
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           target,
				WeaklyTypedInput: true,
				TagName:          "json",
			})
			if err != nil {
				return "", fmt.Errorf("build argument decoder: %w", err)
			}
			if err := dec.Decode(raw); err != nil {
				return "", fmt.Errorf("decode arguments into %T: %w", t.Args, err)
			}

			return t.Run(ctx, reflect.ValueOf(target).Elem().Interface())
		},
	}
}
