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

type fakeLLM struct {
	completions []Completion
	calls       int
}

func (f *fakeLLM) Complete(_ context.Context, _ []Message, _ []Schema) (Completion, error) {
	c := f.completions[f.calls]
	if f.calls < len(f.completions)-1 {
		f.calls++
	}
	return c, nil
}

func TestRouterRunReturnsFinalAnswerAfterToolRound(t *testing.T) {
	binder := NewBinder([]Binding{{
		Schema: Schema{Name: "echo"},
		Kind:   KindLocal,
		Local: func(ctx context.Context, argumentsJSON string) (string, error) {
			return `{"echoed":true}`, nil
		},
	}})
	bound := binder.Bind(nil, nil)

	llm := &fakeLLM{completions: []Completion{
		{ToolCalls: []Call{{ID: "call-1", Name: "echo", ArgumentsJSON: "{}"}}},
		{Content: "done"},
	}}

	dispatcher := NewDispatcher(nil, nil, nil, nil)
	r := NewRouter(llm, binder, dispatcher, 4, nil)

	out, err := r.Run(context.Background(), bound, []Message{{Role: RoleUser, Content: "go"}})
	require.NoError(t, err)
	require.Equal(t, "done", out)
	require.Equal(t, 2, llm.calls+1)
}

func TestRouterRunExhaustsRoundsWithoutFinalAnswer(t *testing.T) {
	binder := NewBinder([]Binding{{
		Schema: Schema{Name: "loop"},
		Kind:   KindLocal,
		Local: func(ctx context.Context, argumentsJSON string) (string, error) {
			return "{}", nil
		},
	}})
	bound := binder.Bind(nil, nil)

	llm := &fakeLLM{completions: []Completion{
		{ToolCalls: []Call{{ID: "call-1", Name: "loop"}}},
	}}

	dispatcher := NewDispatcher(nil, nil, nil, nil)
	r := NewRouter(llm, binder, dispatcher, 2, nil)

	_, err := r.Run(context.Background(), bound, []Message{{Role: RoleUser, Content: "go"}})
	require.Error(t, err)
	var limitErr *ErrMaxToolRoundsExceeded
	require.ErrorAs(t, err, &limitErr)
}

func TestDispatchAllReportsUnknownToolWithoutFailingOthers(t *testing.T) {
	binder := NewBinder([]Binding{{
		Schema: Schema{Name: "known"},
		Kind:   KindLocal,
		Local: func(ctx context.Context, argumentsJSON string) (string, error) {
			return "ok", nil
		},
	}})
	bound := binder.Bind(nil, nil)

	dispatcher := NewDispatcher(nil, nil, nil, nil)
	results := dispatcher.DispatchAll(context.Background(), bound, []Call{
		{ID: "1", Name: "known"},
		{ID: "2", Name: "missing"},
	})

	require.Len(t, results, 2)
	require.Equal(t, "ok", results[0].ResultJSON)
	require.Contains(t, results[1].Error, "unknown tool")
}
