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

package monitoring

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// graphView is the JSON shape served at /graph: a point-in-time snapshot of
// every node and edge this process has reconstructed from the monitoring
// streams.
type graphView struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewHTTPHandler builds the chi router serving /healthz, /metrics and
// /graph for this Monitor.
func (m *Monitor) NewHTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/graph", func(w http.ResponseWriter, r *http.Request) {
		view := graphView{Nodes: m.Graph.Nodes(), Edges: m.Graph.Edges()}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})

	return r
}
