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

package config

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZookeeperProvider is a koanf provider backed by a single znode, with an
// optional Watch callback for koanf's reactive-reload path. koanf ships
// consul and etcd providers but not zookeeper, so this one is hand-rolled
// against the same ReadBytes/Watch contract those providers implement.
type ZookeeperProvider struct {
	conn *zk.Conn
	path string
}

// NewZookeeperProvider connects to endpoints and reads config from path.
func NewZookeeperProvider(endpoints []string, path string) (*ZookeeperProvider, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("zookeeper endpoints are required")
	}
	if path == "" {
		return nil, fmt.Errorf("zookeeper path is required")
	}

	conn, _, err := zk.Connect(endpoints, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to zookeeper: %w", err)
	}
	return &ZookeeperProvider{conn: conn, path: path}, nil
}

// ReadBytes implements koanf.Provider.
func (p *ZookeeperProvider) ReadBytes() ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("read zookeeper path %s: %w", p.path, err)
	}
	return data, nil
}

// Read implements koanf.Provider's map-returning variant; unsupported here
// since the zookeeper znode is parsed as a file (YAML), not as a flat map.
func (p *ZookeeperProvider) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("zookeeper provider only supports ReadBytes")
}

// Watch blocks, invoking callback on every data change until the node is
// deleted or the watch is lost.
func (p *ZookeeperProvider) Watch(callback func(event interface{}, err error)) error {
	for {
		data, _, eventCh, err := p.conn.GetW(p.path)
		if err != nil {
			callback(nil, fmt.Errorf("watch zookeeper path %s: %w", p.path, err))
			continue
		}

		event := <-eventCh
		switch event.Type {
		case zk.EventNodeDataChanged:
			callback(data, nil)
		case zk.EventNodeDeleted:
			callback(nil, fmt.Errorf("zookeeper node %s was deleted", p.path))
			return nil
		case zk.EventNotWatching:
			callback(nil, fmt.Errorf("zookeeper watch lost for path %s", p.path))
			return nil
		}
	}
}

// Close releases the zookeeper session.
func (p *ZookeeperProvider) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
