package annostore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemorySink is an in-process Sink, used when no index URL is configured and in tests.
// Values are round-tripped through JSON so readers see the same shapes as over HTTP.
type MemorySink struct {
	mu    sync.RWMutex
	nodes map[string]Node
	links []LinkRequest
}

func NewMemorySink() *MemorySink {
	return &MemorySink{nodes: make(map[string]Node)}
}

func (m *MemorySink) PutNode(_ context.Context, key string, req NodeRequest) error {
	data, err := json.Marshal(req.Value)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("unmarshal node: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[key] = Node{Key: key, Value: value, Kind: req.Kind}
	return nil
}

func (m *MemorySink) GetNode(_ context.Context, key string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[key]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (m *MemorySink) DeleteNode(_ context.Context, key string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, key)
	if recursive {
		prefix := key + "/"
		for k := range m.nodes {
			if strings.HasPrefix(k, prefix) {
				delete(m.nodes, k)
			}
		}
		kept := m.links[:0]
		for _, l := range m.links {
			if !strings.HasPrefix(l.From, prefix) && !strings.HasPrefix(l.To, prefix) {
				kept = append(kept, l)
			}
		}
		m.links = kept
	}
	return nil
}

// ListChildren returns every node under key in key order.
func (m *MemorySink) ListChildren(_ context.Context, key string, limit int) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := key + "/"
	var out []Node
	for k, n := range m.nodes {
		if strings.HasPrefix(k, prefix) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemorySink) PutLink(_ context.Context, req LinkRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links {
		if l.From == req.From && l.To == req.To {
			m.links[i] = req
			return nil
		}
	}
	m.links = append(m.links, req)
	return nil
}

// Links returns a copy of the stored links.
func (m *MemorySink) Links() []LinkRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LinkRequest, len(m.links))
	copy(out, m.links)
	return out
}

// Len returns the number of stored nodes.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
