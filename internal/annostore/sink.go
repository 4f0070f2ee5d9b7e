package annostore

import "context"

// Sink is where sectionized documents are written.
type Sink interface {
	PutNode(ctx context.Context, key string, req NodeRequest) error
	GetNode(ctx context.Context, key string) (*Node, error)
	DeleteNode(ctx context.Context, key string, recursive bool) error
	ListChildren(ctx context.Context, key string, limit int) ([]Node, error)
	PutLink(ctx context.Context, req LinkRequest) error
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	Kind      string `json:"kind,omitempty"`
	Source    string `json:"source,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Node is a stored key and its value.
type Node struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
	Kind  string `json:"kind,omitempty"`
}

// LinkRequest is the body for PUT /links.
type LinkRequest struct {
	From    string  `json:"from_key"`
	To      string  `json:"to_key"`
	Weight  float64 `json:"weight"`
	Summary string  `json:"summary,omitempty"`
}

var (
	_ Sink = (*Client)(nil)
	_ Sink = (*MemorySink)(nil)
)
