package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/docsect/internal/annostore"
	"github.com/dgallion1/docsect/internal/sections"
)

// DeleteDocument removes every record stored for docID along with its content-hash
// index entry. found reports whether the document had metadata.
func DeleteDocument(ctx context.Context, sink annostore.Sink, docID string) (found bool, err error) {
	meta, err := sink.GetNode(ctx, annostore.MetaKey(docID))
	if err != nil {
		return false, fmt.Errorf("read meta: %w", err)
	}
	found = meta != nil

	if hash := metaString(meta, "content_hash"); hash != "" {
		if err := sink.DeleteNode(ctx, annostore.HashKey(hash, docID), false); err != nil {
			return found, fmt.Errorf("delete hash index: %w", err)
		}
	}
	if err := sink.DeleteNode(ctx, annostore.DocPrefix(docID), true); err != nil {
		return found, fmt.Errorf("delete records: %w", err)
	}
	return found, nil
}

// StoredSections returns the heading and body records of docID in document order.
func StoredSections(ctx context.Context, sink annostore.Sink, docID string) ([]annostore.Node, error) {
	nodes, err := sink.ListChildren(ctx, annostore.SectionsPrefix(docID), 0)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	// Keys are docs/{id}/sections/{NNNN}/{kind}; headings precede bodies.
	sort.SliceStable(nodes, func(i, j int) bool {
		pi, ki := splitKind(nodes[i].Key)
		pj, kj := splitKind(nodes[j].Key)
		if pi != pj {
			return pi < pj
		}
		return ki == string(sections.KindHeading) && kj != string(sections.KindHeading)
	})
	return nodes, nil
}

func splitKind(key string) (prefix, kind string) {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func metaString(meta *annostore.Node, field string) string {
	if meta == nil {
		return ""
	}
	m, ok := meta.Value.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[field].(string)
	return s
}
