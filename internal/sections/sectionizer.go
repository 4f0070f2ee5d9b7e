package sections

import (
	"context"
	"errors"

	"github.com/dgallion1/docsect/internal/doctree"
)

// ErrNoDocument is returned when a caller asks to segment a missing document.
var ErrNoDocument = errors.New("no document text")

// Sectionizer segments documents with a fixed pattern table and end-marker list.
// It holds no mutable state and may be shared across goroutines.
type Sectionizer struct {
	table   *PatternTable
	markers []string
}

// New returns a Sectionizer over table. Empty end markers are dropped.
func New(table *PatternTable, endMarkers []string) *Sectionizer {
	markers := make([]string, 0, len(endMarkers))
	for _, m := range endMarkers {
		if m != "" {
			markers = append(markers, m)
		}
	}
	return &Sectionizer{table: table, markers: markers}
}

// Table returns the pattern table in use.
func (s *Sectionizer) Table() *PatternTable {
	return s.table
}

// EndMarkers returns a copy of the configured end markers.
func (s *Sectionizer) EndMarkers() []string {
	out := make([]string, len(s.markers))
	copy(out, s.markers)
	return out
}

// Segment is a convenience wrapper for New(table, endMarkers).Segment(text).
func Segment(text string, table *PatternTable, endMarkers []string) []Section {
	return New(table, endMarkers).Segment(text)
}

// Segment partitions text into sections in document order.
func (s *Sectionizer) Segment(text string) []Section {
	out, _ := s.SegmentContext(context.Background(), text)
	return out
}

// SegmentContext is Segment with cancellation. The context is only consulted while
// scanning, which dominates the cost on large documents.
func (s *Sectionizer) SegmentContext(ctx context.Context, text string) ([]Section, error) {
	candidates, err := ScanContext(ctx, text, s.table)
	if err != nil {
		return nil, err
	}

	resolved := Resolve(text, Order(candidates))
	if len(candidates) == 0 {
		return resolved, nil
	}

	for i := range resolved {
		resolved[i] = Trim(text, resolved[i], s.markers)
		resolved[i].Label = s.table.Label(resolved[i].ID)
	}
	return resolved, nil
}

// SegmentDocument segments doc.Text, rejecting a nil document.
func (s *Sectionizer) SegmentDocument(ctx context.Context, doc *doctree.Document) ([]Section, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	return s.SegmentContext(ctx, doc.Text)
}

// RecordKind distinguishes the two annotations emitted per section.
type RecordKind string

const (
	KindHeading RecordKind = "heading"
	KindBody    RecordKind = "body"
)

// Record is a single annotation handed to the indexing sink.
type Record struct {
	Kind  RecordKind `json:"kind"`
	ID    string     `json:"id"`
	Label string     `json:"label,omitempty"`
	Begin int        `json:"begin"`
	End   int        `json:"end"`
	Text  string     `json:"text"`
}

// Records expands sections into heading and body records. The fallback section has
// no heading and contributes a body record only.
func Records(text string, secs []Section) []Record {
	out := make([]Record, 0, 2*len(secs))
	for _, s := range secs {
		if !s.IsFallback() {
			out = append(out, Record{
				Kind:  KindHeading,
				ID:    s.ID,
				Label: s.Label,
				Begin: s.HeadingBegin,
				End:   s.HeadingEnd,
				Text:  s.HeadingText(text),
			})
		}
		out = append(out, Record{
			Kind:  KindBody,
			ID:    s.ID,
			Label: s.Label,
			Begin: s.BodyBegin,
			End:   s.BodyEnd,
			Text:  s.BodyText(text),
		})
	}
	return out
}

// Tree arranges sections as a DocTree so section bodies can be chunked.
func Tree(doc *doctree.Document, secs []Section) *doctree.DocTree {
	tree := &doctree.DocTree{Title: doc.Title, Source: doc.Text}
	for _, s := range secs {
		title := s.Label
		if title == "" && !s.IsFallback() {
			title = s.HeadingText(doc.Text)
		}
		tree.Nodes = append(tree.Nodes, &doctree.DocNode{
			SectionID: s.ID,
			Title:     title,
			Begin:     s.BodyBegin,
			End:       s.BodyEnd,
		})
	}
	return tree
}
