package sections

import (
	"context"
	"sort"
)

// HeadingCandidate is a raw heading match: half-open byte offsets into the document.
type HeadingCandidate struct {
	ID    string
	Begin int
	End   int
}

// Scan runs every rule in table against text and returns all matches, rule by rule
// in declaration order. Overlapping matches from different rules are all kept.
func Scan(text string, table *PatternTable) []HeadingCandidate {
	candidates, _ := ScanContext(context.Background(), text, table)
	return candidates
}

// ScanContext is Scan with cancellation checked between rules.
func ScanContext(ctx context.Context, text string, table *PatternTable) ([]HeadingCandidate, error) {
	var candidates []HeadingCandidate
	for _, rule := range table.Rules() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, loc := range rule.Matcher.FindAllStringIndex(text, -1) {
			candidates = append(candidates, HeadingCandidate{
				ID:    rule.ID,
				Begin: loc[0],
				End:   loc[1],
			})
		}
	}
	return candidates, nil
}

// Order returns a copy of candidates sorted by start offset. Candidates that start at
// the same offset keep their scan order, so the earlier-declared rule comes first.
func Order(candidates []HeadingCandidate) []HeadingCandidate {
	out := make([]HeadingCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Begin < out[j].Begin })
	return out
}
