package sections

// Section is one resolved section: a heading span followed by a body span, both
// half-open byte offsets into the document text.
type Section struct {
	ID           string `json:"id"`
	Label        string `json:"label,omitempty"`
	HeadingBegin int    `json:"heading_begin"`
	HeadingEnd   int    `json:"heading_end"`
	BodyBegin    int    `json:"body_begin"`
	BodyEnd      int    `json:"body_end"`
}

// IsFallback reports whether s is the whole-document section emitted when no heading matched.
func (s Section) IsFallback() bool {
	return s.ID == SimpleSegment
}

// HeadingText returns the heading span of s within text.
func (s Section) HeadingText(text string) string {
	return text[s.HeadingBegin:s.HeadingEnd]
}

// BodyText returns the body span of s within text.
func (s Section) BodyText(text string) string {
	return text[s.BodyBegin:s.BodyEnd]
}

// Resolve turns ordered candidates into abutting sections. Each body runs from the end
// of its heading to the start of the next heading, or to the end of the text, and
// HeadingEnd never passes BodyBegin.
// With no candidates the whole text becomes a single SimpleSegment section with an
// empty heading at offset 0.
func Resolve(text string, ordered []HeadingCandidate) []Section {
	n := len(text)
	if len(ordered) == 0 {
		return []Section{{ID: SimpleSegment, BodyEnd: n}}
	}

	out := make([]Section, 0, len(ordered))
	for i, c := range ordered {
		s := Section{
			ID:           c.ID,
			HeadingBegin: c.Begin,
			HeadingEnd:   c.End,
			BodyBegin:    c.End,
			BodyEnd:      n,
		}
		if i+1 < len(ordered) {
			s.BodyEnd = ordered[i+1].Begin
			// Adjacent or overlapping headings: the first one gets an empty body, and a
			// heading that runs into the next one is cut where the body starts.
			if s.BodyBegin > s.BodyEnd {
				s.BodyBegin = s.BodyEnd
			}
			s.HeadingEnd = min(s.HeadingEnd, s.BodyBegin)
			s.HeadingBegin = min(s.HeadingBegin, s.HeadingEnd)
		}
		out = append(out, s)
	}
	return out
}
