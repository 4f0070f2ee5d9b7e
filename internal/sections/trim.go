package sections

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Trim pulls the heading and body edges of s inward past whitespace and cuts the body
// at the first end marker, repeating until no marker remains. Every body that comes out
// is at least one character long: a body that would be empty is widened onto the next
// non-space character, and a body with nothing but whitespace left before the end of the
// text is moved onto the last character. The heading is then cut back so it never ends
// after the body begins. Trimming a trimmed section returns it unchanged.
func Trim(text string, s Section, endMarkers []string) Section {
	n := len(text)
	if n == 0 {
		return s
	}

	s.HeadingBegin = skipSpaceForward(text, s.HeadingBegin, s.HeadingEnd)
	s.HeadingEnd = skipSpaceBackward(text, s.HeadingBegin, s.HeadingEnd)
	s.BodyBegin = skipSpaceForward(text, s.BodyBegin, s.BodyEnd)
	s.BodyEnd = cutAtMarkers(text, s.BodyBegin, s.BodyEnd, endMarkers)

	if s.BodyEnd < s.BodyBegin+1 {
		s.BodyBegin = skipSpaceForward(text, s.BodyBegin, n)
		if s.BodyBegin >= n {
			_, size := utf8.DecodeLastRuneInString(text)
			s.BodyBegin = n - size
			s.BodyEnd = n
		} else {
			_, size := utf8.DecodeRuneInString(text[s.BodyBegin:])
			s.BodyEnd = s.BodyBegin + size
		}
	}

	if s.HeadingEnd > s.BodyBegin {
		s.HeadingEnd = s.BodyBegin
		s.HeadingBegin = min(s.HeadingBegin, s.HeadingEnd)
		s.HeadingEnd = skipSpaceBackward(text, s.HeadingBegin, s.HeadingEnd)
	}
	return s
}

func skipSpaceForward(text string, begin, end int) int {
	for begin < end {
		r, size := utf8.DecodeRuneInString(text[begin:end])
		if !unicode.IsSpace(r) {
			break
		}
		begin += size
	}
	return begin
}

func skipSpaceBackward(text string, begin, end int) int {
	for begin < end {
		r, size := utf8.DecodeLastRuneInString(text[begin:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return end
}

// cutAtMarkers shrinks end to the earliest marker occurrence until the span holds no
// marker, then drops trailing whitespace. Each pass moves end strictly left.
func cutAtMarkers(text string, begin, end int, markers []string) int {
	if begin > end {
		return end
	}
	for {
		k := firstMarker(text[begin:end], markers)
		if k < 0 {
			return skipSpaceBackward(text, begin, end)
		}
		end = begin + k
	}
}

func firstMarker(s string, markers []string) int {
	best := -1
	for _, m := range markers {
		if m == "" {
			continue
		}
		if i := strings.Index(s, m); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
