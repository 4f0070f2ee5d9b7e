package chunker

import (
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docsect/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults. Section bodies such as "NKDA" are
// meaningful at a single token, so MinChunk keeps everything.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     1,
	}
}

// span is a half-open byte range into the tree source.
type span struct {
	begin, end int
}

// ChunkTree cuts every section body of tree into chunks. Chunks never cross a section
// boundary and each chunk's Text is exactly Source[Begin:End].
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = def.MinChunk
	}

	var chunks []doctree.Chunk
	src := tree.Source

	for _, node := range tree.Nodes {
		body := trimSpan(src, span{node.Begin, node.End})
		if body.begin >= body.end {
			continue
		}
		bc := breadcrumb(tree.Title, node.Title)

		for _, part := range splitSpan(src, body, cfg.ChunkSize, cfg.ChunkOverlap) {
			text := src[part.begin:part.end]
			if EstimateTokens(text) < cfg.MinChunk {
				continue
			}
			chunks = append(chunks, doctree.Chunk{
				Text:       text,
				Index:      len(chunks),
				SectionID:  node.SectionID,
				Breadcrumb: bc,
				Begin:      part.begin,
				End:        part.end,
			})
		}
	}

	return chunks
}

// splitSpan breaks body into spans of approximately targetTokens, with overlap.
func splitSpan(src string, body span, targetTokens, overlapTokens int) []span {
	if EstimateTokens(src[body.begin:body.end]) <= targetTokens {
		return []span{body}
	}

	// Paragraphs first; a paragraph that is too large is replaced by its sentences,
	// and a sentence that is too large by its words.
	var units []span
	for _, para := range paragraphSpans(src, body) {
		if EstimateTokens(src[para.begin:para.end]) <= targetTokens {
			units = append(units, para)
			continue
		}
		for _, sent := range sentenceSpans(src, para) {
			if EstimateTokens(src[sent.begin:sent.end]) <= targetTokens {
				units = append(units, sent)
				continue
			}
			units = append(units, wordSpans(src, sent)...)
		}
	}

	return pack(src, units, targetTokens, overlapTokens)
}

// pack merges consecutive units into spans up to targetTokens. Each new span starts
// overlapTokens worth of words before the end of the previous one.
func pack(src string, units []span, targetTokens, overlapTokens int) []span {
	var result []span
	var cur span
	open := false

	for _, u := range units {
		if open && EstimateTokens(src[cur.begin:u.end]) > targetTokens {
			result = append(result, cur)
			if start := overlapStart(src, cur, overlapTokens); start < cur.end {
				cur = span{start, cur.end}
			} else {
				open = false
			}
		}

		if !open {
			cur = u
			open = true
			continue
		}
		cur.end = u.end
	}

	if open {
		result = append(result, cur)
	}
	return result
}

// overlapStart returns the offset of the word that begins the last overlapTokens of s,
// or s.end when s is too short to overlap.
func overlapStart(src string, s span, overlapTokens int) int {
	words := wordSpans(src, s)
	// Approximate: 1.33 tokens per word.
	targetWords := int(float64(overlapTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return s.end
	}
	return words[len(words)-targetWords].begin
}

// paragraphSpans splits s on blank lines and trims each piece.
func paragraphSpans(src string, s span) []span {
	var result []span
	paraStart := s.begin
	lineStart := s.begin

	for i := s.begin; i <= s.end; i++ {
		if i < s.end && src[i] != '\n' {
			continue
		}
		// src[lineStart:i] is one line.
		if isBlank(src[lineStart:i]) {
			if p := trimSpan(src, span{paraStart, lineStart}); p.begin < p.end {
				result = append(result, p)
			}
			paraStart = i
		}
		lineStart = i + 1
	}
	if p := trimSpan(src, span{paraStart, s.end}); p.begin < p.end {
		result = append(result, p)
	}
	return result
}

// sentenceSpans splits after '.', '!' or '?' followed by a space.
func sentenceSpans(src string, s span) []span {
	var result []span
	start := s.begin

	for i := s.begin; i < s.end; i++ {
		switch src[i] {
		case '.', '!', '?':
			if i+1 < s.end && src[i+1] == ' ' {
				if p := trimSpan(src, span{start, i + 1}); p.begin < p.end {
					result = append(result, p)
				}
				start = i + 1
			}
		}
	}
	if p := trimSpan(src, span{start, s.end}); p.begin < p.end {
		result = append(result, p)
	}
	return result
}

// wordSpans returns the whitespace-separated words of s.
func wordSpans(src string, s span) []span {
	var result []span
	start := -1

	for i := s.begin; i < s.end; {
		r, size := utf8.DecodeRuneInString(src[i:s.end])
		if unicode.IsSpace(r) {
			if start >= 0 {
				result = append(result, span{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		result = append(result, span{start, s.end})
	}
	return result
}

func trimSpan(src string, s span) span {
	for s.begin < s.end {
		r, size := utf8.DecodeRuneInString(src[s.begin:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.begin += size
	}
	for s.end > s.begin {
		r, size := utf8.DecodeLastRuneInString(src[s.begin:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.end -= size
	}
	return s
}

func isBlank(line string) bool {
	for _, r := range line {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func breadcrumb(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
