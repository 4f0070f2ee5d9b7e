package annostore

import (
	"fmt"
	"regexp"
	"strings"
)

// Key layout:
//
//	docs/{docID}/meta
//	docs/{docID}/sections/{NNNN}/heading
//	docs/{docID}/sections/{NNNN}/body
//	docs/{docID}/chunks/{ulid}
//	index/by_hash/{sha256}/{docID}

func DocPrefix(docID string) string {
	return "docs/" + docID
}

func MetaKey(docID string) string {
	return DocPrefix(docID) + "/meta"
}

func SectionsPrefix(docID string) string {
	return DocPrefix(docID) + "/sections"
}

// SectionKey addresses the heading or body record of the n-th section.
func SectionKey(docID string, n int, kind string) string {
	return fmt.Sprintf("%s/%04d/%s", SectionsPrefix(docID), n, kind)
}

func ChunkKey(docID, chunkID string) string {
	return DocPrefix(docID) + "/chunks/" + chunkID
}

func HashPrefix(contentHash string) string {
	return "index/by_hash/" + contentHash
}

func HashKey(contentHash, docID string) string {
	return HashPrefix(contentHash) + "/" + docID
}

// LastSegment returns the final path element of key.
func LastSegment(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a key-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}
