package parser

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dgallion1/docsect/internal/doctree"
	"golang.org/x/text/encoding/charmap"
)

// TextParser handles plain text files. Input that is not valid UTF-8 is read as
// Windows-1252, the usual encoding of exported clinical notes.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1252: %w", err)
		}
		raw = decoded
	}

	return newDocument(filename, string(raw)), nil
}
