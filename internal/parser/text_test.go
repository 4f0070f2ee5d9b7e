package parser

import (
	"strings"
	"testing"
)

func TestTextParser_PassesUTF8Through(t *testing.T) {
	input := "HISTORY:\r\npt well.\n\nPLAN: f/u\n"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if doc.Text != input {
		t.Errorf("expected text unchanged, got %q", doc.Text)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", doc.Title)
	}
	if doc.Text != "" {
		t.Errorf("expected empty text, got %q", doc.Text)
	}
}

func TestTextParser_DecodesWindows1252(t *testing.T) {
	// 0xE9 is e-acute and 0x96 is an en dash in Windows-1252; neither is valid UTF-8 alone.
	input := "Caf\xe9 visit \x96 follow-up"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "legacy.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Caf\u00e9 visit \u2013 follow-up"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
}

func TestTextParser_NormalizesToNFC(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("Re\u0301sume\u0301:"), "nfc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "R\u00e9sum\u00e9:"
	if doc.Text != want {
		t.Errorf("expected composed form %q, got %q", want, doc.Text)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"a.txt", false},
		{"a.TXT", false},
		{"a.md", false},
		{"a.markdown", false},
		{"a.htm", false},
		{"a.pdf", false},
		{"a.docx", false},
		{"a.csv", true},
		{"noext", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			_, err := ForFile(tt.filename, Options{})
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
			if IsSupportedExtension(tt.filename) == tt.wantErr {
				t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.filename)
			}
		})
	}
}

func TestForFile_PDFFallbackOption(t *testing.T) {
	p, err := ForFile("scan.pdf", Options{PDFFallbackPdftotext: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pdf, ok := p.(*PDFParser)
	if !ok {
		t.Fatalf("expected *PDFParser, got %T", p)
	}
	if !pdf.FallbackPdftotext {
		t.Error("expected pdftotext fallback to be enabled")
	}
}
