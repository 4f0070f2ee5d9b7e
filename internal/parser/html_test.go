package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_BlocksAndBreaks(t *testing.T) {
	input := `<html><head><title>Discharge Summary</title><style>p{}</style></head>
<body>
<h2>Medications</h2>
<ul><li>aspirin</li><li>metoprolol</li></ul>
<div>HISTORY: well<br>PLAN: home</div>
<script>track()</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "summary.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Discharge Summary" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	want := "Medications\n\naspirin\n\nmetoprolol\n\nHISTORY: well\nPLAN: home"
	if doc.Text != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, doc.Text)
	}
}

func TestHTMLParser_CollapsesSourceWhitespace(t *testing.T) {
	input := "<p>\n   Chief   complaint:\n   cough\n</p>"
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "cc.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "cc" {
		t.Errorf("expected filename title, got %q", doc.Title)
	}
	if doc.Text != "Chief complaint: cough" {
		t.Errorf("expected collapsed text, got %q", doc.Text)
	}
}

func TestHTMLParser_KeepsNonBreakingSpace(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<p>PLAN:&nbsp;rest</p>"), "nbsp.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != "PLAN:\u00a0rest" {
		t.Errorf("expected non-breaking space preserved, got %q", doc.Text)
	}
}
