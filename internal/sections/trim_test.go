package sections

import "testing"

func TestCutAtMarkers(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		markers []string
		want    string
	}{
		{"earliest marker wins over list order", "a -- b ZZ c", []string{"ZZ", "--"}, "a"},
		{"repeated marker", "x -- y -- z", []string{"--"}, "x"},
		{"overlapping markers", "keep *** drop **", []string{"**", "***"}, "keep"},
		{"no marker", "plain body  ", []string{"--"}, "plain body"},
		{"empty markers ignored", "body text", []string{"", ""}, "body text"},
		{"marker at start", "-- all gone", []string{"--"}, ""},
		{"no markers", "body\n\n", nil, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := cutAtMarkers(tt.text, 0, len(tt.text), tt.markers)
			if got := tt.text[:end]; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCutAtMarkers_RespectsBegin(t *testing.T) {
	// A marker before begin does not affect the span.
	text := "-- head: body -- tail"
	end := cutAtMarkers(text, 9, len(text), []string{"--"})
	if got := text[9:end]; got != "body" {
		t.Errorf("expected %q, got %q", "body", got)
	}
}

func TestTrim_HeadingNeverPassesBody(t *testing.T) {
	text := "NOTE:"
	s := Trim(text, Section{ID: "note", HeadingBegin: 0, HeadingEnd: 5, BodyBegin: 5, BodyEnd: 5}, nil)
	want := Section{ID: "note", HeadingBegin: 0, HeadingEnd: 4, BodyBegin: 4, BodyEnd: 5}
	if s != want {
		t.Errorf("expected %+v, got %+v", want, s)
	}
}

func TestTrim_EmptyText(t *testing.T) {
	s := Section{ID: "x"}
	if got := Trim("", s, nil); got != s {
		t.Errorf("expected unchanged section, got %+v", got)
	}
}
