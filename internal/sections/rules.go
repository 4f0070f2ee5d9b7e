package sections

import (
	"fmt"
	"regexp"
	"strings"
)

// SimpleSegment is the section id reported when no heading rule matches a document.
const SimpleSegment = "SIMPLE_SEGMENT"

// Fragments wrapped around every alias. \x{2003} is the em space that shows up in
// documents exported from word processors; \x{00A0} is a non-breaking space.
const (
	leadingSpace  = `[\s\x{00A0}\x{2003}]*`
	trailingSpace = `[ \t\x{00A0}\x{2003}]*`
	terminator    = `(?::[\s\x{00A0}\x{2003}]*|\r*\n)`
)

// SectionRule is one row of section configuration.
type SectionRule struct {
	ID      string
	Aliases []string // Heading texts; may embed regex syntax
	Label   string   // Optional display label
}

// CompiledRule is a SectionRule with its aliases compiled into a single matcher.
type CompiledRule struct {
	ID      string
	Matcher *regexp.Regexp
	Label   string
}

// RuleWarning describes a rule (or part of one) that was skipped while compiling a table.
type RuleWarning struct {
	Index  int // Position of the rule in the input slice
	ID     string
	Reason string
}

func (w RuleWarning) Error() string {
	if w.ID == "" {
		return fmt.Sprintf("rule %d: %s", w.Index, w.Reason)
	}
	return fmt.Sprintf("rule %d (%s): %s", w.Index, w.ID, w.Reason)
}

// PatternTable is an immutable, ordered set of compiled section rules. It is safe
// for concurrent use once returned by Compile.
type PatternTable struct {
	rules []CompiledRule
	byID  map[string]int
}

// Compile builds a PatternTable from rules, preserving declaration order. Rules that
// cannot be used are skipped and reported as warnings; compilation never fails as a whole.
func Compile(rules []SectionRule) (*PatternTable, []RuleWarning) {
	t := &PatternTable{byID: make(map[string]int, len(rules))}
	var warnings []RuleWarning

	for i, r := range rules {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			warnings = append(warnings, RuleWarning{Index: i, Reason: "missing id"})
			continue
		}
		if id == SimpleSegment {
			warnings = append(warnings, RuleWarning{Index: i, ID: id, Reason: "reserved id"})
			continue
		}
		if _, dup := t.byID[id]; dup {
			warnings = append(warnings, RuleWarning{Index: i, ID: id, Reason: "duplicate id"})
			continue
		}

		var aliases []string
		for _, a := range r.Aliases {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			if _, err := regexp.Compile(a); err != nil {
				warnings = append(warnings, RuleWarning{Index: i, ID: id, Reason: fmt.Sprintf("alias %q: %v", a, err)})
				continue
			}
			aliases = append(aliases, a)
		}
		if len(aliases) == 0 {
			warnings = append(warnings, RuleWarning{Index: i, ID: id, Reason: "no usable aliases"})
			continue
		}

		m, err := BuildMatcher(aliases)
		if err != nil {
			warnings = append(warnings, RuleWarning{Index: i, ID: id, Reason: err.Error()})
			continue
		}

		t.byID[id] = len(t.rules)
		t.rules = append(t.rules, CompiledRule{
			ID:      id,
			Matcher: m,
			Label:   strings.TrimSpace(r.Label),
		})
	}

	return t, warnings
}

// BuildMatcher compiles aliases into one case-insensitive, multi-line pattern that
// matches any alias at the start of a line followed by a colon or a line break.
func BuildMatcher(aliases []string) (*regexp.Regexp, error) {
	var sb strings.Builder
	for i, a := range aliases {
		if i > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(leadingSpace)
		sb.WriteString(a)
		sb.WriteString(trailingSpace)
		sb.WriteString(terminator)
	}
	re, err := regexp.Compile(`(?ims)^(` + sb.String() + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile heading pattern: %w", err)
	}
	return re, nil
}

// Rules returns the compiled rules in declaration order.
func (t *PatternTable) Rules() []CompiledRule {
	if t == nil {
		return nil
	}
	out := make([]CompiledRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of usable rules.
func (t *PatternTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Lookup returns the compiled rule for id.
func (t *PatternTable) Lookup(id string) (CompiledRule, bool) {
	if t == nil {
		return CompiledRule{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return CompiledRule{}, false
	}
	return t.rules[i], true
}

// Label returns the display label for id, or "" when none is configured.
func (t *PatternTable) Label(id string) string {
	r, _ := t.Lookup(id)
	return r.Label
}
