package ruleset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsect/internal/sections"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	fieldSeparator = ","
	commentPrefix  = "#"
)

// File is the parsed content of a sections configuration file.
type File struct {
	Rules      []sections.SectionRule
	EndMarkers []string
	Warnings   []string // Rows skipped while reading
}

// structured is the shape of TOML and YAML sections files.
type structured struct {
	EndMarkers []string           `toml:"end_markers" yaml:"end_markers"`
	Sections   []structuredSection `toml:"section" yaml:"sections"`
}

type structuredSection struct {
	ID      string   `toml:"id" yaml:"id"`
	Code    string   `toml:"code" yaml:"code"`
	Label   string   `toml:"label" yaml:"label"`
	Aliases []string `toml:"aliases" yaml:"aliases"`
}

// Load reads a sections file, choosing the format from its extension:
// .toml, .yaml/.yml, anything else is the comma-separated row format.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseText(bytes.NewReader(data))
	}
}

// ParseText reads the row format: `id,code,name1,name2,...`. The first name doubles as
// the label. Lines starting with # are comments. Rows with an empty id or a trailing
// separator are skipped and reported in Warnings.
func ParseText(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	f := &File{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}

		fields := strings.Split(line, fieldSeparator)
		id := strings.TrimSpace(fields[0])
		if id == "" || strings.HasSuffix(line, fieldSeparator) {
			f.Warnings = append(f.Warnings, fmt.Sprintf("line %d: malformed row %q", lineNo, line))
			continue
		}

		rule := sections.SectionRule{ID: id}
		if len(fields) > 2 {
			rule.Label = strings.TrimSpace(fields[2])
			rule.Aliases = fields[2:]
		}
		f.Rules = append(f.Rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return f, nil
}

// ParseTOML reads a file with an end_markers array and [[section]] tables.
func ParseTOML(data []byte) (*File, error) {
	var doc structured
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return doc.file(), nil
}

// ParseYAML reads a file with end_markers and a sections list.
func ParseYAML(data []byte) (*File, error) {
	var doc structured
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return doc.file(), nil
}

func (d structured) file() *File {
	f := &File{EndMarkers: d.EndMarkers}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.ID) == "" {
			f.Warnings = append(f.Warnings, fmt.Sprintf("section %d: missing id", i))
			continue
		}
		f.Rules = append(f.Rules, sections.SectionRule{
			ID:      s.ID,
			Aliases: s.Aliases,
			Label:   s.Label,
		})
	}
	return f
}

// Build compiles f into a Sectionizer. extraMarkers are appended to the file's markers.
func Build(f *File, extraMarkers []string) (*sections.Sectionizer, []sections.RuleWarning) {
	table, warnings := sections.Compile(f.Rules)
	markers := make([]string, 0, len(f.EndMarkers)+len(extraMarkers))
	markers = append(markers, f.EndMarkers...)
	markers = append(markers, extraMarkers...)
	return sections.New(table, markers), warnings
}
