package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/parser"
	"github.com/dgallion1/docsect/internal/ruleset"
	"github.com/dgallion1/docsect/internal/sections"
	"github.com/spf13/cobra"
)

const defaultRulesFile = "configs/sections.txt"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sectionize",
		Short: "Split clinical documents into labeled sections",
		Long: `sectionize finds section headings in clinical documents using a rules file
and prints each section's heading and body with byte offsets.

Rules files may be comma-separated rows (id,code,name,...), TOML, or YAML.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(segmentCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func segmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment [files or globs...]",
		Short: "Segment documents and print their sections",
		Long: `Segment one or more documents. Arguments may be doublestar globs such as
notes/**/*.txt. With no arguments, plain text is read from stdin.

Example:
  sectionize segment --rules configs/sections.txt discharge.txt
  sectionize segment --json "notes/**/*.{txt,md}"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesPath, _ := cmd.Flags().GetString("rules")
			markers, _ := cmd.Flags().GetStringSlice("marker")
			asJSON, _ := cmd.Flags().GetBool("json")
			pdftotext, _ := cmd.Flags().GetBool("pdftotext")

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			sz, err := loadSectionizer(rulesPath, markers, log)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				text, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				doc := &doctree.Document{Title: "stdin", Text: string(text)}
				return printDocument(cmd.Context(), cmd.OutOrStdout(), sz, doc, asJSON)
			}

			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			opts := parser.Options{PDFFallbackPdftotext: pdftotext}
			failed := 0
			for _, path := range paths {
				doc, err := parseFile(path, opts)
				if err == nil {
					err = printDocument(cmd.Context(), cmd.OutOrStdout(), sz, doc, asJSON)
				}
				if err != nil {
					log.Error("segment failed", "file", path, "error", err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(paths))
			}
			return nil
		},
	}

	cmd.Flags().StringP("rules", "r", defaultRulesFile, "Sections rules file (.txt, .toml, .yaml)")
	cmd.Flags().StringSliceP("marker", "m", nil, "Additional end-of-section marker (repeatable)")
	cmd.Flags().Bool("json", false, "Print sections as JSON lines")
	cmd.Flags().Bool("pdftotext", true, "Fall back to pdftotext for unreadable PDFs")

	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the compiled section rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesPath, _ := cmd.Flags().GetString("rules")
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			sz, err := loadSectionizer(rulesPath, nil, log)
			if err != nil {
				return err
			}
			return printRules(cmd.OutOrStdout(), sz)
		},
	}
	cmd.Flags().StringP("rules", "r", defaultRulesFile, "Sections rules file (.txt, .toml, .yaml)")
	return cmd
}

func loadSectionizer(path string, markers []string, log *slog.Logger) (*sections.Sectionizer, error) {
	f, err := ruleset.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading rules %s: %w", path, err)
	}
	for _, msg := range f.Warnings {
		log.Warn("skipped rules row", "file", path, "detail", msg)
	}
	sz, warnings := ruleset.Build(f, markers)
	for _, w := range warnings {
		log.Warn("skipped section rule", "file", path, "index", w.Index, "id", w.ID, "reason", w.Reason)
	}
	return sz, nil
}

// expandPaths resolves glob arguments and keeps literal paths as given.
// Results are de-duplicated and sorted per argument.
func expandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			if !seen[arg] {
				seen[arg] = true
				out = append(out, arg)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func parseFile(path string, opts parser.Options) (*doctree.Document, error) {
	p, err := parser.ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(f, path)
}

type jsonSection struct {
	File string `json:"file"`
	sections.Section
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

func printDocument(ctx context.Context, w io.Writer, sz *sections.Sectionizer, doc *doctree.Document, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	secs, err := sz.SegmentDocument(ctx, doc)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		for _, s := range secs {
			err := enc.Encode(jsonSection{
				File:    doc.Title,
				Section: s,
				Heading: s.HeadingText(doc.Text),
				Body:    s.BodyText(doc.Text),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(w, "== %s (%d sections)\n", doc.Title, len(secs))
	for _, s := range secs {
		name := s.ID
		if s.Label != "" {
			name += " / " + s.Label
		}
		fmt.Fprintf(w, "[%s] %d-%d\n", name, s.BodyBegin, s.BodyEnd)
		if h := s.HeadingText(doc.Text); h != "" {
			fmt.Fprintf(w, "  heading: %s\n", h)
		}
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(s.BodyText(doc.Text), "\n", "\n  "))
	}
	return nil
}

func printRules(w io.Writer, sz *sections.Sectionizer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tPATTERN")
	for _, r := range sz.Table().Rules() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Label, r.Matcher.String())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if markers := sz.EndMarkers(); len(markers) > 0 {
		fmt.Fprintf(w, "end markers: %q\n", markers)
	}
	return nil
}
