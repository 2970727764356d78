// Package report renders a finished run for people and for other tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/search-e2e/internal/scenario"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat accepts a format name or one of its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// FormatFor guesses the format from a file extension, defaulting to JSON.
func FormatFor(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return FormatJSON
	}
	return f
}

// document is the serialized shape of a run.
type document struct {
	scenario.Run `yaml:",inline"`
	Summary      scenario.Summary `json:"summary" yaml:"summary"`
}

// Write renders run to w in format.
func Write(w io.Writer, format Format, run *scenario.Run) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(document{Run: *run, Summary: run.Summary()})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(document{Run: *run, Summary: run.Summary()}); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		return writeMarkdown(w, run)
	case FormatHTML:
		return writeHTML(w, run)
	case FormatXLSX:
		return writeXLSX(w, run)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// WriteFile renders run to path, creating parent directories. An empty
// format is derived from the extension.
func WriteFile(path string, format Format, run *scenario.Run) (err error) {
	if format == "" {
		format = FormatFor(path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, format, run)
}
