package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gotrs-io/search-e2e/internal/scenario"
)

const markdownTemplate = "{% autoescape off %}# Search e2e run {{ run.ID }}\n\n" +
	"- Target: {{ run.BaseURL }}\n" +
	"- Driver: {{ run.Driver }}\n" +
	"- Started: {{ run.Started }}\n" +
	"- Duration: {{ run.Duration }}\n" +
	"- Result: {{ summary.Passed }}/{{ summary.Total }} passed, {{ summary.Failed }} failed, " +
	"{{ summary.Errored }} errors, {{ summary.Skipped }} skipped\n\n" +
	"| # | Scenario | Status | Duration |\n" +
	"|---|----------|--------|----------|\n" +
	"{% for row in rows %}| {{ forloop.Counter }} | {{ row.Name }} | {{ row.Status }} | {{ row.Duration }} |\n{% endfor %}" +
	"{% if failures %}\n## Failures\n" +
	"{% for f in failures %}\n### {{ f.Name }}\n\n{{ f.Error }}\n" +
	"{% if f.Screenshot %}\nScreenshot: `{{ f.Screenshot }}`\n{% endif %}" +
	"{% if f.PageText %}\n> {{ f.PageText }}\n{% endif %}" +
	"{% endfor %}{% endif %}{% endautoescape %}"

var markdownTpl = pongo2.Must(pongo2.FromString(markdownTemplate))

type runView struct {
	ID       string
	BaseURL  string
	Driver   string
	Started  string
	Duration string
}

type rowView struct {
	Name     string
	Status   string
	Duration string
}

type failureView struct {
	Name       string
	Error      string
	Screenshot string
	PageText   string
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// cell keeps a value on one table line.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func markdownContext(run *scenario.Run) pongo2.Context {
	rows := make([]rowView, 0, len(run.Results))
	var failures []failureView
	for _, res := range run.Results {
		rows = append(rows, rowView{Name: cell(res.Name), Status: string(res.Status), Duration: formatDuration(res.Duration)})
		if res.Status != scenario.StatusFailed && res.Status != scenario.StatusError {
			continue
		}
		f := failureView{Name: res.Name, Error: res.Error}
		if res.Diagnostics != nil {
			f.Screenshot = res.Diagnostics.Screenshot
			f.PageText = res.Diagnostics.PageText
		}
		failures = append(failures, f)
	}
	return pongo2.Context{
		"run": runView{
			ID:       run.ID,
			BaseURL:  run.BaseURL,
			Driver:   run.Driver,
			Started:  run.StartedAt.UTC().Format(time.RFC3339),
			Duration: formatDuration(run.Duration()),
		},
		"summary":  run.Summary(),
		"rows":     rows,
		"failures": failures,
	}
}

func writeMarkdown(w io.Writer, run *scenario.Run) error {
	if err := markdownTpl.ExecuteWriter(markdownContext(run), w); err != nil {
		return fmt.Errorf("render markdown report: %w", err)
	}
	return nil
}

// writeHTML renders the markdown report as a standalone page. Raw HTML
// carried in scenario output is dropped by the renderer and the result is
// sanitized again before it is written.
func writeHTML(w io.Writer, run *scenario.Run) error {
	var src bytes.Buffer
	if err := writeMarkdown(&src, run); err != nil {
		return err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Table))
	var body bytes.Buffer
	if err := md.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	title := html.EscapeString("Search e2e run " + run.ID)
	page := "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>" + title + "</title>\n</head>\n<body>\n" +
		string(bluemonday.UGCPolicy().SanitizeBytes(body.Bytes())) +
		"</body>\n</html>\n"
	_, err := io.WriteString(w, page)
	return err
}
