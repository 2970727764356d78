package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gotrs-io/search-e2e/internal/scenario"
)

const (
	summarySheet = "Summary"
	resultsSheet = "Results"
)

var resultHeaders = []string{"ID", "Scenario", "Tags", "Status", "Duration (s)", "Error", "Screenshot"}

func writeXLSX(w io.Writer, run *scenario.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	s := run.Summary()
	summary := [][]any{
		{"Run", run.ID},
		{"Target", run.BaseURL},
		{"Driver", run.Driver},
		{"Started", run.StartedAt.UTC().Format(time.RFC3339)},
		{"Finished", run.FinishedAt.UTC().Format(time.RFC3339)},
		{"Total", s.Total},
		{"Passed", s.Passed},
		{"Failed", s.Failed},
		{"Errors", s.Errored},
		{"Skipped", s.Skipped},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 40); err != nil {
		return err
	}

	header := make([]any, len(resultHeaders))
	for i, h := range resultHeaders {
		header[i] = h
	}
	if err := setRow(f, resultsSheet, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", "G1", bold); err != nil {
		return err
	}
	for i, res := range run.Results {
		row := []any{res.ID, res.Name, strings.Join(res.Tags, ", "), string(res.Status), res.Duration.Seconds(), res.Error, ""}
		if res.Diagnostics != nil {
			row[6] = res.Diagnostics.Screenshot
		}
		if err := setRow(f, resultsSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(resultsSheet, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "F", "F", 60); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
