package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/urlcanon/result"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	successStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	categoryStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle         = lipgloss.NewStyle().Faint(true)
	urlStyle         = lipgloss.NewStyle()
	countStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// categoryOrder defines the display order for error categories (most to least actionable).
var categoryOrder = []result.ErrorCategory{
	result.Category4xx,
	result.Category5xx,
	result.CategoryTimeout,
	result.CategoryDNSFailure,
	result.CategoryConnectionRefused,
	result.CategoryRedirectLoop,
	result.CategoryRobotsDisallowed,
	result.CategoryParse,
	result.CategoryUnknown,
}

// RenderReport produces a Lip Gloss styled report: totals, a table of
// discard buckets and the failed URLs grouped by error category.
func RenderReport(rep result.Report, errs []result.Result) string {
	var builder strings.Builder

	builder.WriteString(successStyle.Render(fmt.Sprintf(
		"%d URLs in total were successfully cleaned (%d distinct).",
		rep.Canonical, rep.DistinctCanonical)))
	builder.WriteString("\n")
	builder.WriteString(titleStyle.Render(fmt.Sprintf(
		"%d URLs were discarded as garbage, %d failed with errors.", rep.Garbage, rep.Errors)))
	builder.WriteString("\n\n")

	if len(rep.Buckets) > 0 {
		rows := make([][]string, 0, len(rep.Buckets))
		for _, bucket := range rep.Buckets {
			rows = append(rows, []string{bucket.Bucket, bucketLabel(bucket.Bucket), strconv.Itoa(bucket.Count)})
		}
		bucketTable := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("Bucket", "Reason", "Count").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 2 {
					return countStyle
				}
				return urlStyle
			}).
			Rows(rows...)
		builder.WriteString(bucketTable.Render())
		builder.WriteString("\n\n")
	}

	// Group failed URLs by error category
	grouped := make(map[result.ErrorCategory][]result.Result)
	for _, res := range errs {
		cat := res.Category
		if cat == "" {
			cat = result.CategoryUnknown
		}
		grouped[cat] = append(grouped[cat], res)
	}

	for _, cat := range categoryOrder {
		failed := grouped[cat]
		if len(failed) == 0 {
			continue
		}

		builder.WriteString(categoryStyle.Render(fmt.Sprintf("## %s (%d)", result.FormatCategory(cat), len(failed))))
		builder.WriteString("\n")

		rows := make([][]string, 0, len(failed))
		for _, res := range failed {
			rows = append(rows, []string{res.Original, string(res.Platform), res.Detail})
		}
		catTable := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("URL", "Platform", "Error").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 2 {
					return statusErrorStyle
				}
				return urlStyle
			}).
			Rows(rows...)

		builder.WriteString(catTable.Render())
		builder.WriteString("\n\n")
	}

	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"Processed %d URLs in %s", rep.Input, rep.Duration.Round(1_000_000)))) // round to ms
	builder.WriteString("\n")

	return builder.String()
}

// bucketLabel describes a "<platform>/<reason>" bucket name.
func bucketLabel(bucket string) string {
	_, reason, _ := strings.Cut(bucket, "/")
	if reason == "error" {
		return "Lookup failed"
	}
	return result.FormatReason(result.Reason(reason))
}
