package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// WriteSummary renders r as a markdown table.
func WriteSummary(w io.Writer, r SummaryReport) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Top Participants By Cred")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "| Description | Cred | % |")
	fmt.Fprintln(bw, "| --- | --- | --- |")
	for _, row := range r.Rows {
		fmt.Fprintf(bw, "| %s | %.1f | %.1f%% |\n", cell(row.Description), row.Cred, row.Percent)
	}
	return bw.Flush()
}

// WriteDiff renders r as a markdown table.
func WriteDiff(w io.Writer, r DiffReport) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Top Participants By New Cred")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "| Name | Prior Cred | New Cred | % Change |")
	fmt.Fprintln(bw, "| --- | --- | --- | --- |")
	for _, row := range r.Rows {
		fmt.Fprintf(bw, "| %s | %.1f | %.1f | %s |\n", cell(row.Description), row.PriorCred, row.NewCred, row.Change)
	}
	return bw.Flush()
}
