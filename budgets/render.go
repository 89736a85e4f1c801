// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package budgets

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Render writes the over-budget entries of a result as grouped diagnostics, in
// a fixed category order: timing failures, then request count failures, then
// download size failures. A heading appears only when its category has at
// least one failure. Rendering reads only the evaluated result and does not
// mutate it, so rendering the same result twice produces identical output.
func Render(w io.Writer, result *Result) {
	renderTimings(w, result.Timings)
	renderCounts(w, result.Resources)
	renderSizes(w, result.Resources)
}

func renderTimings(w io.Writer, timings []TimingAudit) {
	heading := false
	for _, t := range timings {
		if !t.Over() {
			continue
		}
		if !heading {
			fmt.Fprintln(w, "Speed budgets exceeded:")
			heading = true
		}
		fmt.Fprintf(w, "  %s: Expected %s ms but got %d ms\n", t.ID, formatMs(t.Threshold), roundInt(t.Measured))
	}
}

func renderCounts(w io.Writer, resources []ResourceBudgetItem) {
	heading := false
	for _, item := range resources {
		if !item.CountOver() {
			continue
		}
		if !heading {
			fmt.Fprintln(w, "Request count budgets exceeded:")
			heading = true
		}
		expected := item.RequestCount - parseRequestOverage(*item.CountOverBudget)
		fmt.Fprintf(w, "  %s: Expected %d total number of requests but got %d\n", item.Label, expected, item.RequestCount)
	}
}

func renderSizes(w io.Writer, resources []ResourceBudgetItem) {
	heading := false
	for _, item := range resources {
		if !item.SizeOver() {
			continue
		}
		if !heading {
			fmt.Fprintln(w, "Download size budgets exceeded:")
			heading = true
		}
		expected := kilobytes(item.Size - *item.SizeOverBudget)
		actual := kilobytes(item.Size)
		fmt.Fprintf(w, "  %s: Expected %dkb download size but got %dkb\n", item.Label, expected, actual)
	}
}

// parseRequestOverage extracts the numeric prefix of an engine overage
// descriptor of the form "<n> requests". An unparseable descriptor counts as
// zero overage; the item still renders as a failure.
func parseRequestOverage(descriptor string) int {
	fields := strings.Fields(descriptor)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

// Rounding below is for display only; classification always uses the
// unrounded values.

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}

func kilobytes(bytes float64) int64 {
	return roundInt(bytes / 1024)
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
