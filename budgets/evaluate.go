// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package budgets evaluates a Lighthouse report against configured
// performance budgets and renders the failures.
package budgets

import (
	"fmt"
	"sort"

	"github.com/BackToTheCode/performance-budgets/lighthouse"
)

// TimingAudit is one page-load timing measurement compared against its
// configured threshold. Values are milliseconds. Overage is derived once at
// construction; the rest is immutable.
type TimingAudit struct {
	ID        string
	Measured  float64
	Threshold float64
	Overage   float64
}

// Over reports whether the measurement exceeded the threshold. The comparison
// is strict: exactly at budget is within budget.
func (t TimingAudit) Over() bool {
	return t.Overage > 0
}

// ResourceBudgetItem is one resource group with the over-budget indicators
// the engine computed upstream. Either indicator may be present
// independently of the other; nil means within budget on that axis.
type ResourceBudgetItem struct {
	Label           string
	Size            float64
	RequestCount    int
	SizeOverBudget  *float64
	CountOverBudget *string
}

// SizeOver reports whether the group exceeded its download size budget.
func (i ResourceBudgetItem) SizeOver() bool {
	return i.SizeOverBudget != nil
}

// CountOver reports whether the group exceeded its request count budget.
func (i ResourceBudgetItem) CountOver() bool {
	return i.CountOverBudget != nil
}

// Over reports whether the group exceeded either of its budgets.
func (i ResourceBudgetItem) Over() bool {
	return i.SizeOver() || i.CountOver()
}

// Result aggregates everything evaluated for one run. It is discarded after
// rendering.
type Result struct {
	Timings   []TimingAudit
	Resources []ResourceBudgetItem
}

// Valid is true iff every evaluated entry is within budget: the number of
// within-budget entries must equal the total in both categories.
func (r *Result) Valid() bool {
	timingsWithin := 0
	for _, t := range r.Timings {
		if !t.Over() {
			timingsWithin++
		}
	}
	resourcesWithin := 0
	for _, i := range r.Resources {
		if !i.Over() {
			resourcesWithin++
		}
	}
	return timingsWithin == len(r.Timings) && resourcesWithin == len(r.Resources)
}

// Failures counts the over-budget entries across both categories.
func (r *Result) Failures() int {
	n := 0
	for _, t := range r.Timings {
		if t.Over() {
			n++
		}
	}
	for _, i := range r.Resources {
		if i.Over() {
			n++
		}
	}
	return n
}

// ReportShapeError means the report is missing a section the evaluator
// needs. It is a distinct outcome so a malformed report fails at the
// evaluator boundary instead of deep inside rendering.
type ReportShapeError struct {
	Missing string
}

func (e *ReportShapeError) Error() string {
	return fmt.Sprintf("malformed lighthouse report: missing %s", e.Missing)
}

// Evaluate compares a report against the configured budgets. It is a pure
// function of its inputs.
func Evaluate(report *lighthouse.Report, cfg *Config) (*Result, error) {
	if report == nil || report.Audits == nil {
		return nil, &ReportShapeError{Missing: "audits section"}
	}
	return &Result{
		Timings:   evaluateTimings(report.Audits, cfg.Speeds),
		Resources: evaluateResources(report.BudgetItems()),
	}, nil
}

// evaluateTimings evaluates every configured threshold whose audit appears in
// the report with a numeric measurement. Configured audits the engine did not
// run, or ran without producing a number, are skipped: not every configured
// budget corresponds to an audit the engine always runs.
func evaluateTimings(audits map[string]lighthouse.Audit, thresholds map[string]float64) []TimingAudit {
	ids := make([]string, 0, len(thresholds))
	for id := range thresholds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var timings []TimingAudit
	for _, id := range ids {
		audit, ok := audits[id]
		if !ok || audit.NumericValue == nil {
			continue
		}
		measured := *audit.NumericValue
		timings = append(timings, TimingAudit{
			ID:        id,
			Measured:  measured,
			Threshold: thresholds[id],
			Overage:   measured - thresholds[id],
		})
	}
	return timings
}

// evaluateResources classifies the engine's pre-computed over-budget
// indicators. No thresholds are recomputed here.
func evaluateResources(items []lighthouse.ResourceItem) []ResourceBudgetItem {
	var resources []ResourceBudgetItem
	for _, item := range items {
		resources = append(resources, ResourceBudgetItem{
			Label:           item.Label,
			Size:            item.TransferSize,
			RequestCount:    item.RequestCount,
			SizeOverBudget:  item.SizeOverBudget,
			CountOverBudget: item.CountOverBudget,
		})
	}
	return resources
}
