// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package lighthouse drives a Lighthouse audit against a headless browser and
// exposes the resulting report. The audit engine itself is a black box: this
// package launches the browser, invokes the lighthouse CLI against it and
// decodes the JSON report it emits.
package lighthouse

import (
	"encoding/json"

	"go.chromium.org/luci/common/errors"
)

// BudgetAuditID is the one audit whose details carry per-resource-group
// budget items rather than a plain measurement.
const BudgetAuditID = "performance-budget"

// Report is the subset of a Lighthouse JSON report this tool consumes.
type Report struct {
	RequestedURL string           `json:"requestedUrl"`
	FinalURL     string           `json:"finalUrl"`
	Audits       map[string]Audit `json:"audits"`
}

// Audit is one named measurement from the report. NumericValue is nil when
// the engine ran the audit but produced no numeric measurement for it.
type Audit struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Score        *float64      `json:"score"`
	NumericValue *float64      `json:"numericValue"`
	Details      *AuditDetails `json:"details,omitempty"`
}

// AuditDetails holds the table of per-resource-group rows attached to the
// performance-budget audit.
type AuditDetails struct {
	Type  string         `json:"type"`
	Items []ResourceItem `json:"items"`
}

// ResourceItem is one resource group row. SizeOverBudget and CountOverBudget
// are computed upstream by the engine and are absent (nil) when the group is
// within budget on that axis.
type ResourceItem struct {
	ResourceType    string   `json:"resourceType"`
	Label           string   `json:"label"`
	TransferSize    float64  `json:"transferSize"`
	RequestCount    int      `json:"requestCount"`
	SizeOverBudget  *float64 `json:"sizeOverBudget,omitempty"`
	CountOverBudget *string  `json:"countOverBudget,omitempty"`
}

// BudgetItems returns the resource group rows of the performance-budget
// audit, or nil when the engine did not run it.
func (r *Report) BudgetItems() []ResourceItem {
	audit, ok := r.Audits[BudgetAuditID]
	if !ok || audit.Details == nil {
		return nil
	}
	return audit.Details.Items
}

// DecodeReport parses a raw Lighthouse JSON report.
func DecodeReport(data []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Annotate(err, "decoding lighthouse report").Err()
	}
	return &report, nil
}
