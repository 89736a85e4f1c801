// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package budgets

import (
	"testing"

	"github.com/BackToTheCode/performance-budgets/lighthouse"

	. "github.com/smartystreets/goconvey/convey"
)

func numericAudit(id string, value float64) lighthouse.Audit {
	v := value
	return lighthouse.Audit{ID: id, NumericValue: &v}
}

func reportWith(audits map[string]lighthouse.Audit) *lighthouse.Report {
	return &lighthouse.Report{
		RequestedURL: "https://example.com",
		FinalURL:     "https://example.com/",
		Audits:       audits,
	}
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func TestEvaluateTimings(t *testing.T) {
	t.Parallel()

	Convey("Evaluating timing budgets", t, func() {
		cfg := &Config{Speeds: map[string]float64{"first-contentful-paint": 2000}}

		Convey("a measurement exactly at budget is within budget", func() {
			report := reportWith(map[string]lighthouse.Audit{
				"first-contentful-paint": numericAudit("first-contentful-paint", 2000),
			})
			result, err := Evaluate(report, cfg)
			So(err, ShouldBeNil)
			So(result.Timings, ShouldHaveLength, 1)
			So(result.Timings[0].Over(), ShouldBeFalse)
			So(result.Timings[0].Overage, ShouldEqual, 0)
			So(result.Valid(), ShouldBeTrue)
		})

		Convey("one millisecond over budget fails", func() {
			report := reportWith(map[string]lighthouse.Audit{
				"first-contentful-paint": numericAudit("first-contentful-paint", 2001),
			})
			result, err := Evaluate(report, cfg)
			So(err, ShouldBeNil)
			So(result.Timings[0].Over(), ShouldBeTrue)
			So(result.Timings[0].Overage, ShouldEqual, 1)
			So(result.Valid(), ShouldBeFalse)
		})

		Convey("configured audits absent from the report are skipped, not failed", func() {
			cfg.Speeds["interactive"] = 5000
			report := reportWith(map[string]lighthouse.Audit{
				"first-contentful-paint": numericAudit("first-contentful-paint", 1500),
			})
			result, err := Evaluate(report, cfg)
			So(err, ShouldBeNil)
			So(result.Timings, ShouldHaveLength, 1)
			So(result.Timings[0].ID, ShouldEqual, "first-contentful-paint")
			So(result.Valid(), ShouldBeTrue)
		})

		Convey("audits present without a numeric measurement are skipped too", func() {
			cfg.Speeds["interactive"] = 5000
			report := reportWith(map[string]lighthouse.Audit{
				"first-contentful-paint": numericAudit("first-contentful-paint", 1500),
				"interactive":            {ID: "interactive"},
			})
			result, err := Evaluate(report, cfg)
			So(err, ShouldBeNil)
			So(result.Timings, ShouldHaveLength, 1)
			So(result.Valid(), ShouldBeTrue)
		})

		Convey("evaluation order is deterministic regardless of map order", func() {
			cfg.Speeds = map[string]float64{
				"speed-index":            3000,
				"first-contentful-paint": 2000,
				"interactive":            5000,
			}
			report := reportWith(map[string]lighthouse.Audit{
				"speed-index":            numericAudit("speed-index", 1),
				"first-contentful-paint": numericAudit("first-contentful-paint", 1),
				"interactive":            numericAudit("interactive", 1),
			})
			result, err := Evaluate(report, cfg)
			So(err, ShouldBeNil)
			ids := []string{result.Timings[0].ID, result.Timings[1].ID, result.Timings[2].ID}
			So(ids, ShouldResemble, []string{"first-contentful-paint", "interactive", "speed-index"})
		})
	})
}

func TestEvaluateResources(t *testing.T) {
	t.Parallel()

	Convey("Evaluating resource budgets", t, func() {
		cfg := &Config{}

		budgetReport := func(items ...lighthouse.ResourceItem) *lighthouse.Report {
			return reportWith(map[string]lighthouse.Audit{
				lighthouse.BudgetAuditID: {
					ID:      lighthouse.BudgetAuditID,
					Details: &lighthouse.AuditDetails{Type: "table", Items: items},
				},
			})
		}

		Convey("an item with neither indicator is within budget", func() {
			result, err := Evaluate(budgetReport(lighthouse.ResourceItem{
				Label: "Script", TransferSize: 1024, RequestCount: 3,
			}), cfg)
			So(err, ShouldBeNil)
			So(result.Resources, ShouldHaveLength, 1)
			So(result.Resources[0].Over(), ShouldBeFalse)
			So(result.Valid(), ShouldBeTrue)
		})

		Convey("size and count classifications are independent", func() {
			result, err := Evaluate(budgetReport(
				lighthouse.ResourceItem{Label: "Script", TransferSize: 1024, SizeOverBudget: floatPtr(100)},
				lighthouse.ResourceItem{Label: "Image", RequestCount: 20, CountOverBudget: strPtr("5 requests")},
				lighthouse.ResourceItem{Label: "Total", TransferSize: 4096, RequestCount: 23,
					SizeOverBudget: floatPtr(100), CountOverBudget: strPtr("1 requests")},
			), cfg)
			So(err, ShouldBeNil)

			So(result.Resources[0].SizeOver(), ShouldBeTrue)
			So(result.Resources[0].CountOver(), ShouldBeFalse)
			So(result.Resources[0].Over(), ShouldBeTrue)

			So(result.Resources[1].SizeOver(), ShouldBeFalse)
			So(result.Resources[1].CountOver(), ShouldBeTrue)
			So(result.Resources[1].Over(), ShouldBeTrue)

			So(result.Resources[2].SizeOver(), ShouldBeTrue)
			So(result.Resources[2].CountOver(), ShouldBeTrue)

			So(result.Valid(), ShouldBeFalse)
			So(result.Failures(), ShouldEqual, 3)
		})

		Convey("no recomputation: a zero-valued present indicator still fails", func() {
			// The engine is the authority on resource budgets; presence of the
			// field is the classification.
			result, err := Evaluate(budgetReport(lighthouse.ResourceItem{
				Label: "Script", SizeOverBudget: floatPtr(0),
			}), cfg)
			So(err, ShouldBeNil)
			So(result.Resources[0].Over(), ShouldBeTrue)
		})

		Convey("a report without the budget audit yields no resource items", func() {
			result, err := Evaluate(reportWith(map[string]lighthouse.Audit{}), cfg)
			So(err, ShouldBeNil)
			So(result.Resources, ShouldHaveLength, 0)
			So(result.Valid(), ShouldBeTrue)
		})
	})
}

func TestEvaluateShape(t *testing.T) {
	t.Parallel()

	Convey("Malformed reports fail at the evaluator boundary", t, func() {
		cfg := &Config{Speeds: map[string]float64{"interactive": 5000}}

		Convey("nil report", func() {
			result, err := Evaluate(nil, cfg)
			So(result, ShouldBeNil)
			shapeErr := &ReportShapeError{}
			So(err, ShouldHaveSameTypeAs, shapeErr)
			So(err.Error(), ShouldContainSubstring, "missing audits section")
		})

		Convey("report without an audits section", func() {
			result, err := Evaluate(&lighthouse.Report{}, cfg)
			So(result, ShouldBeNil)
			So(err, ShouldHaveSameTypeAs, &ReportShapeError{})
		})
	})
}

func TestResultValidity(t *testing.T) {
	t.Parallel()

	Convey("Validity counts both categories", t, func() {
		Convey("empty result is valid", func() {
			result := &Result{}
			So(result.Valid(), ShouldBeTrue)
			So(result.Failures(), ShouldEqual, 0)
		})

		Convey("a single over-budget entry anywhere invalidates the run", func() {
			result := &Result{
				Timings: []TimingAudit{
					{ID: "interactive", Measured: 4000, Threshold: 5000, Overage: -1000},
				},
				Resources: []ResourceBudgetItem{
					{Label: "Script", CountOverBudget: strPtr("1 requests")},
				},
			}
			So(result.Valid(), ShouldBeFalse)
			So(result.Failures(), ShouldEqual, 1)
		})
	})
}
