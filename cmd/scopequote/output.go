package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"scope-quote/decision/estimation"
	"scope-quote/decision/policy"
	"scope-quote/decision/scope"
)

// =============================================================================
// OUTPUT FORMATTERS
// =============================================================================

func outputJSON(w io.Writer, result *estimation.Result) error {
	return outputJSONValue(w, result)
}

func outputJSONValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputTable(w io.Writer, result *estimation.Result) error {
	s := result.Summary

	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║                    📐 SCOPE ESTIMATION                        ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Request:               %-38s ║\n", truncate(result.RequestID, 38))
	fmt.Fprintf(w, "║  Items:                 %-38s ║\n", fmt.Sprintf("%d (%d measured, %d fallback)",
		result.ItemsProcessed, result.ItemsMeasured, result.ItemsFallback))
	fmt.Fprintf(w, "║  Confidence:            %-38s ║\n", fmt.Sprintf("%.1f%%", s.Overall))
	fmt.Fprintf(w, "║  Buckets:               %-38s ║\n", fmt.Sprintf("%d high / %d medium / %d low / %d review",
		s.High, s.Medium, s.Low, s.NeedsReview))
	fmt.Fprintf(w, "║  Questions:             %-38s ║\n", fmt.Sprintf("%d", len(result.Questions)))
	fmt.Fprintf(w, "║  Estimated effort:      %-38s ║\n", result.EstimatedDuration)
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")

	fmt.Fprintln(w, "║  QUOTE ITEMS                                                  ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	for _, item := range result.QuoteItems {
		qty := fmt.Sprintf("%.2f %s", item.Quantity, item.Unit)
		fmt.Fprintf(w, "║  %-35s %-14s %4.0f%% %s ║\n",
			truncate(item.Description, 35), truncate(qty, 14), item.Confidence.Score, reviewMark(item))
	}
	if len(result.QuoteItems) == 0 {
		fmt.Fprintf(w, "║  %-60s ║\n", "No items extracted")
	}

	if len(result.Questions) > 0 {
		fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
		fmt.Fprintln(w, "║  QUESTIONS                                                    ║")
		fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
		for _, q := range result.Questions {
			fmt.Fprintf(w, "║  %s %-57s ║\n", priorityIcon(q.Priority), truncate(q.Text, 57))
		}
	}

	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	decision := "✅ PROCEED"
	if !result.ShouldProceed {
		decision = "❌ STOP"
	}
	fmt.Fprintf(w, "║  Decision:              %-38s ║\n", decision)
	if result.Policy != nil {
		fmt.Fprintf(w, "║  Policy Result:         %-38s ║\n", policyIcon(result.Policy.Decision))
	}
	for _, r := range result.ProceedReasons {
		fmt.Fprintf(w, "║    %-58s ║\n", truncate(r, 58))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "║  ⚠️  %-56s ║\n", truncate(e.Message, 56))
	}
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")

	if len(result.NextSteps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Next steps:")
		for i, step := range result.NextSteps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
	}
	return nil
}

func outputMarkdown(w io.Writer, result *estimation.Result) error {
	s := result.Summary

	fmt.Fprintln(w, "## 📐 ScopeQuote Estimation Report")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Metric | Value |")
	fmt.Fprintln(w, "|--------|-------|")
	fmt.Fprintf(w, "| **Request** | %s |\n", result.RequestID)
	fmt.Fprintf(w, "| **Items** | %d |\n", result.ItemsProcessed)
	fmt.Fprintf(w, "| **Confidence** | %.1f%% |\n", s.Overall)
	fmt.Fprintf(w, "| **Questions** | %d |\n", len(result.Questions))
	fmt.Fprintf(w, "| **Should Proceed** | %t |\n", result.ShouldProceed)
	if result.Policy != nil {
		fmt.Fprintf(w, "| **Policy Result** | %s |\n", result.Policy.Decision)
	}
	fmt.Fprintf(w, "| **Estimated Effort** | %s |\n", result.EstimatedDuration)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "### 📊 Quote Items")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Description | Quantity | Unit | Confidence | Source |")
	fmt.Fprintln(w, "|-------------|----------|------|------------|--------|")
	for _, item := range result.QuoteItems {
		source := "-"
		if item.Source != nil {
			source = item.Source.Type
		}
		conf := fmt.Sprintf("%.0f%%", item.Confidence.Score)
		if item.RequiresReview {
			conf += " ⚠️"
		}
		fmt.Fprintf(w, "| %s | %.2f | %s | %s | %s |\n",
			escapeCell(item.Description), item.Quantity, item.Unit, conf, source)
	}

	if len(result.Questions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### ❓ Clarification Questions")
		fmt.Fprintln(w)
		for _, q := range result.Questions {
			fmt.Fprintf(w, "- **%s**: %s\n", q.Priority, q.Text)
			for _, opt := range q.Options {
				fmt.Fprintf(w, "  - %s\n", opt.Label)
			}
		}
	}

	if result.Policy != nil && len(result.Policy.Violations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### ❌ Policy Violations")
		fmt.Fprintln(w)
		for _, v := range result.Policy.Violations {
			fmt.Fprintf(w, "- **%s**: %s\n", v.PolicyName, v.Message)
		}
	}

	if result.Policy != nil && len(result.Policy.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### ⚠️ Warnings")
		fmt.Fprintln(w)
		for _, warn := range result.Policy.Warnings {
			fmt.Fprintf(w, "- %s\n", warn.Message)
		}
	}

	if len(result.NextSteps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Next Steps")
		fmt.Fprintln(w)
		for _, step := range result.NextSteps {
			fmt.Fprintf(w, "1. %s\n", step)
		}
	}
	return nil
}

func reviewMark(item estimation.QuoteItem) string {
	if item.RequiresReview {
		return "⚠️"
	}
	return "  "
}

func priorityIcon(p scope.Priority) string {
	switch p {
	case scope.PriorityHigh:
		return "🔴"
	case scope.PriorityMedium:
		return "🟡"
	default:
		return "⚪"
	}
}

// policyIcon renders a policy decision for terminals.
func policyIcon(d policy.Decision) string {
	switch d {
	case policy.DecisionPass:
		return "✅ PASS"
	case policy.DecisionWarn:
		return "⚠️  WARN"
	default:
		return "❌ DENY"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
