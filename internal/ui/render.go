// Package ui renders cohort definitions and build results for the terminal.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/opencohort/cohortc/internal/ir"
)

// TerminalWidth returns the current terminal width, falling back to 100
// columns when stdout is not a terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 100
}

// RenderMarkdown renders markdown for the terminal, degrading to plain text
// on dumb terminals.
func RenderMarkdown(md string) string {
	style := "auto"
	if termenv.EnvColorProfile() == termenv.Ascii {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// ExpressionSummary builds a markdown summary of a cohort definition:
// concept sets, primary criteria, rules, and end handling.
func ExpressionSummary(name string, expr *ir.CohortExpression) string {
	var b strings.Builder
	title := expr.Title
	if title == "" {
		title = name
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if expr.CDMVersionRange != "" {
		fmt.Fprintf(&b, "CDM version range: `%s`\n\n", expr.CDMVersionRange)
	}

	fmt.Fprintf(&b, "## Concept sets (%d)\n\n", len(expr.ConceptSets))
	for i := range expr.ConceptSets {
		cs := &expr.ConceptSets[i]
		items := 0
		if cs.Expression != nil {
			items = len(cs.Expression.Items)
		}
		fmt.Fprintf(&b, "- **%d** %s (%d items)\n", cs.ID, cs.Name, items)
	}
	b.WriteString("\n")

	if expr.PrimaryCriteria != nil {
		fmt.Fprintf(&b, "## Primary criteria (%d)\n\n", len(expr.PrimaryCriteria.CriteriaList))
		for i := range expr.PrimaryCriteria.CriteriaList {
			if c := expr.PrimaryCriteria.CriteriaList[i].Criterion; c != nil {
				fmt.Fprintf(&b, "- %s\n", c.Kind())
			}
		}
		if w := expr.PrimaryCriteria.ObservationWindow; w != nil {
			fmt.Fprintf(&b, "\nObservation window: %d days prior, %d days post\n", w.PriorDays, w.PostDays)
		}
		if expr.PrimaryCriteria.PrimaryLimit.IsFirst() {
			b.WriteString("\nPrimary limit: first event per person\n")
		}
		b.WriteString("\n")
	}

	if len(expr.InclusionRules) > 0 {
		fmt.Fprintf(&b, "## Inclusion rules (%d)\n\n", len(expr.InclusionRules))
		for i := range expr.InclusionRules {
			rule := &expr.InclusionRules[i]
			name := rule.Name
			if name == "" {
				name = fmt.Sprintf("rule %d", i+1)
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
		b.WriteString("\n")
	}

	if !expr.EndStrategy.IsEmpty() {
		b.WriteString("## End strategy\n\n")
		if off := expr.EndStrategy.DateOffset; off != nil {
			fmt.Fprintf(&b, "- Date offset: %s + %d days\n", off.DateField, off.Offset)
		}
		if ce := expr.EndStrategy.CustomEra; ce != nil {
			fmt.Fprintf(&b, "- Custom drug era: codeset %d, gap %d, offset %d\n",
				derefInt64(ce.DrugCodesetID), ce.GapDays, ce.Offset)
		}
		b.WriteString("\n")
	}

	if len(expr.CensoringCriteria) > 0 {
		fmt.Fprintf(&b, "Censoring criteria: %d\n\n", len(expr.CensoringCriteria))
	}
	if expr.CollapseSettings != nil && expr.CollapseSettings.CollapseType == ir.CollapseERA {
		fmt.Fprintf(&b, "Collapse: ERA with %d day pad\n", expr.CollapseSettings.EraPad)
	}
	return b.String()
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
