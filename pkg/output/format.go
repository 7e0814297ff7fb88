// Package output renders saved analyses as text reports.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rodrigomagnidea-lab/EzValuation/internal/analysis"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/store"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/format"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/validation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders the analysis in the requested format.
func Write(w io.Writer, outputFormat string, a store.Analysis, r *analysis.Result) error {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	switch outputFormat {
	case constants.OutputFormatCSV:
		return CsvFormat(w, a, r)
	default:
		return PrettyFormat(w, a, r)
	}
}

// ContentType returns the MIME type of an output format.
func ContentType(outputFormat string) string {
	if outputFormat == constants.OutputFormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, a store.Analysis, r *analysis.Result) error {
	p := message.NewPrinter(language.BrazilianPortuguese)

	_, _ = p.Fprintf(w, "--- Analysis %s", a.Ticker)
	if a.Segment != "" {
		_, _ = p.Fprintf(w, " (%s)", a.Segment)
	}
	_, _ = p.Fprintf(w, " ---\n")
	_, _ = p.Fprintf(w, "Methodology: %s | Status: %s | Updated: %s\n",
		a.MethodologyVersion, a.Status, a.UpdatedAt.Format("2006-01-02 15:04"))

	if !r.Scored() {
		_, _ = p.Fprintf(w, "Final score: not computable\n")
	} else {
		_, _ = p.Fprintf(w, "Final score: %.2f (%s)\n", *r.FinalScore, r.Classification)
	}

	if r != nil && r.FundData != nil {
		fd := r.FundData
		_, _ = p.Fprintf(w, "Fund: %s | Price: %s | Dividend yield: %s\n",
			fd.Name, format.Currency(fd.Price), format.Percent(fd.DividendYield))
	} else {
		_, _ = p.Fprintf(w, "Fund data: manual mode\n")
	}
	if r == nil {
		return nil
	}

	_, _ = p.Fprintf(w, "\nPillar | Weight | Score | Weighted | Answered\n")
	_, _ = p.Fprintf(w, "______ | ______ | _____ | ________ | ________\n")
	for _, ps := range r.ByPillar {
		if !ps.Contributed {
			_, _ = p.Fprintf(w, "%s | %.2f | - | - | 0\n", ps.Name, ps.Weight)
			continue
		}
		_, _ = p.Fprintf(w, "%s | %.2f | %.2f | %.2f | %d\n", ps.Name, ps.Weight, ps.Score, ps.WeightedScore, ps.Answered)
	}

	_, _ = p.Fprintf(w, "\nCriterion | Value | Range | Points\n")
	_, _ = p.Fprintf(w, "_________ | _____ | _____ | ______\n")
	for _, cr := range r.Criteria {
		label := cr.Label
		if cr.Overridden {
			label += " (override)"
		}
		switch cr.Status {
		case analysis.StatusScored:
			_, _ = p.Fprintf(w, "%s | %s | %s | %.1f\n", cr.Name, valueString(cr.Value), label, cr.Points)
		default:
			_, _ = p.Fprintf(w, "%s | %s | %s | -\n", cr.Name, valueString(cr.Value), cr.Status)
		}
	}

	for _, warning := range r.Warnings {
		_, _ = p.Fprintf(w, "Warning: %s\n", warning)
	}
	return nil
}

// CsvFormat outputs in comma-separated value format, one row per criterion.
func CsvFormat(w io.Writer, a store.Analysis, r *analysis.Result) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"ticker", "methodology", "pillar", "pillar_weight", "pillar_score",
		"criterion", "value", "status", "range", "points", "overridden"}}

	if r != nil {
		pillars := make(map[string]string)
		weights := make(map[string]string)
		scores := make(map[string]string)
		for _, ps := range r.ByPillar {
			pillars[ps.ID] = ps.Name
			weights[ps.ID] = strconv.FormatFloat(ps.Weight, 'f', -1, 64)
			if ps.Contributed {
				scores[ps.ID] = strconv.FormatFloat(ps.Score, 'f', 4, 64)
			}
		}
		for _, cr := range r.Criteria {
			points := ""
			if cr.Status == analysis.StatusScored {
				points = strconv.FormatFloat(cr.Points, 'f', -1, 64)
			}
			rows = append(rows, []string{a.Ticker, a.MethodologyVersion, pillars[cr.PillarID],
				weights[cr.PillarID], scores[cr.PillarID], cr.Name, valueString(cr.Value),
				string(cr.Status), cr.Label, points, strconv.FormatBool(cr.Overridden)})
		}
	}

	final, classification := "", ""
	if r.Scored() {
		final = strconv.FormatFloat(*r.FinalScore, 'f', 4, 64)
		classification = r.Classification
	}
	rows = append(rows, []string{a.Ticker, a.MethodologyVersion, "TOTAL", "", final, "", "", "", classification, "", ""})

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv report: %w", err)
	}
	return nil
}

func valueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return constants.BooleanTrueLabel
		}
		return constants.BooleanFalseLabel
	default:
		return fmt.Sprint(val)
	}
}
