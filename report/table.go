package report

import (
	"fmt"
	"strings"

	"github.com/gunwale-io/bailer/types"
)

// Caption side tables for the LaTeX rendering. Both fail closed: an
// unrecognized enum value is an error, never a silently wrong caption.

// CalculatorCaption describes how the ensembles behind a result were built.
func CalculatorCaption(c types.Calculator) (string, error) {
	switch c {
	case types.CalculatorFrequentist:
		return "frequentist toy ensembles", nil
	case types.CalculatorHybrid:
		return "hybrid toy ensembles with fluctuated backgrounds", nil
	case types.CalculatorAsymptotic:
		return "asymptotic formulae", nil
	case types.CalculatorAsimov:
		return "asymptotic formulae on the Asimov dataset", nil
	}
	return "", fmt.Errorf("no caption for calculator %q", string(c))
}

// StatisticCaption names the test statistic in prose.
func StatisticCaption(s types.Statistic) (string, error) {
	switch s {
	case types.StatisticSimpleLR:
		return "the simple likelihood ratio", nil
	case types.StatisticProfileLR:
		return "the profile likelihood ratio", nil
	case types.StatisticProfileLikelihood:
		return "the bounded profile likelihood", nil
	case types.StatisticOneSidedProfileLikelihood:
		return "the one-sided profile likelihood", nil
	case types.StatisticMaxLikelihood:
		return "the best-fit signal strength", nil
	}
	return "", fmt.Errorf("no caption for statistic %q", string(s))
}

// LatexTable renders the scan as a LaTeX table with a caption built from
// the enum side tables.
func LatexTable(rep *Report) (string, error) {
	calcCaption, err := CalculatorCaption(rep.Calculator)
	if err != nil {
		return "", err
	}
	statCaption, err := StatisticCaption(rep.Statistic)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("\\begin{table}\n")
	b.WriteString("  \\centering\n")
	b.WriteString("  \\begin{tabular}{r r r r r r}\n")
	b.WriteString("    \\hline\n")
	fmt.Fprintf(&b, "    $%s$ & toys & $CL_s$ & $CL_{s+b}$ & $CL_b$ & expected $CL_s$ \\\\\n", rep.POI)
	b.WriteString("    \\hline\n")
	for _, row := range rep.Rows {
		fmt.Fprintf(&b, "    %.4g & %d & %.4f & %.4f & %.4f & %.4f \\\\\n",
			row.X, row.Toys, row.CLs, row.CLsb, row.CLb, row.ExpectedCLs)
	}
	b.WriteString("    \\hline\n")
	fmt.Fprintf(&b, "    \\multicolumn{6}{l}{observed limit $%s < %.4g$,"+
		" expected $%.4g^{+%.4g}_{-%.4g}$ at %.0f\\%% CL} \\\\\n",
		rep.POI, rep.ObservedLimit,
		rep.ExpectedLimit.Median,
		rep.ExpectedLimit.Up-rep.ExpectedLimit.Median,
		rep.ExpectedLimit.Median-rep.ExpectedLimit.Down,
		rep.CL*100)
	b.WriteString("    \\hline\n")
	b.WriteString("  \\end{tabular}\n")
	fmt.Fprintf(&b, "  \\caption{Inversion of %s for %q (%s), using %s.}\n",
		statCaption, rep.Workspace, rep.POI, calcCaption)
	b.WriteString("\\end{table}\n")
	return b.String(), nil
}
