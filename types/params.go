package types

import "fmt"

// Calculator selects how the engine builds test statistic distributions.
type Calculator string

const (
	// CalculatorFrequentist draws both ensembles from toy pseudo-experiments.
	CalculatorFrequentist Calculator = "frequentist"
	// CalculatorHybrid draws toys with nuisance parameters fluctuated.
	CalculatorHybrid Calculator = "hybrid"
	// CalculatorAsymptotic evaluates closed-form asymptotic p-values.
	CalculatorAsymptotic Calculator = "asymptotic"
	// CalculatorAsimov evaluates asymptotic p-values on the Asimov dataset.
	CalculatorAsimov Calculator = "asimov"
)

// UsesToys reports whether the calculator runs randomized trials. Only
// toy-based calculators are expanded into batched worker tasks; the others
// take the direct single-call path.
func (c Calculator) UsesToys() bool {
	return c == CalculatorFrequentist || c == CalculatorHybrid
}

// Validate fails closed on unrecognized calculator names.
func (c Calculator) Validate() error {
	switch c {
	case CalculatorFrequentist, CalculatorHybrid, CalculatorAsymptotic, CalculatorAsimov:
		return nil
	}
	return fmt.Errorf("unknown calculator %q", string(c))
}

// Calculators lists every recognized calculator, in flag-help order.
func Calculators() []Calculator {
	return []Calculator{
		CalculatorFrequentist,
		CalculatorHybrid,
		CalculatorAsymptotic,
		CalculatorAsimov,
	}
}

// Statistic selects the test statistic the engine evaluates per trial.
type Statistic string

const (
	// StatisticSimpleLR is the simple likelihood ratio of the two fixed hypotheses.
	StatisticSimpleLR Statistic = "simple-lr"
	// StatisticProfileLR is the two-sided profiled likelihood ratio.
	StatisticProfileLR Statistic = "profile-lr"
	// StatisticProfileLikelihood is the profiled likelihood with the
	// best-fit signal strength bounded at zero.
	StatisticProfileLikelihood Statistic = "profile-likelihood"
	// StatisticOneSidedProfileLikelihood zeroes the statistic when the
	// best-fit signal strength exceeds the tested point.
	StatisticOneSidedProfileLikelihood Statistic = "one-sided-profile-likelihood"
	// StatisticMaxLikelihood is the best-fit signal strength itself.
	StatisticMaxLikelihood Statistic = "max-likelihood"
)

// Validate fails closed on unrecognized statistic names.
func (s Statistic) Validate() error {
	switch s {
	case StatisticSimpleLR, StatisticProfileLR, StatisticProfileLikelihood,
		StatisticOneSidedProfileLikelihood, StatisticMaxLikelihood:
		return nil
	}
	return fmt.Errorf("unknown test statistic %q", string(s))
}

// Statistics lists every recognized test statistic, in flag-help order.
func Statistics() []Statistic {
	return []Statistic{
		StatisticSimpleLR,
		StatisticProfileLR,
		StatisticProfileLikelihood,
		StatisticOneSidedProfileLikelihood,
		StatisticMaxLikelihood,
	}
}

// Fit selects the hypothesis-test orientation.
type Fit string

const (
	// FitDiscovery tests the background-only hypothesis against signal.
	FitDiscovery Fit = "discovery"
	// FitExclusion tests the nominal-signal hypothesis against background.
	FitExclusion Fit = "exclusion"
)

// Validate fails closed on unrecognized fit names.
func (f Fit) Validate() error {
	switch f {
	case FitDiscovery, FitExclusion:
		return nil
	}
	return fmt.Errorf("unknown fit %q", string(f))
}
