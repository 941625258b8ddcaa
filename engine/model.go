package engine

import (
	"math"

	"github.com/gunwale-io/bailer/types"
)

// Model is the counting likelihood of a workspace: independent Poisson
// channels with expectation mu*signal + background. It is built once per
// task and shared by every toy in the batch.
type Model struct {
	obs   []float64
	bkg   []float64
	sig   []float64
	sigma []float64
}

// NewModel builds the likelihood model of a workspace.
func NewModel(ws *Workspace) *Model {
	m := &Model{
		obs:   make([]float64, len(ws.Channels)),
		bkg:   make([]float64, len(ws.Channels)),
		sig:   make([]float64, len(ws.Channels)),
		sigma: make([]float64, len(ws.Channels)),
	}
	for i, ch := range ws.Channels {
		m.obs[i] = ch.Observed
		m.bkg[i] = ch.Background
		m.sig[i] = ch.Signal
		m.sigma[i] = ch.BackgroundSigma
	}
	return m
}

// Observed returns a copy of the measured counts, in channel order.
func (m *Model) Observed() []float64 {
	out := make([]float64, len(m.obs))
	copy(out, m.obs)
	return out
}

// Asimov returns the background-only expectation as a dataset, the counts a
// median background experiment would see.
func (m *Model) Asimov() []float64 {
	out := make([]float64, len(m.bkg))
	copy(out, m.bkg)
	return out
}

// logLikelihood is the Poisson log likelihood of counts under signal
// strength mu, up to terms independent of mu. A non-positive expectation is
// outside the physical region and scores minus infinity.
func (m *Model) logLikelihood(mu float64, counts []float64) float64 {
	ll := 0.0
	for i, s := range m.sig {
		lam := mu*s + m.bkg[i]
		if lam <= 0 {
			return math.Inf(-1)
		}
		if counts[i] > 0 {
			ll += counts[i] * math.Log(lam)
		}
		ll -= lam
	}
	return ll
}

// score is the derivative of logLikelihood in mu. It decreases monotonically
// wherever every expectation is positive, which makes the best fit a
// bisection problem.
func (m *Model) score(mu float64, counts []float64) float64 {
	d := 0.0
	for i, s := range m.sig {
		if s == 0 {
			continue
		}
		d += counts[i]*s/(mu*s+m.bkg[i]) - s
	}
	return d
}

// muFloor is the infimum of signal strengths keeping every channel's
// expectation positive. Below it the likelihood is undefined.
func (m *Model) muFloor() float64 {
	floor := math.Inf(-1)
	for i, s := range m.sig {
		if s > 0 {
			if v := -m.bkg[i] / s; v > floor {
				floor = v
			}
		}
	}
	return floor
}

// muHat is the maximum-likelihood signal strength for the given counts,
// found by bisecting the monotone score. With bounded set the fit is
// constrained to non-negative signal strengths, which pins a deficit at
// zero.
func (m *Model) muHat(counts []float64, bounded bool) float64 {
	lo := 0.0
	if !bounded {
		floor := m.muFloor()
		lo = floor + 1e-9*(1+math.Abs(floor))
	}
	if m.score(lo, counts) <= 0 {
		return lo
	}
	step := 1.0
	hi := lo + step
	for m.score(hi, counts) > 0 && step < 1e9 {
		step *= 2
		hi = lo + step
	}
	for i := 0; i < 100; i++ {
		mid := 0.5 * (lo + hi)
		if m.score(mid, counts) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// Statistic evaluates the chosen test statistic at signal strength mu for
// the given counts. Larger values are more background-like for every
// likelihood-ratio variant, so tail fractions are always taken upward.
// Callers validate the statistic name before batching toys; an unknown name
// here yields NaN.
func (m *Model) Statistic(stat types.Statistic, mu float64, counts []float64) float64 {
	switch stat {
	case types.StatisticSimpleLR:
		return -2 * (m.logLikelihood(mu, counts) - m.logLikelihood(0, counts))
	case types.StatisticProfileLR:
		hat := m.muHat(counts, false)
		return -2 * (m.logLikelihood(mu, counts) - m.logLikelihood(hat, counts))
	case types.StatisticProfileLikelihood:
		hat := m.muHat(counts, true)
		return -2 * (m.logLikelihood(mu, counts) - m.logLikelihood(hat, counts))
	case types.StatisticOneSidedProfileLikelihood:
		hat := m.muHat(counts, true)
		if hat > mu {
			return 0
		}
		return -2 * (m.logLikelihood(mu, counts) - m.logLikelihood(hat, counts))
	case types.StatisticMaxLikelihood:
		return m.muHat(counts, true)
	}
	return math.NaN()
}

// drawToy samples one pseudo-experiment under signal strength mu. The
// hybrid flavor fluctuates each background yield within its uncertainty
// before drawing the count.
func (m *Model) drawToy(mu float64, hybrid bool) []float64 {
	counts := make([]float64, len(m.sig))
	for i, s := range m.sig {
		bkg := m.bkg[i]
		if hybrid && m.sigma[i] > 0 {
			bkg = normal(bkg, m.sigma[i])
			if bkg < 0 {
				bkg = 0
			}
		}
		lam := mu*s + bkg
		counts[i] = poisson(lam)
	}
	return counts
}

// toyEnsemble draws n pseudo-experiments under genMu and evaluates the test
// statistic at testMu for each. The caller must have reseeded the global
// generator first.
func (m *Model) toyEnsemble(stat types.Statistic, testMu, genMu float64, n int, hybrid bool) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = m.Statistic(stat, testMu, m.drawToy(genMu, hybrid))
	}
	return out
}

// normalCDF is the standard normal cumulative distribution.
func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normalQuantile is the inverse of normalCDF.
func normalQuantile(p float64) float64 {
	return -math.Sqrt2 * math.Erfcinv(2*p)
}

// tailFraction is the fraction of ensemble values at or above the
// threshold, the empirical p-value of a toy ensemble.
func tailFraction(ensemble []float64, threshold float64) float64 {
	if len(ensemble) == 0 {
		return 0
	}
	count := 0
	for _, v := range ensemble {
		if v >= threshold {
			count++
		}
	}
	return float64(count) / float64(len(ensemble))
}
