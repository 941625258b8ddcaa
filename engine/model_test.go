package engine

import (
	"math"
	"testing"

	"github.com/gunwale-io/bailer/types"
)

func singleChannelModel(observed, background, signal float64) *Model {
	return NewModel(&Workspace{
		Name: "combined",
		POI:  "mu_SIG",
		Channels: []Channel{
			{Name: "DR-WHO", Observed: observed, Background: background, Signal: signal},
		},
	})
}

func TestMuHatSingleChannel(t *testing.T) {
	tests := []struct {
		name     string
		observed float64
		bounded  bool
		want     float64
	}{
		// With background 2 and unit signal the score vanishes at mu = n-2.
		{"excess", 5, false, 3},
		{"excess bounded", 5, true, 3},
		{"deficit unbounded", 1, false, -1},
		{"deficit pinned at zero", 1, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := singleChannelModel(tt.observed, 2, 1)
			got := m.muHat([]float64{tt.observed}, tt.bounded)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("muHat(%v, bounded=%v) = %v, want %v", tt.observed, tt.bounded, got, tt.want)
			}
		})
	}
}

func TestStatisticSimpleLR(t *testing.T) {
	m := singleChannelModel(3, 2, 1)
	got := m.Statistic(types.StatisticSimpleLR, 1, []float64{3})
	want := -2 * ((3*math.Log(3) - 3) - (3*math.Log(2) - 2))
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("simple-lr = %v, want %v", got, want)
	}
}

func TestStatisticVanishesAtBestFit(t *testing.T) {
	m := singleChannelModel(5, 2, 1)
	got := m.Statistic(types.StatisticProfileLR, 3, []float64{5})
	if math.Abs(got) > 1e-9 {
		t.Errorf("profile-lr at best fit = %v, want 0", got)
	}
}

func TestStatisticOneSided(t *testing.T) {
	m := singleChannelModel(3, 2, 1)

	// A large excess fits far above the tested point, so the one-sided
	// statistic carries no evidence against it.
	if got := m.Statistic(types.StatisticOneSidedProfileLikelihood, 1, []float64{50}); got != 0 {
		t.Errorf("one-sided with excess = %v, want 0", got)
	}

	// A deficit pins the fit at zero and the tested point is disfavored.
	got := m.Statistic(types.StatisticOneSidedProfileLikelihood, 1, []float64{0})
	if got <= 0 {
		t.Errorf("one-sided with deficit = %v, want positive", got)
	}
}

func TestStatisticMaxLikelihood(t *testing.T) {
	m := singleChannelModel(5, 2, 1)
	got := m.Statistic(types.StatisticMaxLikelihood, 1, []float64{5})
	if math.Abs(got-3) > 1e-6 {
		t.Errorf("max-likelihood = %v, want best-fit strength 3", got)
	}
}

func TestStatisticProfileBoundedVsUnbounded(t *testing.T) {
	m := singleChannelModel(1, 2, 1)
	counts := []float64{1}

	// Under a deficit the bounded fit sits at zero while the unbounded fit
	// goes negative, so the two statistics must differ at a positive point.
	bounded := m.Statistic(types.StatisticProfileLikelihood, 1, counts)
	unbounded := m.Statistic(types.StatisticProfileLR, 1, counts)
	if bounded >= unbounded {
		t.Errorf("bounded = %v, unbounded = %v, want bounded < unbounded", bounded, unbounded)
	}
}

func TestTailFraction(t *testing.T) {
	ensemble := []float64{1, 2, 3, 4}

	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"middle", 2.5, 0.5},
		{"at a value", 2, 0.75},
		{"above all", 5, 0},
		{"below all", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tailFraction(ensemble, tt.threshold); got != tt.want {
				t.Errorf("tailFraction(%v) = %v, want %v", tt.threshold, got, tt.want)
			}
		})
	}

	if got := tailFraction(nil, 1); got != 0 {
		t.Errorf("tailFraction(nil) = %v, want 0", got)
	}
}

func TestQuantile(t *testing.T) {
	ensemble := []float64{4, 1, 3, 2}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1},
		{0.5, 2},
		{0.75, 3},
		{1, 4},
	}

	for _, tt := range tests {
		if got := quantile(ensemble, tt.p); got != tt.want {
			t.Errorf("quantile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
		tol  float64
	}{
		{0, 0.5, 1e-12},
		{1.96, 0.975, 1e-3},
		{-1.96, 0.025, 1e-3},
	}

	for _, tt := range tests {
		if got := normalCDF(tt.x); math.Abs(got-tt.want) > tt.tol {
			t.Errorf("normalCDF(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestNormalQuantileInvertsCDF(t *testing.T) {
	for _, x := range []float64{-2, -0.5, 0, 0.5, 2} {
		got := normalQuantile(normalCDF(x))
		if math.Abs(got-x) > 1e-9 {
			t.Errorf("normalQuantile(normalCDF(%v)) = %v", x, got)
		}
	}
}
