package engine

import (
	"errors"
	"math"
	"testing"
)

func drawUniforms(t *testing.T, seed uint64, n int) []float64 {
	t.Helper()
	if err := Reseed(seed); err != nil {
		t.Fatalf("Reseed(%d) failed: %v", seed, err)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = uniform()
	}
	return out
}

func TestReseedReproducesStream(t *testing.T) {
	first := drawUniforms(t, 42, 100)
	second := drawUniforms(t, 42, 100)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("draw %d = %v after first reseed, %v after second", i, first[i], second[i])
		}
	}
}

func TestReseedDistinctSeedsDiverge(t *testing.T) {
	a := drawUniforms(t, 7, 10)
	b := drawUniforms(t, 8, 10)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("seeds 7 and 8 produced identical streams")
	}
}

func TestReseedTruncatesHighBits(t *testing.T) {
	low := drawUniforms(t, 7, 10)
	high := drawUniforms(t, 7+(1<<32), 10)
	for i := range low {
		if low[i] != high[i] {
			t.Fatalf("draw %d = %v with seed 7, %v with seed 7+2^32; high bits should be discarded", i, low[i], high[i])
		}
	}
}

func TestReseedRejectsZero(t *testing.T) {
	if err := Reseed(0); !errors.Is(err, ErrZeroSeed) {
		t.Errorf("Reseed(0) = %v, want ErrZeroSeed", err)
	}
}

func TestPoissonMean(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
	}{
		{"small expectation", 5},
		{"gaussian branch", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Reseed(1234); err != nil {
				t.Fatalf("Reseed failed: %v", err)
			}
			const n = 20000
			sum := 0.0
			for i := 0; i < n; i++ {
				v := poisson(tt.lambda)
				if v < 0 {
					t.Fatalf("poisson(%v) = %v, want non-negative", tt.lambda, v)
				}
				sum += v
			}
			mean := sum / n
			tolerance := 10 * math.Sqrt(tt.lambda/n)
			if math.Abs(mean-tt.lambda) > tolerance {
				t.Errorf("mean of %d draws = %v, want %v within %v", n, mean, tt.lambda, tolerance)
			}
		})
	}
}

func TestPoissonDegenerateExpectation(t *testing.T) {
	if got := poisson(0); got != 0 {
		t.Errorf("poisson(0) = %v, want 0", got)
	}
	if got := poisson(-3); got != 0 {
		t.Errorf("poisson(-3) = %v, want 0", got)
	}
}

func TestNormalMean(t *testing.T) {
	if err := Reseed(99); err != nil {
		t.Fatalf("Reseed failed: %v", err)
	}
	const n = 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += normal(2, 0.5)
	}
	mean := sum / n
	tolerance := 10 * 0.5 / math.Sqrt(n)
	if math.Abs(mean-2) > tolerance {
		t.Errorf("mean of %d draws = %v, want 2 within %v", n, mean, tolerance)
	}
}
