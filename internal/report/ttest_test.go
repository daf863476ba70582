package report

import "testing"

func almostEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func TestWelchTTestIdenticalGroupsYieldsHighPValue(t *testing.T) {
	a := []float64{10, 10, 10, 10, 10}
	b := []float64{10, 10, 10, 10, 10}

	stat, p, _, err := welchTTest(a, b)
	if err != nil {
		t.Fatalf("welchTTest() error = %v", err)
	}
	if stat != 0 {
		t.Errorf("statistic = %v, want 0 for identical groups", stat)
	}
	if p != 1 {
		t.Errorf("pvalue = %v, want 1 for zero variance identical groups", p)
	}
}

func TestWelchTTestSeparatedGroupsYieldsLowPValue(t *testing.T) {
	a := []float64{1, 2, 1, 2, 1, 2, 1, 2}
	b := []float64{100, 101, 99, 102, 98, 103, 97, 104}

	stat, p, df, err := welchTTest(a, b)
	if err != nil {
		t.Fatalf("welchTTest() error = %v", err)
	}
	if stat >= 0 {
		t.Errorf("statistic = %v, want negative (group a's mean is far below group b's)", stat)
	}
	if p >= 0.01 {
		t.Errorf("pvalue = %v, want a small p-value for two clearly separated groups", p)
	}
	if df <= 0 {
		t.Errorf("df = %v, want positive degrees of freedom", df)
	}
}

func TestWelchTTestRequiresTwoSamplesPerGroup(t *testing.T) {
	if _, _, _, err := welchTTest([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("welchTTest() with a single-sample group should error")
	}
}

func TestMeanVariance(t *testing.T) {
	mean, variance := meanVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !almostEqual(mean, 5, 1e-9) {
		t.Errorf("mean = %v, want 5", mean)
	}
	if !almostEqual(variance, 4.571428571, 1e-6) {
		t.Errorf("variance = %v, want ~4.5714", variance)
	}
}

func TestStudentTTwoSidedMatchesKnownQuantile(t *testing.T) {
	// A t-statistic of 0 always has a p-value of 1 regardless of df.
	if p := studentTTwoSided(0, 10); !almostEqual(p, 1, 1e-9) {
		t.Errorf("studentTTwoSided(0, 10) = %v, want 1", p)
	}
	// Large |t| relative to df should push the two-sided p-value near 0.
	if p := studentTTwoSided(50, 10); p >= 1e-6 {
		t.Errorf("studentTTwoSided(50, 10) = %v, want a value near 0", p)
	}
}

func TestRegularizedIncompleteBetaBounds(t *testing.T) {
	if got := regularizedIncompleteBeta(0, 2, 2); got != 0 {
		t.Errorf("regularizedIncompleteBeta(0, ...) = %v, want 0", got)
	}
	if got := regularizedIncompleteBeta(1, 2, 2); got != 1 {
		t.Errorf("regularizedIncompleteBeta(1, ...) = %v, want 1", got)
	}
	// I_0.5(a, a) = 0.5 by symmetry for equal shape parameters.
	if got := regularizedIncompleteBeta(0.5, 3, 3); !almostEqual(got, 0.5, 1e-9) {
		t.Errorf("regularizedIncompleteBeta(0.5, 3, 3) = %v, want 0.5", got)
	}
}
