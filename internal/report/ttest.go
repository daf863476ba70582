package report

import "math"

// welchTTest computes Welch's two-sample t-test statistic, degrees of
// freedom (Welch-Satterthwaite), and two-sided p-value. No statistics
// library (gonum or otherwise) is evidenced in any example repo's go.mod,
// so the regularized incomplete beta function backing the Student's-t CDF
// is implemented directly over math, following Numerical Recipes' standard
// continued-fraction expansion.
func welchTTest(a, b []float64) (statistic, pvalue, df float64, err error) {
	na, nb := len(a), len(b)
	if na < 2 || nb < 2 {
		return 0, 0, 0, errInsufficientSamples
	}

	meanA, varA := meanVariance(a)
	meanB, varB := meanVariance(b)

	seA := varA / float64(na)
	seB := varB / float64(nb)
	se := seA + seB
	if se == 0 {
		return 0, 1, 0, nil
	}

	statistic = (meanA - meanB) / math.Sqrt(se)
	df = (seA + seB) * (seA + seB) / (seA*seA/float64(na-1) + seB*seB/float64(nb-1))

	pvalue = studentTTwoSided(statistic, df)
	return statistic, pvalue, df, nil
}

func meanVariance(xs []float64) (mean, variance float64) {
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= n - 1
	return mean, variance
}

// studentTTwoSided returns P(|T| > |t|) for a Student's-t distribution
// with df degrees of freedom, via the regularized incomplete beta
// function: 2-sided tail = I_{df/(df+t^2)}(df/2, 1/2).
func studentTTwoSided(t, df float64) float64 {
	x := df / (df + t*t)
	return regularizedIncompleteBeta(x, df/2, 0.5)
}

// regularizedIncompleteBeta computes I_x(a, b) via its continued-fraction
// expansion (Numerical Recipes in C, §6.4), the standard closed-form route
// to the Student's-t CDF without a dedicated stats library.
func regularizedIncompleteBeta(x, a, b float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lbeta := lgamma(a+b) - lgamma(a) - lgamma(b)
	front := math.Exp(lbeta + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(x, a, b) / a
	}
	return 1 - front*betaContinuedFraction(1-x, b, a)/b
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func betaContinuedFraction(x, a, b float64) float64 {
	const maxIter = 200
	const eps = 3e-12
	const fpmin = 1e-300

	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		m2 := float64(2 * m)

		aa := float64(m) * (b - float64(m)) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		h *= d * c

		aa = -(a + float64(m)) * (qab + float64(m)) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
