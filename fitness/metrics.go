// Package fitness computes vectorized prediction metrics and the composite
// fitness scalar selection reads from.
package fitness

import "math"

const (
	// sentinel is the fallback value for a metric that cannot be
	// meaningfully computed (no finite samples, degenerate split, ...).
	sentinel = 1e10

	predictionClip = 1e10
)

// SanitizePredictions replaces non-finite entries with 0 and clips the
// remainder to [-1e10, 1e10], per spec.md §4.3. Operates in place and
// returns pred for chaining.
func SanitizePredictions(pred []float64) []float64 {
	for i, v := range pred {
		if !isFinite(v) {
			pred[i] = 0
			continue
		}
		if v > predictionClip {
			pred[i] = predictionClip
		} else if v < -predictionClip {
			pred[i] = -predictionClip
		}
	}
	return pred
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CountNonFinite reports how many entries of pred are NaN or ±Inf. Call
// before SanitizePredictions to get an absorption count for diagnostics
// (spec.md §6 EvalError absorption counters) — sanitizing overwrites those
// entries with 0 in place.
func CountNonFinite(pred []float64) int {
	n := 0
	for _, v := range pred {
		if !isFinite(v) {
			n++
		}
	}
	return n
}

// MSE computes mean squared error over samples where pred is finite. No
// finite samples, or a non-finite result, yields the sentinel.
func MSE(yTrue, pred []float64) float64 {
	sum := 0.0
	n := 0
	for i, p := range pred {
		if !isFinite(p) {
			continue
		}
		d := yTrue[i] - p
		sum += d * d
		n++
	}
	if n == 0 {
		return sentinel
	}
	mse := sum / float64(n)
	if !isFinite(mse) {
		return sentinel
	}
	return mse
}

// RSquared computes the coefficient of determination, clamped to [0, 1].
// Fewer than 2 valid (finite y and pred) points yields 0.
func RSquared(yTrue, pred []float64) float64 {
	var validTrue, validPred []float64
	for i, p := range pred {
		if isFinite(p) && isFinite(yTrue[i]) {
			validTrue = append(validTrue, yTrue[i])
			validPred = append(validPred, p)
		}
	}
	if len(validTrue) < 2 {
		return 0.0
	}

	mean := 0.0
	for _, v := range validTrue {
		mean += v
	}
	mean /= float64(len(validTrue))

	ssRes, ssTot := 0.0, 0.0
	for i, v := range validTrue {
		dRes := v - validPred[i]
		ssRes += dRes * dRes
		dTot := v - mean
		ssTot += dTot * dTot
	}

	if ssTot < 1e-10 {
		if ssRes < 1e-10 {
			return 1.0
		}
		return 0.0
	}

	r2 := 1.0 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return r2
}

// AIC computes the Akaike Information Criterion: n*ln(MSE) + 2*k. Guarded
// against mse <= 0, non-finite mse, or n <= 0, all of which yield the
// sentinel (lower AIC is better, so a degenerate fit must not look good).
func AIC(mse float64, nSamples, complexity int) float64 {
	if mse <= 0 || !isFinite(mse) || nSamples <= 0 {
		return sentinel
	}
	aic := float64(nSamples)*math.Log(mse) + 2*float64(complexity)
	if !isFinite(aic) {
		return sentinel
	}
	return aic
}

// BIC computes the Bayesian Information Criterion: n*ln(MSE) + k*ln(n).
// Same guards as AIC.
func BIC(mse float64, nSamples, complexity int) float64 {
	if mse <= 0 || !isFinite(mse) || nSamples <= 0 {
		return sentinel
	}
	bic := float64(nSamples)*math.Log(mse) + float64(complexity)*math.Log(float64(nSamples))
	if !isFinite(bic) {
		return sentinel
	}
	return bic
}

// DefaultParsimonyAlpha is the default base coefficient of the complexity
// penalty in Score (the engine's ParsimonyCoefficient);
// ReportingParsimonyAlpha is the α ParsimonyScore is computed with for the
// reported metric.
const (
	DefaultParsimonyAlpha   = 0.01
	ReportingParsimonyAlpha = 0.02
)

// ParsimonyScore is r2 - alpha*complexity. Higher is better.
func ParsimonyScore(r2 float64, complexity int, alpha float64) float64 {
	return r2 - alpha*float64(complexity)
}

// OverfitGap is trainR2 - testR2.
func OverfitGap(trainR2, testR2 float64) float64 {
	return trainR2 - testR2
}
