package fitness

import "math"

// MaxTreeSize mirrors tree.MaxTreeSize; duplicated here (rather than
// imported) to keep fitness free of a dependency on package tree — it
// operates purely on predictions, complexity counts and y vectors.
const MaxTreeSize = 20

// oversizePenalty is added to Score when complexity exceeds MaxTreeSize.
const oversizePenalty = 1e6

// Score computes the scalar fitness selection reads from:
//
//	fitness = MSE_train + adaptiveParsimony * complexity^1.5
//	if complexity > MaxTreeSize: fitness += 1e6
//	if not finite(fitness) or fitness > 1e10: fitness = 1e10
//
// Lower is better. The 1.5 exponent on complexity is load-bearing — do not
// round it to 1 or 2.
func Score(mseTrain float64, complexity int, adaptiveParsimony float64) float64 {
	f := mseTrain + adaptiveParsimony*math.Pow(float64(complexity), 1.5)
	if complexity > MaxTreeSize {
		f += oversizePenalty
	}
	if !isFinite(f) || f > sentinel {
		return sentinel
	}
	return f
}

// SplitMetrics bundles every metric evaluate_on_split computes for one
// individual against a train/test split (spec.md §4.3).
type SplitMetrics struct {
	MSETrain float64
	MSETest  float64
	R2Train  float64
	R2Test   float64

	AIC            float64
	BIC            float64
	ParsimonyScore float64
	OverfitGap     float64
}

// EvaluationReport bundles SplitMetrics with the per-evaluation sanitized
// sample counts (spec.md §6: the original silently absorbed non-finite
// per-sample predictions; this module counts how many it absorbed without
// changing the sanitized values themselves).
type EvaluationReport struct {
	SplitMetrics
	SanitizedTrain int
	SanitizedTest  int
}

// EvaluateSplit computes the full metric bundle for predictions already
// made over the train and test feature matrices. predTrain/predTest are
// sanitized in place.
func EvaluateSplit(yTrain, predTrain, yTest, predTest []float64, complexity int) SplitMetrics {
	return EvaluateSplitReport(yTrain, predTrain, yTest, predTest, complexity).SplitMetrics
}

// EvaluateSplitReport is EvaluateSplit plus absorption counters.
func EvaluateSplitReport(yTrain, predTrain, yTest, predTest []float64, complexity int) EvaluationReport {
	sanitizedTrain := CountNonFinite(predTrain)
	sanitizedTest := CountNonFinite(predTest)
	SanitizePredictions(predTrain)
	SanitizePredictions(predTest)

	mseTrain := MSE(yTrain, predTrain)
	mseTest := MSE(yTest, predTest)
	r2Train := RSquared(yTrain, predTrain)
	r2Test := RSquared(yTest, predTest)

	return EvaluationReport{
		SplitMetrics: SplitMetrics{
			MSETrain:       mseTrain,
			MSETest:        mseTest,
			R2Train:        r2Train,
			R2Test:         r2Test,
			AIC:            AIC(mseTest, len(yTest), complexity),
			BIC:            BIC(mseTest, len(yTest), complexity),
			ParsimonyScore: ParsimonyScore(r2Test, complexity, ReportingParsimonyAlpha),
			OverfitGap:     OverfitGap(r2Train, r2Test),
		},
		SanitizedTrain: sanitizedTrain,
		SanitizedTest:  sanitizedTest,
	}
}
