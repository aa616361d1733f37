package fitness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizePredictionsReplacesNonFiniteAndClips(t *testing.T) {
	pred := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e20, -1e20, 3.0}
	SanitizePredictions(pred)
	require.Equal(t, []float64{0, 0, 0, predictionClip, -predictionClip, 3.0}, pred)
}

func TestMSENoFiniteSamplesYieldsSentinel(t *testing.T) {
	yTrue := []float64{1, 2, 3}
	pred := []float64{math.NaN(), math.Inf(1), math.NaN()}
	require.Equal(t, sentinel, MSE(yTrue, pred))
}

func TestMSEExact(t *testing.T) {
	yTrue := []float64{1, 2, 3}
	pred := []float64{1, 2, 4}
	require.InDelta(t, 1.0/3.0, MSE(yTrue, pred), 1e-9)
}

func TestRSquaredFewerThanTwoValidPointsIsZero(t *testing.T) {
	require.Equal(t, 0.0, RSquared([]float64{1}, []float64{1}))
	require.Equal(t, 0.0, RSquared(nil, nil))
}

func TestRSquaredDegenerateSStot(t *testing.T) {
	yTrue := []float64{5, 5, 5}
	predExact := []float64{5, 5, 5}
	require.Equal(t, 1.0, RSquared(yTrue, predExact))

	predOff := []float64{5, 5, 6}
	require.Equal(t, 0.0, RSquared(yTrue, predOff))
}

func TestRSquaredClampedToUnitInterval(t *testing.T) {
	yTrue := []float64{0, 1, 2, 3}
	predTerrible := []float64{100, -100, 100, -100}
	r2 := RSquared(yTrue, predTerrible)
	require.GreaterOrEqual(t, r2, 0.0)
	require.LessOrEqual(t, r2, 1.0)
}

func TestAICBICGuards(t *testing.T) {
	require.Equal(t, sentinel, AIC(0, 10, 3))
	require.Equal(t, sentinel, AIC(-1, 10, 3))
	require.Equal(t, sentinel, AIC(1.0, 0, 3))
	require.Equal(t, sentinel, BIC(0, 10, 3))
}

func TestAICBICFiniteCase(t *testing.T) {
	aic := AIC(0.5, 50, 5)
	require.True(t, isFinite(aic))
	bic := BIC(0.5, 50, 5)
	require.True(t, isFinite(bic))
}

func TestScoreAppliesComplexityPenaltyAndOversizePenalty(t *testing.T) {
	small := Score(0.1, 5, 0.01)
	require.InDelta(t, 0.1+0.01*math.Pow(5, 1.5), small, 1e-9)

	oversized := Score(0.1, MaxTreeSize+1, 0.01)
	require.Greater(t, oversized, small+1e5)
}

func TestScoreSentinelOnNonFiniteOrHuge(t *testing.T) {
	require.Equal(t, sentinel, Score(math.NaN(), 3, 0.01))
	require.Equal(t, sentinel, Score(1e20, 3, 0.01))
}

func TestOverfitGap(t *testing.T) {
	require.InDelta(t, 0.2, OverfitGap(0.99, 0.79), 1e-9)
}

func TestEvaluateSplitSanitizesInPlace(t *testing.T) {
	yTrain := []float64{1, 2, 3}
	predTrain := []float64{1, 2, math.NaN()}
	yTest := []float64{4, 5}
	predTest := []float64{4, 1e20}

	m := EvaluateSplit(yTrain, predTrain, yTest, predTest, 4)
	require.Equal(t, 0.0, predTrain[2])
	require.Equal(t, predictionClip, predTest[1])
	require.True(t, isFinite(m.MSETrain))
	require.True(t, isFinite(m.MSETest))
}

func TestEvaluateSplitReportCountsAbsorbedNonFinitePredictions(t *testing.T) {
	yTrain := []float64{1, 2, 3}
	predTrain := []float64{1, math.NaN(), math.Inf(1)}
	yTest := []float64{4, 5}
	predTest := []float64{4, 5}

	report := EvaluateSplitReport(yTrain, predTrain, yTest, predTest, 4)
	require.Equal(t, 2, report.SanitizedTrain)
	require.Equal(t, 0, report.SanitizedTest)
}
