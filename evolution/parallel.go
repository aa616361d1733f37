package evolution

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/evotree/symreg/fitness"
)

// evalTask is one individual's evaluation work item.
type evalTask struct {
	index int
	ind   *Individual
}

// EvaluateUnevaluated fans out fitness evaluation for every individual
// whose tree fitness is currently invalid across a worker pool, the same
// channel-based fan-out/fan-in shape the original parallel genome
// evaluator used, generalized from "simulate games" to "predict over a
// train/test split". numWorkers <= 0 uses runtime.NumCPU(). Returns the
// total number of predictions sanitized across this call (spec.md §6
// EvalError absorption counters), for diagnostic visibility only.
func EvaluateUnevaluated(pop *Population, data *Dataset, adaptiveParsimony float64, numWorkers int) int {
	targets := pop.Unevaluated()
	if len(targets) == 0 {
		return 0
	}

	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(targets) {
		numWorkers = len(targets)
	}

	var sanitized int64
	tasks := make(chan evalTask, len(targets))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				atomic.AddInt64(&sanitized, int64(evaluateOne(t.ind, data, adaptiveParsimony)))
			}
		}()
	}

	for i, ind := range targets {
		tasks <- evalTask{index: i, ind: ind}
	}
	close(tasks)
	wg.Wait()

	return int(sanitized)
}

// evaluateOne evaluates ind and returns how many of its predictions were
// sanitized (non-finite -> 0).
func evaluateOne(ind *Individual, data *Dataset, adaptiveParsimony float64) int {
	predTrain := ind.Tree.Predict(data.XTrain)
	predTest := ind.Tree.Predict(data.XTest)

	complexity := ind.Tree.Size()
	report := fitness.EvaluateSplitReport(data.YTrain, predTrain, data.YTest, predTest, complexity)
	ind.Metrics = report.SplitMetrics

	score := fitness.Score(report.MSETrain, complexity, adaptiveParsimony)
	ind.Tree.SetFitness(score)

	return report.SanitizedTrain + report.SanitizedTest
}
