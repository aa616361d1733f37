// Package main provides the evolve-gp CLI for running symbolic-regression
// genetic programming over a dataset.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/evotree/symreg/checkpoint"
	"github.com/evotree/symreg/evolution"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// CLI flags
var (
	generations        int
	populationSize     int
	operators          string
	functions          string
	dataset            string
	csvPath            string
	seed               int64
	checkpointDir      string
	resumeID           string
	checkpointInterval int
	checkpointKeep     int
	outputDir          string
	workers            int
	verbose            bool
	showVersion        bool
)

func init() {
	flag.IntVar(&generations, "generations", 100, "Number of generations to evolve")
	flag.IntVar(&populationSize, "population-size", 300, "Population size")
	flag.StringVar(&operators, "operators", "+,-,*,/", "Comma-separated operator symbols")
	flag.StringVar(&functions, "functions", "sin,cos,sqrt,log,exp", "Comma-separated function names")
	flag.StringVar(&dataset, "dataset", "quadratic", "Built-in demo dataset (quadratic, linear, sine) when -csv is unset")
	flag.StringVar(&csvPath, "csv", "", "Path to a CSV file; last column is treated as y (out of scope otherwise, see DESIGN.md)")
	flag.Int64Var(&seed, "seed", 0, "Random seed (0 = use current time)")
	flag.StringVar(&checkpointDir, "checkpoint-dir", "", "Directory for checkpoint storage (default: output-dir/checkpoints)")
	flag.StringVar(&resumeID, "resume", "", "Resume from this checkpoint id")
	flag.IntVar(&checkpointInterval, "checkpoint-interval", 10, "Auto-save checkpoint every N generations (0 = disabled)")
	flag.IntVar(&checkpointKeep, "checkpoint-keep", 5, "Checkpoints to keep per session after cleanup")
	flag.StringVar(&outputDir, "output-dir", "", "Output directory for results (default: output/evolve-TIMESTAMP)")
	flag.IntVar(&workers, "workers", 0, "Number of worker goroutines (0 = auto-detect CPU count)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("evolve-gp %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join("output", fmt.Sprintf("evolve-%s", timestamp))
	}
	if checkpointDir == "" {
		checkpointDir = filepath.Join(outputDir, "checkpoints")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sessionID := fmt.Sprintf("session-%d", seed)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	store, err := checkpoint.NewStore(checkpointDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening checkpoint store: %v\n", err)
		os.Exit(1)
	}

	X, y, err := loadDataset()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}

	cfg := evolution.DefaultConfig()
	cfg.PopulationSize = populationSize
	cfg.Operators = splitNonEmpty(operators)
	cfg.Functions = splitNonEmpty(functions)
	cfg.RandomState = seed
	cfg.NumWorkers = workers
	cfg.UpdateInterval = 0 // observer runs every generation, so -checkpoint-interval counts every generation

	engine, err := evolution.New(X, y, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error constructing engine: %v\n", err)
		os.Exit(1)
	}

	startGeneration := 0
	if resumeID != "" {
		snap, meta, err := store.Load(resumeID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading checkpoint %q: %v\n", resumeID, err)
			os.Exit(1)
		}
		if err := engine.Restore(snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error restoring checkpoint %q: %v\n", resumeID, err)
			os.Exit(1)
		}
		sessionID = meta.SessionID
		startGeneration = engine.Generation()
		fmt.Printf("Resumed from checkpoint %s at generation %d\n\n", resumeID, startGeneration)
	}

	printBanner(sessionID, startGeneration)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nInterrupted! Saving checkpoint...")
		if err := saveCheckpoint(store, engine, sessionID); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving checkpoint: %v\n", err)
		}
		os.Exit(130)
	}()

	startTime := time.Now()
	totalGenerations := startGeneration + generations
	var final resultOutput

	observer := func(u evolution.Update) {
		switch u.Kind {
		case "generation_update":
			elapsed := time.Since(startTime)
			progress := float64(u.Generation-startGeneration) / float64(generations) * 100
			fmt.Printf("\rGen %4d/%d | Fit: %.4f | R²(train): %.4f | R²(test): %.4f | %s (%.0f%%)",
				u.Generation, totalGenerations,
				u.Stats.BestFitness, u.Stats.TrainR2, u.Stats.TestR2,
				formatDuration(elapsed), progress)

			if verbose {
				fmt.Printf("\n  Best equation: %s\n", u.Best.Equation)
			}

			if checkpointInterval > 0 && u.Generation%checkpointInterval == 0 {
				if err := saveCheckpoint(store, engine, sessionID); err != nil {
					fmt.Fprintf(os.Stderr, "\nWarning: checkpoint save failed: %v\n", err)
				}
				if err := store.Cleanup(checkpointKeep); err != nil {
					fmt.Fprintf(os.Stderr, "\nWarning: checkpoint cleanup failed: %v\n", err)
				}
			}
		case "evolution_stopped":
			fmt.Printf("\n\nEvolution %s after %d generations in %s\n",
				u.Status, u.GenerationsComplete, formatDuration(u.ElapsedTime))
			fmt.Printf("Best equation: %s (fitness=%.4f)\n", u.BestEquation, u.BestFitness)
			printParetoFront(u.ParetoFront)
			final = resultOutput{
				Equation:    u.BestEquation,
				Fitness:     u.BestFitness,
				ParetoFront: u.ParetoFront,
				HallOfFame:  u.HallOfFame,
			}
		}
	}

	engine.Evolve(totalGenerations, observer)

	if err := saveCheckpoint(store, engine, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: final checkpoint save failed: %v\n", err)
	}

	resultPath := filepath.Join(outputDir, "result.json")
	if err := saveResult(final, resultPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save result: %v\n", err)
	} else {
		fmt.Printf("Result written to %s\n", resultPath)
	}
}

func saveCheckpoint(store *checkpoint.Store, engine *evolution.Engine, sessionID string) error {
	snap := engine.Capture()
	id := checkpoint.ID(sessionID, time.Now())
	meta := checkpoint.Metadata{
		SessionID:  sessionID,
		Name:       fmt.Sprintf("gen-%d", snap.Generation),
		CreatedAt:  time.Now(),
		Generation: snap.Generation,
		Config:     snap.Config,
		DataInfo: checkpoint.DataInfo{
			NFeatures: snap.NFeatures,
			NTrain:    len(engine.Data.YTrain),
			NTest:     len(engine.Data.YTest),
		},
	}
	return store.Save(id, snap, meta)
}

// resultOutput is the JSON structure for the final saved result.
type resultOutput struct {
	Equation    string                  `json:"equation"`
	Fitness     float64                 `json:"fitness"`
	ParetoFront []evolution.ParetoPoint `json:"pareto_front"`
	HallOfFame  []string                `json:"hall_of_fame"`
}

func saveResult(final resultOutput, path string) error {
	data, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printBanner(sessionID string, startGeneration int) {
	fmt.Println()
	fmt.Println("======================================================")
	fmt.Println("         Symbolic Regression GP Engine (Go)")
	fmt.Println("======================================================")
	fmt.Printf("  Session:        %s\n", sessionID)
	fmt.Printf("  Population:     %d\n", populationSize)
	fmt.Printf("  Generations:    %d (from %d)\n", generations, startGeneration)
	fmt.Printf("  Operators:      %s\n", operators)
	fmt.Printf("  Functions:      %s\n", functions)
	fmt.Printf("  Workers:        %d (0=auto)\n", workers)
	fmt.Printf("  Checkpoints:    %s\n", checkpointDir)
	fmt.Println("======================================================")
	fmt.Println()
}

func printParetoFront(front []evolution.ParetoPoint) {
	if len(front) == 0 {
		return
	}
	fmt.Println("\nPareto front (complexity -> test R²):")
	for _, p := range front {
		fmt.Printf("  size=%2d  R2=%.4f  %s\n", p.Complexity, p.TestR2, p.Equation)
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// loadDataset reads -csv if set (last column is y, rest are features), else
// generates one of the built-in demo datasets. CSV parsing proper (dtype
// inference, headers, missing-value handling) is out of scope (SPEC_FULL.md
// §1) — this is a minimal loader so the binary is runnable end to end.
func loadDataset() ([][]float64, []float64, error) {
	if csvPath != "" {
		return loadCSV(csvPath)
	}
	return syntheticDataset(dataset)
}

func loadCSV(path string) ([][]float64, []float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var X [][]float64
	var y []float64
	for lineNo, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		row := make([]float64, len(fields))
		ok := true
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				ok = false
				break
			}
			row[i] = v
		}
		if !ok {
			if lineNo == 0 {
				continue // header row
			}
			return nil, nil, fmt.Errorf("csv: non-numeric value at line %d", lineNo+1)
		}
		if len(row) < 2 {
			return nil, nil, fmt.Errorf("csv: need at least one feature column plus y, got %d columns", len(row))
		}
		X = append(X, row[:len(row)-1])
		y = append(y, row[len(row)-1])
	}
	if len(X) == 0 {
		return nil, nil, fmt.Errorf("csv: no data rows found in %s", path)
	}
	return X, y, nil
}

func syntheticDataset(name string) ([][]float64, []float64, error) {
	const n = 100
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := -5.0 + 10.0*float64(i)/float64(n-1)
		X[i] = []float64{x}
		switch name {
		case "quadratic":
			y[i] = x*x - 2*x + 1
		case "linear":
			y[i] = 3*x + 2
		case "sine":
			y[i] = math.Sin(x) + 0.5*x
		default:
			return nil, nil, fmt.Errorf("unknown built-in dataset %q (want quadratic, linear, or sine)", name)
		}
	}
	return X, y, nil
}
