// Benchmark tool for load-testing the ICTServe evaluation pipeline.
//
// Usage:
//
//	go run cmd/benchmark/main.go -url http://localhost:8080 -module helpdesk -count 10000
//
// This tool:
//  1. Generates synthetic targets (tickets, loan requests or assets)
//  2. Sends each one to the evaluate endpoint with concurrent workers
//  3. Reports rule fire rates, action outcomes, latency and throughput
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Target mirrors the evaluate endpoint's target input.
type Target struct {
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Status         string         `json:"status,omitempty"`
	Priority       string         `json:"priority,omitempty"`
	Category       string         `json:"category,omitempty"`
	RequesterEmail string         `json:"requesterEmail,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// EvaluateRequest is the API request format.
type EvaluateRequest struct {
	Target Target `json:"target"`
	DryRun bool   `json:"dryRun,omitempty"`
}

// EvaluateResponse is the subset of the API response we care about.
type EvaluateResponse struct {
	ID       string `json:"id"`
	Matches  []any  `json:"matches"`
	Outcomes []struct {
		Status string `json:"status"`
	} `json:"outcomes"`
	Metadata struct {
		RulesEvaluated int   `json:"rulesEvaluated"`
		RulesFired     int   `json:"rulesFired"`
		TotalMs        int64 `json:"totalMs"`
	} `json:"metadata"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalProcessed int64
	TotalErrors    int64

	RulesEvaluated int64
	RulesFired     int64
	TargetsFired   int64 // targets where at least one rule fired

	OutcomesOK      int64
	OutcomesQueued  int64
	OutcomesSkipped int64
	OutcomesFailed  int64

	ProcessingTimeMs int64
}

var (
	priorities = []string{"low", "normal", "high", "urgent"}
	statuses   = []string{"open", "in_progress", "reopened"}
	categories = map[string][]string{
		"helpdesk": {"default", "security", "hardware", "software", "network"},
		"loans":    {"default", "laptop", "projector", "camera"},
		"assets":   {"default", "laptop", "server", "peripheral"},
	}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "ICTServe base URL")
	module := flag.String("module", "helpdesk", "Module to evaluate against (helpdesk, loans, assets)")
	count := flag.Int("count", 10000, "Number of targets to evaluate")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	dryRun := flag.Bool("dry-run", true, "Evaluate without persisting or dispatching")
	seed := flag.Int64("seed", 42, "Random seed for target generation")
	verbose := flag.Bool("verbose", false, "Print each evaluation result")
	flag.Parse()

	if _, ok := categories[*module]; !ok {
		fmt.Printf("ERROR: unknown module %q (expected helpdesk, loans or assets)\n", *module)
		os.Exit(1)
	}

	fmt.Println("ICTServe benchmark - evaluation pipeline load test")
	fmt.Println()
	fmt.Printf("URL:      %s\n", *baseURL)
	fmt.Printf("Module:   %s\n", *module)
	fmt.Printf("Targets:  %d\n", *count)
	fmt.Printf("Workers:  %d\n", *workers)
	fmt.Printf("Dry run:  %v\n", *dryRun)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: ICTServe not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure ICTServe is running:")
		fmt.Println("  go run cmd/ictserve/main.go")
		os.Exit(1)
	}
	fmt.Println("server is healthy")

	rng := rand.New(rand.NewSource(*seed))
	targets := make([]Target, *count)
	for i := range targets {
		targets[i] = generateTarget(rng, *module, i)
	}
	fmt.Printf("generated %d synthetic targets\n", len(targets))

	fmt.Printf("\nrunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(targets, *baseURL, *module, *dryRun, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func generateTarget(rng *rand.Rand, module string, i int) Target {
	cats := categories[module]

	t := Target{
		ID:             fmt.Sprintf("bench-%s-%06d", module, i),
		Title:          fmt.Sprintf("benchmark target %d", i),
		Status:         statuses[rng.Intn(len(statuses))],
		Priority:       priorities[rng.Intn(len(priorities))],
		Category:       cats[rng.Intn(len(cats))],
		RequesterEmail: fmt.Sprintf("user%d@agency.gov.my", rng.Intn(500)),
		Attributes:     map[string]any{},
	}

	switch module {
	case "helpdesk":
		t.Attributes["reopen_count"] = rng.Intn(5)
	case "loans":
		t.Attributes["total_value"] = float64(rng.Intn(50000))
		t.Attributes["duration_days"] = 1 + rng.Intn(90)
		t.Attributes["applicant_grade"] = 19 + rng.Intn(35)
	case "assets":
		t.Attributes["value"] = float64(rng.Intn(20000))
		t.Attributes["age_months"] = rng.Intn(72)
		t.Attributes["condition"] = []string{"good", "fair", "poor"}[rng.Intn(3)]
	}

	return t
}

func runBenchmark(targets []Target, baseURL, module string, dryRun bool, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Target, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for target := range work {
				start := time.Now()
				result, err := evaluateTarget(client, baseURL, module, target, dryRun)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", target.ID, err)
					}
					continue
				}

				atomic.AddInt64(&metrics.RulesEvaluated, int64(result.Metadata.RulesEvaluated))
				atomic.AddInt64(&metrics.RulesFired, int64(result.Metadata.RulesFired))
				if result.Metadata.RulesFired > 0 {
					atomic.AddInt64(&metrics.TargetsFired, 1)
				}

				for _, o := range result.Outcomes {
					switch o.Status {
					case "ok":
						atomic.AddInt64(&metrics.OutcomesOK, 1)
					case "queued":
						atomic.AddInt64(&metrics.OutcomesQueued, 1)
					case "skipped":
						atomic.AddInt64(&metrics.OutcomesSkipped, 1)
					case "failed":
						atomic.AddInt64(&metrics.OutcomesFailed, 1)
					}
				}

				if verbose {
					fmt.Printf("%-24s | %-8s | %-8s | fired %d/%d | %dms\n",
						target.ID,
						target.Priority,
						target.Category,
						result.Metadata.RulesFired,
						result.Metadata.RulesEvaluated,
						result.Metadata.TotalMs,
					)
				}
			}
		}()
	}

	for _, target := range targets {
		work <- target
	}
	close(work)

	wg.Wait()

	return metrics
}

func evaluateTarget(client *http.Client, baseURL, module string, target Target, dryRun bool) (*EvaluateResponse, error) {
	req := EvaluateRequest{
		Target: target,
		DryRun: dryRun,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/modules/"+module+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")
	fmt.Println()

	fmt.Println("  Evaluations")
	fmt.Printf("    Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("    Errors:           %d\n", m.TotalErrors)
	fmt.Printf("    Rules Evaluated:  %d\n", m.RulesEvaluated)
	fmt.Printf("    Rules Fired:      %d\n", m.RulesFired)
	if m.TotalProcessed > 0 {
		fireRate := float64(m.TargetsFired) / float64(m.TotalProcessed) * 100
		fmt.Printf("    Targets Fired:    %d (%.2f%%)\n", m.TargetsFired, fireRate)
	}

	totalOutcomes := m.OutcomesOK + m.OutcomesQueued + m.OutcomesSkipped + m.OutcomesFailed
	if totalOutcomes > 0 {
		fmt.Println("\n  Action Outcomes")
		fmt.Printf("    ok:       %d\n", m.OutcomesOK)
		fmt.Printf("    queued:   %d\n", m.OutcomesQueued)
		fmt.Printf("    skipped:  %d\n", m.OutcomesSkipped)
		fmt.Printf("    failed:   %d\n", m.OutcomesFailed)
	}

	fmt.Println("\n  Performance")
	fmt.Printf("    Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("    Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("    Throughput:       %.2f targets/sec\n", tps)
	}

	fmt.Println()
}
