package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/anvil-platform/vrequire/internal/module"
	"github.com/anvil-platform/vrequire/internal/resolver"
	"github.com/anvil-platform/vrequire/internal/semver"
)

func main() {
	var numResolutions int
	var numVersions int
	var depth int
	var concurrency int
	var resolvedComparator bool

	flag.IntVar(&numResolutions, "resolutions", 1000, "Number of resolutions to run")
	flag.IntVar(&numVersions, "versions", 50, "Installed versions of the package")
	flag.IntVar(&depth, "depth", 8, "Length of the requester chain")
	flag.IntVar(&concurrency, "concurrency", 16, "Concurrent resolutions")
	flag.BoolVar(&resolvedComparator, "resolved-comparator", false, "Resolve the comparator package on every resolution (exercises the bootstrap path)")
	flag.Parse()
	depth = max(1, depth)
	concurrency = max(1, concurrency)

	fs := afero.NewMemMapFs()
	chain, err := buildTree(fs, numVersions, depth)
	if err != nil {
		log.Fatalf("Error building tree: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := resolver.NewMetrics(reg)
	r := resolver.NewDefault(resolver.Options{
		Fs: fs,
		Loader: resolver.LoaderFunc(func(_ context.Context, dir, version string) (resolver.Exports, error) {
			if filepath.Base(dir) == "semver" {
				return semver.Library{}, nil
			}
			return version, nil
		}),
		Metrics: metrics,
	})
	if resolvedComparator {
		r.UseResolvedComparator(module.New("/tree/semver/index.js", module.WithFs(fs)))
	}

	fmt.Printf("Starting load test: %d resolutions, %d versions, chain depth %d, concurrency %d\n",
		numResolutions, numVersions, depth, concurrency)

	var wg sync.WaitGroup
	start := time.Now()
	latencies := make(chan time.Duration, numResolutions)
	jobs := make(chan int)

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				planStart := time.Now()
				res, err := r.Plan(context.Background(), chain, "left-pad")
				if err != nil {
					fmt.Printf("Error in resolution %d: %v\n", id, err)
					continue
				}
				latencies <- time.Since(planStart)
				if id == 0 {
					fmt.Printf("Selected %s (constraint %q, comparator %s)\n", res.Version, res.Combined, res.Comparator)
				}
			}
		}()
	}
	for i := 0; i < numResolutions; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(latencies)
	totalDuration := time.Since(start)

	var totalLatency time.Duration
	count := 0
	for l := range latencies {
		totalLatency += l
		count++
	}

	if count > 0 {
		avgLatency := totalLatency / time.Duration(count)
		fmt.Printf("Load test completed in %v. Avg resolution latency: %v\n", totalDuration, avgLatency)
	} else {
		fmt.Printf("Load test completed in %v. No resolutions succeeded.\n", totalDuration)
	}

	families, err := reg.Gather()
	if err != nil {
		log.Fatalf("Error gathering metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "vrequire_bootstrap_comparator_total" {
			fmt.Printf("Bootstrap resolutions: %v\n", mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

// buildTree installs numVersions versions of left-pad and a few of the
// comparator package, and returns a requester chain of the given depth in
// which every other module constrains left-pad.
func buildTree(fs afero.Fs, numVersions, depth int) (*module.File, error) {
	for i := 0; i < numVersions; i++ {
		if err := fs.MkdirAll(fmt.Sprintf("/tree/m0/%d.%d.0", i/10, i%10), 0o755); err != nil {
			return nil, err
		}
	}
	for _, v := range []string{"1.0.0", "1.4.2", "2.0.0"} {
		if err := fs.MkdirAll(filepath.Join("/tree/semver", v), 0o755); err != nil {
			return nil, err
		}
	}
	if err := afero.WriteFile(fs, "/tree/semver/package.json", []byte(`{"dependencies":{"semver":"~1"}}`), 0o644); err != nil {
		return nil, err
	}

	ids := make([]string, depth)
	for d := 0; d < depth; d++ {
		dir := fmt.Sprintf("/tree/m%d", d)
		manifest := `{"dependencies":{}}`
		if d%2 == 1 {
			manifest = fmt.Sprintf(`{"dependencies":{"left-pad":"<%d.0.0"}}`, max(1, numVersions/10-d/2))
		}
		if err := afero.WriteFile(fs, filepath.Join(dir, "package.json"), []byte(manifest), 0o644); err != nil {
			return nil, err
		}
		ids[d] = filepath.Join(dir, "index.js")
	}
	return module.Chain(ids, module.WithFs(fs)), nil
}
