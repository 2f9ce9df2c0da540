package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/kgharvest/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		numTerms       = flag.Int("terms", cfg.NumTerms, "number of search terms to generate")
		links          = flag.Int("links", cfg.LinksPerTerm, "triples per term")
		sharedChance   = flag.Float64("shared-chance", cfg.SharedNodeChance, "probability of linking to a resource another term links to")
		noiseChance    = flag.Float64("noise-chance", cfg.NoiseChance, "probability of linking to a day, year or template page")
		externalChance = flag.Float64("external-chance", cfg.ExternalChance, "probability of linking outside the resource namespace")
		prefix         = flag.String("prefix", cfg.ResourcePrefix, "resource IRI prefix")
		seed           = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir      = flag.String("output-dir", "seed-data", "directory to write terms.csv and fixture.json")
		writeStdout    = flag.Bool("stdout", false, "write the fixture to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumTerms:         *numTerms,
		LinksPerTerm:     *links,
		SharedNodeChance: clampProbability(*sharedChance),
		NoiseChance:      clampProbability(*noiseChance),
		ExternalChance:   clampProbability(*externalChance),
		ResourcePrefix:   *prefix,
		Seed:             *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset.Fixture); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write fixture to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d terms into %s\n", len(dataset.Terms), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
