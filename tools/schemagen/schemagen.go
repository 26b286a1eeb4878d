// Package main writes the JSON schemas of the licensecount configuration file
// and json report.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/licensecount/pkg/config"
	"github.com/Sumatoshi-tech/licensecount/pkg/report"
)

var outputDir string

func main() {
	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	reportSchema, err := report.Schema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report schema: %v\n", err)
		os.Exit(1)
	}

	schemas := map[string][]byte{
		"config": config.Schema(),
		"report": reportSchema,
	}

	for name, data := range schemas {
		if err := os.WriteFile(filepath.Join(outputDir, name+".json"), data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing schema for %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Printf("Generated schema for %s\n", name)
	}
}
