package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cory-johannsen/dreamrealm/internal/importer"
	"github.com/cory-johannsen/dreamrealm/internal/importer/csvsource"
)

func main() {
	format := flag.String("format", "csv", "source format: csv")
	sourceDir := flag.String("source", "", "path to source data directory")
	outputDir := flag.String("output", "", "path to output content directory")
	flag.Parse()

	if *format == "" || *sourceDir == "" || *outputDir == "" {
		fmt.Fprintln(os.Stderr, "usage: import-content [-format <fmt>] -source <dir> -output <dir>")
		os.Exit(1)
	}

	var src importer.Source
	switch *format {
	case "csv":
		src = csvsource.NewSource()
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q (supported: csv)\n", *format)
		os.Exit(1)
	}

	start := time.Now()
	imp := importer.New(src)
	if err := imp.Run(*sourceDir, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("import complete in %s\n", time.Since(start).Round(time.Millisecond))
}
