// Command cfrstat ingests eCFR title XML, computes per-section text metrics
// and rolls them up by agency and hierarchy level.
//
// Usage:
//
//	cfrstat agencies load
//	cfrstat ingest --title 7 --date 2024-01-01
//	cfrstat compute --title 7 --start 2024-01-01 --end 2024-01-01
//	cfrstat rollup --metric word_count --level part --agency USDA --start 2024-01-01 --end 2024-01-01
//	cfrstat serve
package main

import (
	"os"

	"github.com/roach88/cfrstat/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
