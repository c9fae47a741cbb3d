// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// manifest writes a QIIME 2 FASTQ manifest for a folder of Illumina
// named read files without running the analysis.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/kortschak/amplicon/inventory"
	"github.com/kortschak/amplicon/manifest"
)

var (
	dir    = flag.String("dir", "", "specifies the folder of FASTQ files (required)")
	paired = flag.Bool("paired-end", false, "write paired-end rows")
	count  = flag.Bool("count", false, "write read counts for each manifest file to stdout")
)

func main() {
	flag.Parse()
	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	path, rows, unmatched, err := manifest.Build(*dir, *paired)
	if err != nil {
		log.Fatalf("failed to build manifest: %v", err)
	}
	for _, u := range unmatched {
		log.Printf("omitted %v", u)
	}
	log.Printf("wrote %d rows to %q", len(rows), path)

	if !*count {
		return
	}
	counts, err := inventory.Take(rows)
	if err != nil {
		log.Fatalf("failed to count reads: %v", err)
	}
	err = inventory.Write(os.Stdout, counts)
	if err != nil {
		log.Fatalf("failed to write counts: %v", err)
	}
}
