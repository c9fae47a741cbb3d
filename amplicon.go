// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// amplicon runs a QIIME 2 16S/ITS amplicon analysis over a folder of
// Illumina FASTQ files and summarizes the resulting taxonomic profiles
// as tables and per-sample pie charts.
//
// The pipeline imports the reads from a generated manifest, denoises them
// with DADA2, classifies the representative sequences with the provided
// trained classifier and collapses the feature table to genus, family and
// phylum level. Any failing QIIME 2 command terminates the run.
package main

import (
	"log"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/fatih/color"

	"github.com/kortschak/amplicon/pipeline"
)

type args struct {
	SampleFolder string `arg:"--sample-folder,required" help:"path to folder containing sample FASTQ files"`
	MetadataFile string `arg:"--metadata-file,required" help:"path to sample metadata (mapping) file"`
	Database     string `arg:"--database,required" help:"path to trained QIIME 2 classifier"`
	OutputDir    string `arg:"--output-dir,required" help:"path to output directory"`
	PairedEnd    bool   `arg:"--paired-end" help:"use paired-end reads instead of single-end"`
	CountReads   bool   `arg:"--count-reads" help:"write a raw read inventory of the input FASTQ files"`
	Qiime        string `arg:"--qiime" help:"path to qiime if not in $PATH"`
	BIOM         string `arg:"--biom" help:"path to biom if not in $PATH"`
}

func (args) Description() string {
	return "QIIME 2 based 16S/ITS amplicon analysis pipeline"
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg := pipeline.Config{
		SampleFolder: a.SampleFolder,
		MetadataFile: a.MetadataFile,
		Database:     a.Database,
		OutputDir:    a.OutputDir,
		PairedEnd:    a.PairedEnd,
		CountReads:   a.CountReads,
		Qiime:        a.Qiime,
		BIOM:         a.BIOM,
	}
	results, err := pipeline.Run(cfg, nil)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	var failed int
	for _, r := range results {
		switch r.Status {
		case pipeline.Processed:
			color.Green("%v", r)
		case pipeline.Skipped:
			color.Yellow("%v", r)
		case pipeline.Failed:
			failed++
			color.Red("%v", r)
		}
	}
	if failed != 0 {
		log.Printf("analysis completed with %d failed stages", failed)
		os.Exit(1)
	}
	log.Printf("analysis complete: pie charts and summaries saved in %q", cfg.OutputDir)
}
