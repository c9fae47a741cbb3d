// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qiime provides interaction with the QIIME 2 microbiome toolchain
// and the biom table utility.
package qiime

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/biogo/external"
	"github.com/fatih/color"
)

var ErrMissingRequired = errors.New("qiime: missing required argument")

// Import defines parameters for qiime tools import of a FASTQ manifest.
type Import struct {
	// Usage: qiime tools import --type TYPE --input-path PATH --input-format FORMAT --output-path PATH
	//
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}tools{{split}}import"` // qiime tools import

	Manifest string `buildarg:"--input-path{{split}}{{.}}"` // --input-path: manifest file

	// Paired selects the paired-end semantic type and manifest format.
	Paired bool `buildarg:"--type{{split}}{{if .}}SampleData[PairedEndSequencesWithQuality]{{else}}SampleData[SequencesWithQuality]{{end}}{{split}}--input-format{{split}}{{if .}}PairedEndFastqManifestPhred33{{else}}SingleEndFastqManifestPhred33{{end}}"`

	Output string `buildarg:"--output-path{{split}}{{.}}"` // --output-path: demultiplexed artifact
}

// BuildCommand returns an exec.Cmd built from the parameters in i.
func (i Import) BuildCommand() (*exec.Cmd, error) {
	if i.Manifest == "" || i.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(i)
}

// DenoisePaired defines parameters for qiime dada2 denoise-paired.
type DenoisePaired struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}dada2{{split}}denoise-paired"` // qiime dada2 denoise-paired

	Demultiplexed string `buildarg:"--i-demultiplexed-seqs{{split}}{{.}}"` // --i-demultiplexed-seqs

	TruncLenF int `buildarg:"--p-trunc-len-f{{split}}{{.}}"` // --p-trunc-len-f: forward truncation position
	TruncLenR int `buildarg:"--p-trunc-len-r{{split}}{{.}}"` // --p-trunc-len-r: reverse truncation position

	Table   string `buildarg:"--o-table{{split}}{{.}}"`                    // --o-table
	RepSeqs string `buildarg:"--o-representative-sequences{{split}}{{.}}"` // --o-representative-sequences
	Stats   string `buildarg:"--o-denoising-stats{{split}}{{.}}"`          // --o-denoising-stats
}

// BuildCommand returns an exec.Cmd built from the parameters in d.
func (d DenoisePaired) BuildCommand() (*exec.Cmd, error) {
	if d.Demultiplexed == "" || d.Table == "" || d.RepSeqs == "" || d.Stats == "" {
		return nil, ErrMissingRequired
	}
	return command(d)
}

// DenoiseSingle defines parameters for qiime dada2 denoise-single.
type DenoiseSingle struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}dada2{{split}}denoise-single"` // qiime dada2 denoise-single

	Demultiplexed string `buildarg:"--i-demultiplexed-seqs{{split}}{{.}}"` // --i-demultiplexed-seqs

	TruncLen int `buildarg:"--p-trunc-len{{split}}{{.}}"` // --p-trunc-len: truncation position

	Table   string `buildarg:"--o-table{{split}}{{.}}"`                    // --o-table
	RepSeqs string `buildarg:"--o-representative-sequences{{split}}{{.}}"` // --o-representative-sequences
	Stats   string `buildarg:"--o-denoising-stats{{split}}{{.}}"`          // --o-denoising-stats
}

// BuildCommand returns an exec.Cmd built from the parameters in d.
func (d DenoiseSingle) BuildCommand() (*exec.Cmd, error) {
	if d.Demultiplexed == "" || d.Table == "" || d.RepSeqs == "" || d.Stats == "" {
		return nil, ErrMissingRequired
	}
	return command(d)
}

// Classify defines parameters for qiime feature-classifier classify-sklearn.
type Classify struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}feature-classifier{{split}}classify-sklearn"`

	Classifier string `buildarg:"--i-classifier{{split}}{{.}}"`     // --i-classifier: trained classifier artifact
	Reads      string `buildarg:"--i-reads{{split}}{{.}}"`          // --i-reads: representative sequences
	Output     string `buildarg:"--o-classification{{split}}{{.}}"` // --o-classification
}

// BuildCommand returns an exec.Cmd built from the parameters in c.
func (c Classify) BuildCommand() (*exec.Cmd, error) {
	if c.Classifier == "" || c.Reads == "" || c.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(c)
}

// Summarize defines parameters for qiime feature-table summarize.
type Summarize struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}feature-table{{split}}summarize"`

	Table    string `buildarg:"--i-table{{split}}{{.}}"`                              // --i-table
	Output   string `buildarg:"--o-visualization{{split}}{{.}}"`                      // --o-visualization
	Metadata string `buildarg:"{{if .}}--m-sample-metadata-file{{split}}{{.}}{{end}}"` // --m-sample-metadata-file
}

// BuildCommand returns an exec.Cmd built from the parameters in s.
func (s Summarize) BuildCommand() (*exec.Cmd, error) {
	if s.Table == "" || s.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(s)
}

// Collapse defines parameters for qiime taxa collapse.
type Collapse struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}taxa{{split}}collapse"`

	Table    string `buildarg:"--i-table{{split}}{{.}}"`           // --i-table
	Taxonomy string `buildarg:"--i-taxonomy{{split}}{{.}}"`        // --i-taxonomy
	Level    int    `buildarg:"--p-level{{split}}{{.}}"`           // --p-level: taxonomic rank depth
	Output   string `buildarg:"--o-collapsed-table{{split}}{{.}}"` // --o-collapsed-table
}

// BuildCommand returns an exec.Cmd built from the parameters in c.
func (c Collapse) BuildCommand() (*exec.Cmd, error) {
	if c.Table == "" || c.Taxonomy == "" || c.Output == "" {
		return nil, ErrMissingRequired
	}
	if c.Level < 1 {
		return nil, fmt.Errorf("qiime: invalid collapse level: %d", c.Level)
	}
	return command(c)
}

// Export defines parameters for qiime tools export.
type Export struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}{{split}}tools{{split}}export"`

	Input  string `buildarg:"--input-path{{split}}{{.}}"`  // --input-path: artifact
	Output string `buildarg:"--output-path{{split}}{{.}}"` // --output-path: directory
}

// BuildCommand returns an exec.Cmd built from the parameters in e.
func (e Export) BuildCommand() (*exec.Cmd, error) {
	if e.Input == "" || e.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(e)
}

// BIOMConvert defines parameters for converting an exported BIOM table
// to the classic tab separated representation.
type BIOMConvert struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}biom{{end}}{{split}}convert"` // biom convert

	Input  string `buildarg:"-i{{split}}{{.}}"`       // -i: feature-table.biom
	Output string `buildarg:"-o{{split}}{{.}}"`       // -o: tsv output
	TSV    bool   `buildarg:"{{if .}}--to-tsv{{end}}"` // --to-tsv
}

// BuildCommand returns an exec.Cmd built from the parameters in b.
func (b BIOMConvert) BuildCommand() (*exec.Cmd, error) {
	if b.Input == "" || b.Output == "" {
		return nil, ErrMissingRequired
	}
	return command(b)
}

func command(cb external.CommandBuilder) (*exec.Cmd, error) {
	cl, err := external.Build(cb)
	if err != nil {
		return nil, err
	}
	return exec.Command(cl[0], cl[1:]...), nil
}

// Run echoes cmd to w and then runs it to completion. A non-zero exit
// status is returned as an error.
func Run(cmd *exec.Cmd, w io.Writer) error {
	if w != nil {
		color.New(color.FgCyan).Fprintf(w, "Running: %s\n", strings.Join(cmd.Args, " "))
	}
	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("qiime: %s failed: %w", strings.Join(cmd.Args, " "), err)
	}
	return nil
}
