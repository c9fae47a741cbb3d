// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inventory counts the raw reads held in manifest FASTQ files.
package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/gocarina/gocsv"
	"github.com/klauspost/pgzip"

	"github.com/kortschak/amplicon/manifest"
)

// FileName is the name of the inventory table written to the output directory.
const FileName = "read_inventory.tsv"

// Count is the number of reads in a manifest file.
type Count struct {
	Sample    string `csv:"sample-id"`
	Direction string `csv:"direction"`
	File      string `csv:"file"`
	Reads     int    `csv:"reads"`
}

// CountReads returns the number of FASTQ records read from r.
func CountReads(r io.Reader) (int, error) {
	var n int
	sc := seqio.NewScanner(fastq.NewReader(r, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger)))
	for sc.Next() {
		n++
	}
	return n, sc.Error()
}

// CountFile returns the number of reads in the named gzipped FASTQ file.
func CountFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	defer gz.Close()
	n, err := CountReads(gz)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Take returns the read counts for every manifest row.
func Take(rows []manifest.Row) ([]Count, error) {
	counts := make([]Count, 0, len(rows))
	for _, r := range rows {
		n, err := CountFile(r.Path)
		if err != nil {
			return nil, err
		}
		counts = append(counts, Count{
			Sample:    r.Sample,
			Direction: r.Direction.String(),
			File:      filepath.Base(r.Path),
			Reads:     n,
		})
	}
	return counts, nil
}

// Write writes counts to w as a tab separated table.
func Write(w io.Writer, counts []Count) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	sw := gocsv.NewSafeCSVWriter(cw)
	err := gocsv.MarshalCSV(&counts, sw)
	if err != nil {
		return err
	}
	sw.Flush()
	return sw.Error()
}

// WriteFile writes counts to the named file.
func WriteFile(path string, counts []Count) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = Write(f, counts)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
