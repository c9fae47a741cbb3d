// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package summary reshapes tables exported from QIIME 2 artifacts into
// per-sample summaries.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// denoisingStats is a row of the DADA2 denoising statistics table. Other
// columns of the table are ignored.
type denoisingStats struct {
	SampleID string `csv:"sample-id"`
	Input    string `csv:"input"`
	Filtered string `csv:"filtered"`
}

// BasicInfo is a row of the basic information summary.
type BasicInfo struct {
	SampleID string `csv:"Sample ID"`
	Reads    string `csv:"Total Reads"`
	Retained string `csv:"Total Reads Retained"`
}

// ReadStats returns the basic information held in an exported DADA2
// denoising statistics table. Values are passed through unaltered.
func ReadStats(r io.Reader) ([]BasicInfo, error) {
	recs, err := directiveSkipper{newTSVReader(r)}.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	err = requireColumns(recs[0], "sample-id", "input", "filtered")
	if err != nil {
		return nil, err
	}
	var stats []*denoisingStats
	err = gocsv.UnmarshalCSV(&records{recs: recs}, &stats)
	if err != nil {
		return nil, err
	}
	info := make([]BasicInfo, len(stats))
	for i, s := range stats {
		info[i] = BasicInfo{SampleID: s.SampleID, Reads: s.Input, Retained: s.Filtered}
	}
	return info, nil
}

// WriteBasicInfo writes info to w as a tab separated table.
func WriteBasicInfo(w io.Writer, info []BasicInfo) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	sw := gocsv.NewSafeCSVWriter(cw)
	err := gocsv.MarshalCSV(&info, sw)
	if err != nil {
		return err
	}
	sw.Flush()
	return sw.Error()
}

// BasicInfoFile reads the denoising statistics table at src and writes
// the basic information summary to dst.
func BasicInfoFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := ReadStats(in)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	err = WriteBasicInfo(out, info)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

// directiveSkipper drops QIIME metadata directive rows, for example
// the #q2:types row that follows the header of exported metadata.
type directiveSkipper struct {
	r *csv.Reader
}

func (d directiveSkipper) Read() ([]string, error) {
	for {
		rec, err := d.r.Read()
		if err != nil {
			return nil, err
		}
		if !isDirective(rec) {
			return rec, nil
		}
	}
}

func (d directiveSkipper) ReadAll() ([][]string, error) {
	var recs [][]string
	for {
		rec, err := d.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

func isDirective(rec []string) bool {
	return len(rec) != 0 && strings.HasPrefix(rec[0], "#q2:")
}

// requireColumns returns an error if any of the named columns is absent
// from hdr.
func requireColumns(hdr []string, names ...string) error {
	have := make(map[string]bool, len(hdr))
	for _, h := range hdr {
		have[h] = true
	}
	var missing []string
	for _, n := range names {
		if !have[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("summary: missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// records is a gocsv.CSVReader over already read records.
type records struct {
	recs [][]string
}

func (r *records) Read() ([]string, error) {
	if len(r.recs) == 0 {
		return nil, io.EOF
	}
	rec := r.recs[0]
	r.recs = r.recs[1:]
	return rec, nil
}

func (r *records) ReadAll() ([][]string, error) {
	recs := r.recs
	r.recs = nil
	return recs, nil
}
