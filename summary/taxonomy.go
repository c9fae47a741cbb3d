// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package summary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Level is a taxonomic rank used to collapse a feature table.
type Level struct {
	Depth int
	Name  string
}

// Levels are the taxonomic ranks summarized by the pipeline in the order
// they are processed.
var Levels = []Level{
	{Depth: 6, Name: "Genus"},
	{Depth: 5, Name: "Family"},
	{Depth: 3, Name: "Phylum"},
}

// ErrNoSamples is returned when a feature table has no sample columns.
var ErrNoSamples = errors.New("summary: no sample columns in table")

// Table is a feature table with taxa as rows and samples as columns.
type Table struct {
	// ID is the name of the taxon label column.
	ID string

	Taxa    []string
	Samples []string

	// Counts holds the abundance of each taxon in each sample
	// indexed by sample and then taxon. Missing values are NaN.
	Counts [][]float64
}

// ReadTable reads a tab separated feature table as produced by biom
// convert. Leading "# " comment lines are skipped and a leading '#' on
// the header is removed, so the "#OTU ID" header names the id column.
// QIIME #q2: directive rows are skipped.
func ReadTable(r io.Reader) (*Table, error) {
	recs, err := directiveSkipper{newTSVReader(r)}.ReadAll()
	if err != nil {
		return nil, err
	}
	for len(recs) != 0 && isComment(recs[0]) {
		recs = recs[1:]
	}
	if len(recs) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	hdr := recs[0]
	if len(hdr) < 2 {
		return nil, ErrNoSamples
	}

	t := &Table{
		ID:      strings.TrimPrefix(hdr[0], "#"),
		Samples: append([]string(nil), hdr[1:]...),
		Counts:  make([][]float64, len(hdr)-1),
	}
	for i, rec := range recs[1:] {
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		if len(rec) > len(hdr) {
			return nil, fmt.Errorf("summary: line %d: too many fields: %d > %d", i+2, len(rec), len(hdr))
		}
		t.Taxa = append(t.Taxa, rec[0])
		for j := range t.Samples {
			v := math.NaN()
			if j+1 < len(rec) && strings.TrimSpace(rec[j+1]) != "" {
				v, err = strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
				if err != nil {
					return nil, fmt.Errorf("summary: line %d: %w", i+2, err)
				}
			}
			t.Counts[j] = append(t.Counts[j], v)
		}
	}
	return t, nil
}

func isComment(rec []string) bool {
	return len(rec) != 0 && strings.HasPrefix(rec[0], "# ")
}

// ReadTableFile reads the feature table in the named file.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

// Proportions returns the abundance of each taxon as a percentage of
// its sample's total, indexed by sample and then taxon. Missing counts
// contribute zero. A sample with a zero total has all proportions zero.
func (t *Table) Proportions() [][]float64 {
	p := make([][]float64, len(t.Counts))
	for i, c := range t.Counts {
		col := make([]float64, len(c))
		for j, v := range c {
			if !math.IsNaN(v) {
				col[j] = v
			}
		}
		sum := floats.Sum(col)
		if sum != 0 {
			floats.Scale(100/sum, col)
		}
		p[i] = col
	}
	return p
}

// WriteSummary writes t to w as a tab separated table holding the taxon
// labels, the counts for each sample and then each sample's proportions.
func WriteSummary(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	hdr := make([]string, 0, 1+2*len(t.Samples))
	hdr = append(hdr, t.ID)
	hdr = append(hdr, t.Samples...)
	for _, s := range t.Samples {
		hdr = append(hdr, s+" (%)")
	}
	err := cw.Write(hdr)
	if err != nil {
		return err
	}

	p := t.Proportions()
	row := make([]string, len(hdr))
	for i, taxon := range t.Taxa {
		row = row[:0]
		row = append(row, taxon)
		for _, c := range t.Counts {
			row = append(row, formatFloat(c[i]))
		}
		for _, c := range p {
			row = append(row, formatFloat(c[i]))
		}
		err = cw.Write(row)
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SummaryFile reads the feature table at src and writes its summary
// to dst. The table is returned for further use.
func SummaryFile(dst, src string) (*Table, error) {
	t, err := ReadTableFile(src)
	if err != nil {
		return nil, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	err = WriteSummary(out, t)
	if err != nil {
		out.Close()
		return nil, err
	}
	return t, out.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
