// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package manifest builds QIIME 2 FASTQ manifests from a directory of
// Illumina-named read files.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

// Direction is the read direction of a FASTQ file.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		panic(fmt.Sprintf("manifest: invalid direction: %d", int(d)))
	}
}

// MarshalCSV returns the manifest representation of d.
func (d Direction) MarshalCSV() (string, error) {
	if d != Forward && d != Reverse {
		return "", fmt.Errorf("manifest: invalid direction: %d", int(d))
	}
	return d.String(), nil
}

const (
	// FileName is the name of the manifest written by Build.
	FileName = "manifest.csv"

	// Header is the manifest header line.
	Header = "sample-id,absolute-filepath,direction"

	suffix = ".fastq.gz"
)

// Row is a single manifest entry.
type Row struct {
	Sample    string    `csv:"sample-id"`
	Path      string    `csv:"absolute-filepath"`
	Direction Direction `csv:"direction"`
}

// Reads holds the read files available for a sample, indexed by Direction.
// Empty strings indicate a missing direction.
type Reads [2]string

// Samples maps sample ids to their read files.
type Samples map[string]*Reads

// Pair returns the samples described by the FASTQ file names in names,
// resolving each path relative to dir. Names are expected to carry the
// Illumina _R1_ or _R2_ marker, the sample id being the text before it.
// Other names are ignored.
func Pair(names []string, dir string) Samples {
	s := make(Samples)
	for _, n := range names {
		if !strings.HasSuffix(n, suffix) {
			continue
		}
		var (
			id string
			d  Direction
		)
		if i := strings.Index(n, "_R1_"); i >= 0 {
			id, d = n[:i], Forward
		} else if i := strings.Index(n, "_R2_"); i >= 0 {
			id, d = n[:i], Reverse
		} else {
			continue
		}
		r, ok := s[id]
		if !ok {
			r = &Reads{}
			s[id] = r
		}
		r[d] = filepath.Join(dir, n)
	}
	return s
}

// first returns the lexically first file name of r.
func (r *Reads) first() string {
	var n string
	for _, p := range r {
		if p == "" {
			continue
		}
		b := filepath.Base(p)
		if n == "" || b < n {
			n = b
		}
	}
	return n
}

// Unmatched describes a sample that could not be written to a manifest.
type Unmatched struct {
	Sample string
	Reason string
}

func (u Unmatched) String() string { return u.Sample + ": " + u.Reason }

// Rows returns the manifest rows for s in the order the samples' first
// files sort by name, the order of a sorted directory listing. In paired-end
// mode a sample yields a forward and reverse row when both files exist.
// Otherwise a sample yields its forward row. Samples that yield no rows
// are returned in unmatched.
func (s Samples) Rows(paired bool) (rows []Row, unmatched []Unmatched) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		fi, fj := s[ids[i]].first(), s[ids[j]].first()
		if fi != fj {
			return fi < fj
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		r := s[id]
		fwd, rev := r[Forward], r[Reverse]
		switch {
		case paired && fwd != "" && rev != "":
			rows = append(rows,
				Row{Sample: id, Path: fwd, Direction: Forward},
				Row{Sample: id, Path: rev, Direction: Reverse},
			)
		case paired && fwd == "":
			unmatched = append(unmatched, Unmatched{Sample: id, Reason: "no forward (_R1_) read file"})
		case paired:
			unmatched = append(unmatched, Unmatched{Sample: id, Reason: "no reverse (_R2_) read file"})
		case fwd != "":
			rows = append(rows, Row{Sample: id, Path: fwd, Direction: Forward})
		default:
			unmatched = append(unmatched, Unmatched{Sample: id, Reason: "no forward (_R1_) read file"})
		}
	}
	return rows, unmatched
}

// List returns the sorted names of FASTQ files in dir.
func List(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Build writes a manifest for the FASTQ files in dir to dir/manifest.csv
// and returns the path of the manifest and the rows written. Samples that
// could not be included are returned in unmatched.
func Build(dir string, paired bool) (path string, rows []Row, unmatched []Unmatched, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, nil, err
	}
	names, err := List(abs)
	if err != nil {
		return "", nil, nil, err
	}
	rows, unmatched = Pair(names, abs).Rows(paired)

	path = filepath.Join(abs, FileName)
	err = Write(path, rows)
	if err != nil {
		return "", nil, nil, err
	}
	return path, rows, unmatched, nil
}

// Write writes rows as a manifest to the named file.
func Write(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	sw := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	err = gocsv.MarshalCSV(&rows, sw)
	if err == nil {
		sw.Flush()
		err = sw.Error()
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
