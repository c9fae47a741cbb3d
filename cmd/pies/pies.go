// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// pies renders a taxonomic composition pie chart for each sample of
// a tab separated feature table exported from QIIME 2 via biom convert.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kortschak/amplicon/pie"
	"github.com/kortschak/amplicon/summary"
)

var (
	in     string
	out    string
	format string
)

func init() {
	flag.StringVar(&in, "in", "", "file name of a feature table to be processed.")
	flag.StringVar(&out, "out", "pie_charts", "specifies the output directory.")
	flag.StringVar(&format, "format", "png", "specifies the output format: eps, jpg, jpeg, pdf, png, svg, and tiff.")
	help := flag.Bool("help", false, "output this usage message.")
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if in == "" {
		flag.Usage()
		os.Exit(1)
	}
	for _, s := range []string{"eps", "jpg", "jpeg", "pdf", "png", "svg", "tiff"} {
		if format == s {
			return
		}
	}
	flag.Usage()
	os.Exit(1)
}

func main() {
	t, err := summary.ReadTableFile(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = os.MkdirAll(out, 0o755)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for i, s := range t.Samples {
		name := strings.TrimSuffix(pie.FileName(s), ".png") + "." + format
		err = pie.Render(filepath.Join(out, name), pie.Title(s), pie.Slices(t.Taxa, t.Counts[i]))
		if err == pie.ErrEmpty {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", s, err)
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
