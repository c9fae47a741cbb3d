// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pie renders per-sample taxonomic composition pie charts.
package pie

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/biogo/biogo/feat"
	"github.com/biogo/graphics/rings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	// Top is the number of most abundant taxa given their own slice.
	Top = 15

	// Other is the label of the slice holding taxa ranked beyond Top.
	Other = "Other"
)

// ErrEmpty is returned when a sample has no positive abundances.
var ErrEmpty = errors.New("pie: no taxa with positive abundance")

// Slice is a pie chart slice.
type Slice struct {
	Taxon string
	Value float64

	// Percent is Value as a percentage of the chart total.
	Percent float64
}

// Slices returns the pie chart slices for a sample with the given
// taxon abundances. Missing (NaN) and non-positive values are dropped,
// the remainder ranked by decreasing abundance with ties kept in input
// order. Taxa beyond the Top most abundant are folded into a single
// Other slice holding their sum.
func Slices(taxa []string, values []float64) []Slice {
	if len(taxa) != len(values) {
		panic("pie: taxon and value length mismatch")
	}
	var s []Slice
	for i, v := range values {
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		s = append(s, Slice{Taxon: taxa[i], Value: v})
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Value > s[j].Value })

	if len(s) > Top {
		var rest float64
		for _, e := range s[Top:] {
			rest += e.Value
		}
		s = append(s[:Top:Top], Slice{Taxon: Other, Value: rest})
	}

	var total float64
	for _, e := range s {
		total += e.Value
	}
	for i := range s {
		s[i].Percent = s[i].Value / total * 100
	}
	return s
}

// Title returns the chart title for the named sample.
func Title(sample string) string {
	return "Taxonomic Composition of " + sample
}

// FileName returns the chart file name for the named sample.
func FileName(sample string) string {
	return sample + "_pie_chart.png"
}

// Render renders slices as a labelled pie chart to the named file.
// The image format is determined by the file extension.
func Render(path, title string, slices []Slice) error {
	if len(slices) == 0 {
		return ErrEmpty
	}

	p, err := plot.New()
	if err != nil {
		return err
	}

	const diameter = 14 * vg.Centimeter
	wedges, err := chart(slices, diameter)
	if err != nil {
		return err
	}
	p.Add(wedges...)
	p.HideAxes()

	font, err := vg.MakeFont("Helvetica", 14)
	if err != nil {
		return err
	}
	p.Title.Text = title
	p.Title.TextStyle = draw.TextStyle{Color: color.Gray{0}, Font: font}

	return p.Save(20*vg.Centimeter, 20*vg.Centimeter, path)
}

func chart(slices []Slice, diameter vg.Length) ([]plot.Plotter, error) {
	radius := diameter / 2

	// Relative sizes.
	const (
		label = 1.08
		text  = 0.035

		// resolution is the number of arc units per percent.
		resolution = 1e4
	)

	fs := make([]feat.Feature, len(slices))
	for i, s := range slices {
		fs[i] = &wedge{
			Slice:  s,
			length: max(1, int(math.Round(s.Percent*resolution))),
			color:  palette[i%len(palette)],
		}
	}

	sty := plotter.DefaultLineStyle
	sty.Width /= 2
	sty.Color = color.White

	// Slices run clockwise from twelve o'clock.
	b, err := rings.NewGappedBlocks(
		fs,
		rings.Arc{Theta: rings.Complete / 4 * rings.CounterClockwise, Phi: rings.Complete * rings.Clockwise},
		0, radius, 0,
	)
	if err != nil {
		return nil, err
	}
	b.LineStyle = sty

	font, err := vg.MakeFont("Helvetica", radius*text)
	if err != nil {
		return nil, err
	}
	lb, err := rings.NewLabels(b, radius*label, rings.NameLabels(b.Set)...)
	if err != nil {
		return nil, fmt.Errorf("labels: %v", err)
	}
	lb.TextStyle = draw.TextStyle{Color: color.Gray16{0}, Font: font}

	return []plot.Plotter{b, lb}, nil
}

// wedge is a pie slice rendered as an arc whose length is proportional
// to its percentage.
type wedge struct {
	Slice
	length int
	color  color.Color
}

func (w *wedge) Start() int             { return 0 }
func (w *wedge) End() int               { return w.length }
func (w *wedge) Len() int               { return w.length }
func (w *wedge) Name() string           { return fmt.Sprintf("%s (%.1f%%)", shortName(w.Taxon), w.Percent) }
func (w *wedge) Description() string    { return "taxon abundance" }
func (w *wedge) Location() feat.Feature { return nil }
func (w *wedge) FillColor() color.Color { return w.color }

// shortName returns the most specific named rank of a QIIME taxonomy
// string, for example "g__Bacteroides" for
// "d__Bacteria;p__Bacteroidota;...;g__Bacteroides". Labels without
// named ranks are returned unaltered.
func shortName(taxon string) string {
	ranks := strings.Split(taxon, ";")
	for i := len(ranks) - 1; i >= 0; i-- {
		r := strings.TrimSpace(ranks[i])
		if r == "" || r == "__" || strings.HasSuffix(r, "__") {
			continue
		}
		return r
	}
	return taxon
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// palette holds slice fill colors, enough for Top slices and Other.
var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	color.RGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
	color.RGBA{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff},
	color.RGBA{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
	color.RGBA{R: 0xae, G: 0xc7, B: 0xe8, A: 0xff},
	color.RGBA{R: 0xff, G: 0xbb, B: 0x78, A: 0xff},
	color.RGBA{R: 0x98, G: 0xdf, B: 0x8a, A: 0xff},
	color.RGBA{R: 0xff, G: 0x98, B: 0x96, A: 0xff},
	color.RGBA{R: 0xc5, G: 0xb0, B: 0xd5, A: 0xff},
	color.RGBA{R: 0xc4, G: 0x9c, B: 0x94, A: 0xff},
}
