// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pie

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlicesFewTaxa(t *testing.T) {
	got := Slices(
		[]string{"g__A", "g__B", "g__C", "g__D", "g__E"},
		[]float64{10, 0, 30, math.NaN(), 10},
	)
	want := []Slice{
		{Taxon: "g__C", Value: 30, Percent: 60},
		{Taxon: "g__A", Value: 10, Percent: 20},
		{Taxon: "g__E", Value: 10, Percent: 20},
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Taxon, got[i].Taxon)
		assert.Equal(t, want[i].Value, got[i].Value)
		assert.InDelta(t, want[i].Percent, got[i].Percent, 1e-9)
	}
}

func TestSlicesOther(t *testing.T) {
	const n = 20
	taxa := make([]string, n)
	values := make([]float64, n)
	for i := range taxa {
		taxa[i] = fmt.Sprintf("g__%02d", i)
		values[i] = float64(i + 1)
	}

	got := Slices(taxa, values)
	require.Len(t, got, Top+1)
	assert.Equal(t, "g__19", got[0].Taxon)
	assert.Equal(t, "g__05", got[Top-1].Taxon)

	// Ranks beyond Top hold values 1 to 5.
	other := got[Top]
	assert.Equal(t, Other, other.Taxon)
	assert.Equal(t, 15.0, other.Value)

	var sum float64
	for _, s := range got {
		sum += s.Percent
	}
	assert.InDelta(t, 100, sum, 1e-9)
	assert.InDelta(t, 15.0/210*100, other.Percent, 1e-9)
}

func TestSlicesExactlyTop(t *testing.T) {
	taxa := make([]string, Top)
	values := make([]float64, Top)
	for i := range taxa {
		taxa[i] = fmt.Sprint(i)
		values[i] = 1
	}
	got := Slices(taxa, values)
	require.Len(t, got, Top)
	for _, s := range got {
		assert.NotEqual(t, Other, s.Taxon)
	}
}

func TestSlicesEmpty(t *testing.T) {
	assert.Empty(t, Slices([]string{"g__A"}, []float64{0}))
	assert.Empty(t, Slices(nil, nil))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Taxonomic Composition of S1", Title("S1"))
	assert.Equal(t, "S1_pie_chart.png", FileName("S1"))
}

func TestShortName(t *testing.T) {
	for _, test := range []struct {
		in, want string
	}{
		{in: "d__Bacteria;p__Firmicutes;c__Clostridia;o__Oscillospirales;f__Ruminococcaceae;g__Faecalibacterium", want: "g__Faecalibacterium"},
		{in: "d__Bacteria;p__Firmicutes;__;__", want: "p__Firmicutes"},
		{in: "k__Bacteria; p__Proteobacteria; g__", want: "p__Proteobacteria"},
		{in: "Unassigned", want: "Unassigned"},
		{in: Other, want: Other},
	} {
		assert.Equal(t, test.want, shortName(test.in))
	}
}

func TestWedge(t *testing.T) {
	w := &wedge{Slice: Slice{Taxon: "d__Bacteria;g__Prevotella", Value: 3, Percent: 12.345}, length: 123450}
	assert.Equal(t, "g__Prevotella (12.3%)", w.Name())
	assert.Equal(t, 0, w.Start())
	assert.Equal(t, w.Len(), w.End())
	assert.Nil(t, w.Location())
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName("S1"))
	s := Slices([]string{"g__A", "g__B", "g__C"}, []float64{5, 3, 2})
	require.NoError(t, Render(path, Title("S1"), s))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Size())
}

func TestRenderEmpty(t *testing.T) {
	err := Render(filepath.Join(t.TempDir(), "x.png"), "x", nil)
	assert.Equal(t, ErrEmpty, err)
}
