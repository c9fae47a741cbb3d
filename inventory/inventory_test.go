// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inventory

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/amplicon/manifest"
)

const reads = `@read1
ACGTACGTAC
+
IIIIIIIIII
@read2
TTGACCA
+
IIIIIII
@read3
GGGCCCAAAT
+
IIIIIIIIII
`

func writeGzip(t *testing.T, path, data string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestCountReads(t *testing.T) {
	n, err := CountReads(strings.NewReader(reads))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountReads(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountFileNotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A_R1_001.fastq.gz")
	require.NoError(t, os.WriteFile(path, []byte(reads), 0o644))
	_, err := CountFile(path)
	assert.Error(t, err)
}

func TestTakeAndWrite(t *testing.T) {
	dir := t.TempDir()
	fwd := filepath.Join(dir, "A_R1_001.fastq.gz")
	rev := filepath.Join(dir, "A_R2_001.fastq.gz")
	writeGzip(t, fwd, reads)
	writeGzip(t, rev, reads[:strings.Index(reads, "@read3")])

	counts, err := Take([]manifest.Row{
		{Sample: "A", Path: fwd, Direction: manifest.Forward},
		{Sample: "A", Path: rev, Direction: manifest.Reverse},
	})
	require.NoError(t, err)
	assert.Equal(t, []Count{
		{Sample: "A", Direction: "forward", File: "A_R1_001.fastq.gz", Reads: 3},
		{Sample: "A", Direction: "reverse", File: "A_R2_001.fastq.gz", Reads: 2},
	}, counts)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, counts))
	assert.Equal(t, "sample-id\tdirection\tfile\treads\n"+
		"A\tforward\tA_R1_001.fastq.gz\t3\n"+
		"A\treverse\tA_R2_001.fastq.gz\t2\n", buf.String())
}
