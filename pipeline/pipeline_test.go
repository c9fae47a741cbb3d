// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsData = "sample-id\tinput\tfiltered\tdenoised\n" +
	"#q2:types\tnumeric\tnumeric\tnumeric\n" +
	"S1\t1000\t900\t850\n" +
	"S2\t2000\t1500\t1400\n"

const tableData = "# Constructed from biom file\n" +
	"#OTU ID\tS1\tS2\tS3\n" +
	"d__Bacteria;g__Bacteroides\t30\t1\t0\n" +
	"d__Bacteria;g__Prevotella\t10\t5\t0\n" +
	"d__Bacteria;g__Blautia\t60\t0\t0\n"

// toolchain is a stand-in for the QIIME 2 and biom executables that
// records the commands it is asked to run and writes the files the real
// tools would export.
type toolchain struct {
	// noBIOM lists the collapsed tables that export no BIOM table.
	noBIOM []string
	// fail is the subcommand that exits with an error.
	fail string

	calls [][]string
}

func (tc *toolchain) run(cmd *exec.Cmd) error {
	args := cmd.Args
	tc.calls = append(tc.calls, args)
	if tc.fail != "" && strings.Join(args[1:3], " ") == tc.fail {
		return errors.New("exit status 1")
	}
	switch {
	case args[0] == "biom":
		return os.WriteFile(flagValue(args, "-o"), []byte(tableData), 0o644)
	case args[1] == "tools" && args[2] == "export":
		in := flagValue(args, "--input-path")
		out := flagValue(args, "--output-path")
		err := os.MkdirAll(out, 0o755)
		if err != nil {
			return err
		}
		if strings.HasSuffix(in, "stats.qza") {
			return os.WriteFile(filepath.Join(out, "stats.tsv"), []byte(statsData), 0o644)
		}
		for _, n := range tc.noBIOM {
			if strings.HasSuffix(in, n) {
				return nil
			}
		}
		return os.WriteFile(filepath.Join(out, "feature-table.biom"), []byte("biom"), 0o644)
	}
	return nil
}

func flagValue(args []string, flag string) string {
	for i, a := range args[:len(args)-1] {
		if a == flag {
			return args[i+1]
		}
	}
	return ""
}

func (tc *toolchain) subcommands() []string {
	var s []string
	for _, c := range tc.calls {
		if c[0] == "biom" {
			s = append(s, "biom "+c[1])
			continue
		}
		s = append(s, c[1]+" "+c[2])
	}
	return s
}

func setup(t *testing.T, files ...string) Config {
	t.Helper()
	samples := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(samples, f), nil, 0o644))
	}
	return Config{
		SampleFolder: samples,
		MetadataFile: "metadata.tsv",
		Database:     "classifier.qza",
		OutputDir:    filepath.Join(t.TempDir(), "out"),
	}
}

func TestRun(t *testing.T) {
	cfg := setup(t, "S1_R1_001.fastq.gz", "S1_R2_001.fastq.gz", "S2_R1_001.fastq.gz")
	tc := &toolchain{noBIOM: []string{"collapsed-table-Family.qza"}}

	results, err := Run(cfg, tc.run)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"tools import",
		"dada2 denoise-single",
		"feature-classifier classify-sklearn",
		"feature-table summarize",
		"tools export",
		"taxa collapse", "tools export", "biom convert",
		"taxa collapse", "tools export",
		"taxa collapse", "tools export", "biom convert",
	}, tc.subcommands())

	assert.Equal(t, []string{"--p-trunc-len", "250"}, tc.calls[1][5:7])
	assert.Equal(t, "classifier.qza", flagValue(tc.calls[2], "--i-classifier"))
	assert.Equal(t, "metadata.tsv", flagValue(tc.calls[3], "--m-sample-metadata-file"))
	assert.Equal(t, "6", flagValue(tc.calls[5], "--p-level"))
	assert.Equal(t, "5", flagValue(tc.calls[8], "--p-level"))
	assert.Equal(t, "3", flagValue(tc.calls[10], "--p-level"))

	status := make(map[string]Status)
	for _, r := range results {
		status[r.Stage] = r.Status
	}
	assert.Equal(t, map[string]Status{
		"manifest":        Processed,
		"import":          Processed,
		"denoise":         Processed,
		"classify":        Processed,
		"summarize":       Processed,
		"basic info":      Processed,
		"taxonomy Genus":  Processed,
		"taxonomy Family": Skipped,
		"taxonomy Phylum": Processed,
		"pie charts S1":   Processed,
		"pie charts S2":   Processed,
		"pie charts S3":   Skipped,
	}, status)

	for _, f := range []string{
		"basic_info_summary.tsv",
		"taxonomy_summary_Genus.tsv",
		"taxonomy_summary_Phylum.tsv",
		"exported_data/feature-table-Genus.tsv",
		"pie_charts/S1_pie_chart.png",
		"pie_charts/S2_pie_chart.png",
	} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, f))
	}
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "taxonomy_summary_Family.tsv"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "pie_charts/S3_pie_chart.png"))

	m, err := os.ReadFile(filepath.Join(cfg.SampleFolder, "manifest.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(m), "\n"), "header and two forward rows")

	info, err := os.ReadFile(filepath.Join(cfg.OutputDir, "basic_info_summary.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "Sample ID\tTotal Reads\tTotal Reads Retained\nS1\t1000\t900\nS2\t2000\t1500\n", string(info))
}

func TestRunPaired(t *testing.T) {
	cfg := setup(t, "S1_R1_001.fastq.gz", "S1_R2_001.fastq.gz", "S2_R1_001.fastq.gz")
	cfg.PairedEnd = true
	cfg.Qiime = "/opt/qiime2/bin/qiime"
	tc := &toolchain{}

	_, err := Run(cfg, tc.run)
	require.NoError(t, err)

	imp := tc.calls[0]
	assert.Equal(t, "/opt/qiime2/bin/qiime", imp[0])
	assert.Equal(t, "SampleData[PairedEndSequencesWithQuality]", flagValue(imp, "--type"))
	assert.Equal(t, filepath.Join(cfg.OutputDir, "demux-paired.qza"), flagValue(imp, "--output-path"))

	den := tc.calls[1]
	assert.Equal(t, "denoise-paired", den[2])
	assert.Equal(t, "230", flagValue(den, "--p-trunc-len-f"))
	assert.Equal(t, "200", flagValue(den, "--p-trunc-len-r"))

	m, err := os.ReadFile(filepath.Join(cfg.SampleFolder, "manifest.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(m), "\n"), "header and one read pair")
}

func TestRunCommandFailure(t *testing.T) {
	cfg := setup(t, "S1_R1_001.fastq.gz")
	tc := &toolchain{fail: "dada2 denoise-single"}

	results, err := Run(cfg, tc.run)
	require.Error(t, err)
	assert.Equal(t, []string{"tools import", "dada2 denoise-single"}, tc.subcommands())

	last := results[len(results)-1]
	assert.Equal(t, "denoise", last.Stage)
	assert.Equal(t, Failed, last.Status)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "basic_info_summary.tsv"))
}

func TestRunExternalFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("no false command available")
	}
	cfg := setup(t, "S1_R1_001.fastq.gz")
	cfg.Qiime = "false"

	results, err := Run(cfg, nil)
	require.Error(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Processed, results[0].Status)
	assert.Equal(t, "import", results[1].Stage)
	assert.Equal(t, Failed, results[1].Status)
}

func TestRunNoSamples(t *testing.T) {
	cfg := setup(t, "S1_R2_001.fastq.gz")
	tc := &toolchain{}

	_, err := Run(cfg, tc.run)
	assert.Equal(t, ErrNoSamples, err)
	assert.Empty(t, tc.calls)
}

func TestRunCountReads(t *testing.T) {
	cfg := setup(t, "S1_R1_001.fastq.gz")
	cfg.CountReads = true
	tc := &toolchain{}

	// The empty file is not valid gzip, so the inventory fails
	// without stopping the run.
	results, err := Run(cfg, tc.run)
	require.NoError(t, err)
	assert.Equal(t, "read inventory", results[1].Stage)
	assert.Equal(t, Failed, results[1].Status)
	assert.Equal(t, "import", results[2].Stage)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "processed", Processed.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "failed", Failed.String())
}

func TestRunSummarizeFailure(t *testing.T) {
	cfg := setup(t, "S1_R1_001.fastq.gz")
	tc := &toolchain{fail: "feature-table summarize"}

	results, err := Run(cfg, tc.run)
	require.NoError(t, err)

	status := make(map[string]Status)
	for _, r := range results {
		status[r.Stage] = r.Status
	}
	assert.Equal(t, Failed, status["summarize"])
	assert.Equal(t, Processed, status["basic info"])
	assert.Equal(t, Processed, status["taxonomy Genus"])
	assert.Equal(t, Processed, status["pie charts S1"])
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "basic_info_summary.tsv"))
}

func TestRunMissingGenus(t *testing.T) {
	cfg := setup(t, "S1_R1_001.fastq.gz")
	tc := &toolchain{noBIOM: []string{"collapsed-table-Genus.qza"}}

	results, err := Run(cfg, tc.run)
	require.NoError(t, err)

	status := make(map[string]Status)
	for _, r := range results {
		status[r.Stage] = r.Status
	}
	assert.Equal(t, Skipped, status["taxonomy Genus"])
	assert.Equal(t, Processed, status["taxonomy Family"])
	assert.Equal(t, Skipped, status["pie charts"])
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, "pie_charts"))
}
