// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline runs the amplicon analysis workflow: manifest
// construction, QIIME 2 import, denoising, classification and taxonomic
// collapse, followed by summary tables and per-sample pie charts.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kortschak/amplicon/inventory"
	"github.com/kortschak/amplicon/manifest"
	"github.com/kortschak/amplicon/pie"
	"github.com/kortschak/amplicon/qiime"
	"github.com/kortschak/amplicon/summary"
)

// Config holds the parameters of a pipeline run.
type Config struct {
	SampleFolder string
	MetadataFile string
	Database     string
	OutputDir    string

	PairedEnd  bool
	CountReads bool

	// Qiime and BIOM are the toolchain executables.
	// If empty, qiime and biom are found in $PATH.
	Qiime string
	BIOM  string
}

// Denoising truncation positions.
const (
	pairedTruncLenF = 230
	pairedTruncLenR = 200
	singleTruncLen  = 250
)

// Output file names.
const (
	demuxPaired = "demux-paired.qza"
	demuxSingle = "demux-single.qza"
	table       = "table.qza"
	tableViz    = "table.qzv"
	repSeqs     = "rep-seqs.qza"
	stats       = "stats.qza"
	taxonomy    = "taxonomy.qza"

	exportedStats = "exported_stats"
	statsTSV      = "stats.tsv"
	exportedData  = "exported_data"
	featureBIOM   = "feature-table.biom"
	basicInfo     = "basic_info_summary.tsv"
	pieCharts     = "pie_charts"
)

// Status is the outcome of a pipeline stage.
type Status int

const (
	Processed Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Processed:
		return "processed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of a pipeline stage and the path of its product.
type Result struct {
	Stage  string
	Status Status
	Path   string
	Err    error
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s: %v: %v", r.Stage, r.Status, r.Err)
	case r.Path != "":
		return fmt.Sprintf("%s: %v: %s", r.Stage, r.Status, r.Path)
	default:
		return fmt.Sprintf("%s: %v", r.Stage, r.Status)
	}
}

// Runner runs an external command to completion.
type Runner func(*exec.Cmd) error

// ErrNoSamples is returned when no sample could be written to the manifest.
var ErrNoSamples = errors.New("pipeline: no samples in manifest")

// errAbsent is the Err of results skipped because an input file is absent.
var errAbsent = errors.New("file absent")

// Run runs the workflow described by cfg, using run to execute external
// commands. If run is nil, commands are echoed to stdout and run with
// qiime.Run. A failing command stops the run and the returned error is
// non-nil, with the exception of the table summary visualization which
// is reported as Failed. Stages that skip or fail without an external
// command failure are reported in the returned results and the run
// continues.
func Run(cfg Config, run Runner) ([]Result, error) {
	if run == nil {
		run = func(cmd *exec.Cmd) error { return qiime.Run(cmd, os.Stdout) }
	}
	p := &pipeline{cfg: cfg, run: run}
	err := p.do()
	return p.results, err
}

type pipeline struct {
	cfg     Config
	run     Runner
	results []Result
}

func (p *pipeline) out(name ...string) string {
	return filepath.Join(append([]string{p.cfg.OutputDir}, name...)...)
}

func (p *pipeline) report(r Result) {
	if r.Status != Processed {
		log.Printf("warning: %v", r)
	}
	p.results = append(p.results, r)
}

func (p *pipeline) exec(stage string, cb interface{ BuildCommand() (*exec.Cmd, error) }) error {
	cmd, err := cb.BuildCommand()
	if err == nil {
		err = p.run(cmd)
	}
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Err: err})
		return err
	}
	return nil
}

func (p *pipeline) do() error {
	err := os.MkdirAll(p.cfg.OutputDir, 0o755)
	if err != nil {
		return err
	}

	path, rows, err := p.manifest()
	if err != nil {
		return err
	}
	if p.cfg.CountReads {
		p.inventory(rows)
	}

	log.Printf("importing reads from %q", path)
	demux := p.out(demuxSingle)
	if p.cfg.PairedEnd {
		demux = p.out(demuxPaired)
	}
	err = p.exec("import", qiime.Import{Cmd: p.cfg.Qiime, Manifest: path, Paired: p.cfg.PairedEnd, Output: demux})
	if err != nil {
		return err
	}
	p.report(Result{Stage: "import", Status: Processed, Path: demux})

	log.Printf("denoising %q", demux)
	var denoise interface{ BuildCommand() (*exec.Cmd, error) }
	if p.cfg.PairedEnd {
		denoise = qiime.DenoisePaired{
			Cmd: p.cfg.Qiime, Demultiplexed: demux,
			TruncLenF: pairedTruncLenF, TruncLenR: pairedTruncLenR,
			Table: p.out(table), RepSeqs: p.out(repSeqs), Stats: p.out(stats),
		}
	} else {
		denoise = qiime.DenoiseSingle{
			Cmd: p.cfg.Qiime, Demultiplexed: demux,
			TruncLen: singleTruncLen,
			Table:    p.out(table), RepSeqs: p.out(repSeqs), Stats: p.out(stats),
		}
	}
	err = p.exec("denoise", denoise)
	if err != nil {
		return err
	}
	p.report(Result{Stage: "denoise", Status: Processed, Path: p.out(table)})

	log.Printf("classifying representative sequences with %q", p.cfg.Database)
	err = p.exec("classify", qiime.Classify{Cmd: p.cfg.Qiime, Classifier: p.cfg.Database, Reads: p.out(repSeqs), Output: p.out(taxonomy)})
	if err != nil {
		return err
	}
	p.report(Result{Stage: "classify", Status: Processed, Path: p.out(taxonomy)})

	// The table visualization is not consumed by later stages, so
	// a rejected metadata file does not stop the run.
	err = p.exec("summarize", qiime.Summarize{Cmd: p.cfg.Qiime, Table: p.out(table), Output: p.out(tableViz), Metadata: p.cfg.MetadataFile})
	if err == nil {
		p.report(Result{Stage: "summarize", Status: Processed, Path: p.out(tableViz)})
	}

	err = p.basicInfo()
	if err != nil {
		return err
	}

	var genus string
	for _, l := range summary.Levels {
		tsv, err := p.taxonomy(l)
		if err != nil {
			return err
		}
		if l.Name == "Genus" {
			genus = tsv
		}
	}

	p.pieCharts(genus)
	return nil
}

func (p *pipeline) manifest() (path string, rows []manifest.Row, err error) {
	log.Printf("building manifest for %q", p.cfg.SampleFolder)
	path, rows, unmatched, err := manifest.Build(p.cfg.SampleFolder, p.cfg.PairedEnd)
	if err != nil {
		p.report(Result{Stage: "manifest", Status: Failed, Err: err})
		return "", nil, err
	}
	for _, u := range unmatched {
		log.Printf("warning: sample omitted from manifest: %v", u)
	}
	if len(rows) == 0 {
		p.report(Result{Stage: "manifest", Status: Failed, Path: path, Err: ErrNoSamples})
		return "", nil, ErrNoSamples
	}
	p.report(Result{Stage: "manifest", Status: Processed, Path: path})
	return path, rows, nil
}

func (p *pipeline) inventory(rows []manifest.Row) {
	const stage = "read inventory"
	log.Printf("counting reads in %d files", len(rows))
	counts, err := inventory.Take(rows)
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Err: err})
		return
	}
	path := p.out(inventory.FileName)
	err = inventory.WriteFile(path, counts)
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Err: err})
		return
	}
	p.report(Result{Stage: stage, Status: Processed, Path: path})
}

func (p *pipeline) basicInfo() error {
	const stage = "basic info"
	dir := p.out(exportedStats)
	err := p.exec(stage, qiime.Export{Cmd: p.cfg.Qiime, Input: p.out(stats), Output: dir})
	if err != nil {
		return err
	}
	src := filepath.Join(dir, statsTSV)
	if !exists(src) {
		p.report(Result{Stage: stage, Status: Skipped, Path: src, Err: errAbsent})
		return nil
	}
	dst := p.out(basicInfo)
	err = summary.BasicInfoFile(dst, src)
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Path: src, Err: err})
		return nil
	}
	p.report(Result{Stage: stage, Status: Processed, Path: dst})
	return nil
}

// taxonomy collapses the feature table to the level l, exports it as a
// tab separated table and writes its summary. It returns the path of the
// exported table if it was produced.
func (p *pipeline) taxonomy(l summary.Level) (string, error) {
	stage := "taxonomy " + l.Name
	log.Printf("collapsing feature table to %s (level %d)", l.Name, l.Depth)

	collapsed := p.out(fmt.Sprintf("collapsed-table-%s.qza", l.Name))
	err := p.exec(stage, qiime.Collapse{Cmd: p.cfg.Qiime, Table: p.out(table), Taxonomy: p.out(taxonomy), Level: l.Depth, Output: collapsed})
	if err != nil {
		return "", err
	}
	dir := p.out(exportedData, l.Name)
	err = p.exec(stage, qiime.Export{Cmd: p.cfg.Qiime, Input: collapsed, Output: dir})
	if err != nil {
		return "", err
	}

	biom := filepath.Join(dir, featureBIOM)
	if !exists(biom) {
		p.report(Result{Stage: stage, Status: Skipped, Path: biom, Err: errAbsent})
		return "", nil
	}
	tsv := p.out(exportedData, fmt.Sprintf("feature-table-%s.tsv", l.Name))
	err = p.exec(stage, qiime.BIOMConvert{Cmd: p.cfg.BIOM, Input: biom, Output: tsv, TSV: true})
	if err != nil {
		return "", err
	}
	if !exists(tsv) {
		p.report(Result{Stage: stage, Status: Skipped, Path: tsv, Err: errAbsent})
		return "", nil
	}

	dst := p.out(fmt.Sprintf("taxonomy_summary_%s.tsv", l.Name))
	_, err = summary.SummaryFile(dst, tsv)
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Path: tsv, Err: err})
		return tsv, nil
	}
	p.report(Result{Stage: stage, Status: Processed, Path: dst})
	return tsv, nil
}

func (p *pipeline) pieCharts(src string) {
	const stage = "pie charts"
	if src == "" || !exists(src) {
		p.report(Result{Stage: stage, Status: Skipped, Path: src, Err: errAbsent})
		return
	}
	t, err := summary.ReadTableFile(src)
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Path: src, Err: err})
		return
	}
	dir := p.out(pieCharts)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		p.report(Result{Stage: stage, Status: Failed, Path: dir, Err: err})
		return
	}

	log.Printf("rendering %d pie charts to %q", len(t.Samples), dir)
	for i, s := range t.Samples {
		stage := stage + " " + s
		path := filepath.Join(dir, pie.FileName(s))
		err = pie.Render(path, pie.Title(s), pie.Slices(t.Taxa, t.Counts[i]))
		switch {
		case err == pie.ErrEmpty:
			p.report(Result{Stage: stage, Status: Skipped, Err: err})
		case err != nil:
			p.report(Result{Stage: stage, Status: Failed, Path: path, Err: err})
		default:
			p.report(Result{Stage: stage, Status: Processed, Path: path})
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
