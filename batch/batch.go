// Package batch converts the segmentations of one label across a dataset
// of patient cases into mesh files and records the outcome of each case.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/report"
	"github.com/gmlewis/segmesh/scene"
	"github.com/gmlewis/segmesh/segmentation"
	"github.com/gmlewis/segmesh/zipper"
)

// debugLimit is the number of processed cases after which a debug run
// stops; the case that exceeds it is still processed.
const debugLimit = 10

// Config describes one batch run.
type Config struct {
	// DataRoot holds one directory per case, each with
	// segmentations/<Label>.nii.gz.
	DataRoot string
	// ExportRoot receives the output directory and the summary file.
	ExportRoot string
	Label      string
	// Format is the output format name, matched case-insensitively.
	Format string
	// Skip lists case ids that are recorded as skipped.
	Skip    []string
	Summary report.Kind
	Debug   bool

	Segmentation segmentation.Options
	Preview      bool
	Binvox       bool
	Zip          bool
}

// Result summarizes a run.
type Result struct {
	OutputDir   string
	SummaryPath string
	ArchivePath string
	Records     []report.Record
	// Processed counts the cases that were not skipped.
	Processed int
	// UnusedSkips lists skip ids that matched no case, sorted.
	UnusedSkips []string
}

// Driver runs the export over every case of a dataset.
type Driver struct {
	cfg      Config
	format   export.Format
	skip     map[string]struct{}
	scene    *scene.Scene
	exporter *Exporter
	log      zerolog.Logger
}

// New validates cfg and returns a driver. An unknown format is reported
// here, before any file is touched.
func New(cfg Config, logger zerolog.Logger) (*Driver, error) {
	f, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Summary == "" {
		cfg.Summary = report.KindLog
	}
	if cfg.Summary, err = report.ParseKind(string(cfg.Summary)); err != nil {
		return nil, err
	}
	if cfg.DataRoot == "" || cfg.ExportRoot == "" {
		return nil, errors.New("data root and export root are required")
	}
	if cfg.Label == "" {
		return nil, errors.New("label is required")
	}
	if cfg.Segmentation.LabelName == "" {
		cfg.Segmentation.LabelName = cfg.Label
	}

	skip := make(map[string]struct{}, len(cfg.Skip))
	for _, id := range cfg.Skip {
		if id = strings.TrimSpace(id); id != "" {
			skip[id] = struct{}{}
		}
	}

	sc := scene.New()
	exporter := NewExporter(sc, f, logger)
	exporter.Options = cfg.Segmentation
	exporter.Binvox = cfg.Binvox
	exporter.Preview = cfg.Preview

	return &Driver{
		cfg:      cfg,
		format:   f,
		skip:     skip,
		scene:    sc,
		exporter: exporter,
		log:      logger,
	}, nil
}

// Format returns the resolved output format.
func (d *Driver) Format() export.Format { return d.format }

// OutputDirName returns <dataset>__<label>__<format>.
func (d *Driver) OutputDirName() string {
	dataset := filepath.Base(filepath.Clean(d.cfg.DataRoot))
	return fmt.Sprintf("%v__%v__%v", dataset, d.cfg.Label, d.format.Name)
}

// Cases returns the names of the immediate subdirectories of root, sorted.
func Cases(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, "list cases")
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Run exports every case. The output directory is recreated from scratch.
// An error from the engine stops the run; records made before it are
// still written to the summary.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{OutputDir: filepath.Join(d.cfg.ExportRoot, d.OutputDirName())}
	res.SummaryPath = report.Path(d.cfg.ExportRoot, d.OutputDirName(), d.cfg.Summary)

	if err := os.MkdirAll(d.cfg.ExportRoot, 0755); err != nil {
		return res, errors.Wrap(err, "create export root")
	}
	if err := os.RemoveAll(res.OutputDir); err != nil {
		return res, errors.Wrap(err, "remove previous output")
	}
	if err := os.Mkdir(res.OutputDir, 0755); err != nil {
		return res, errors.Wrap(err, "create output directory")
	}

	cases, err := Cases(d.cfg.DataRoot)
	if err != nil {
		return res, err
	}

	rec, err := report.Create(res.SummaryPath, d.cfg.Summary)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close summary")
		}
	}()

	record := func(r report.Record) error {
		res.Records = append(res.Records, r)
		d.log.Info().Str("case", r.PatientID).Int("status", r.Status).Msg(r.Message())
		return rec.Record(r)
	}

	used := map[string]bool{}
	for _, id := range cases {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if _, ok := d.skip[id]; ok {
			used[id] = true
			if err := record(report.Record{PatientID: id, Status: report.StatusSkipped}); err != nil {
				return res, err
			}
			continue
		}

		d.log.Info().Msgf("Processing %v...", id)
		status, err := d.processCase(id, res.OutputDir)
		if err != nil {
			return res, errors.Wrapf(err, "case %v", id)
		}
		if err := record(report.Record{PatientID: id, Status: status}); err != nil {
			return res, err
		}

		res.Processed++
		if d.cfg.Debug && res.Processed > debugLimit {
			d.log.Info().Msgf("Debug mode: stopping after %v cases", res.Processed)
			break
		}
	}

	for id := range d.skip {
		if !used[id] {
			res.UnusedSkips = append(res.UnusedSkips, id)
		}
	}
	sort.Strings(res.UnusedSkips)
	if len(res.UnusedSkips) > 0 {
		d.log.Warn().Strs("ids", res.UnusedSkips).Msg("skip ids matched no case")
	}

	if d.cfg.Zip {
		res.ArchivePath = filepath.Join(d.cfg.ExportRoot, d.OutputDirName()+".zip")
		d.log.Info().Msgf("Writing: %v", res.ArchivePath)
		if err := zipper.Archive(res.OutputDir, res.ArchivePath); err != nil {
			return res, err
		}
	}

	d.log.Info().Int("processed", res.Processed).Msgf("Done. Exported %v segmentations to %v", res.Processed, res.OutputDir)
	return res, nil
}

// processCase exports one case and clears the scene afterwards.
func (d *Driver) processCase(id, dest string) (int, error) {
	path := filepath.Join(d.cfg.DataRoot, id, "segmentations", d.cfg.Label+".nii.gz")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report.StatusMissing, nil
		}
		return 0, err
	}

	defer d.scene.Clear()
	return d.exporter.ExportSegmentation(path, dest)
}
