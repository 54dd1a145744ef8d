// segmesh converts the segmentation of one anatomical structure across a
// dataset of patient cases into surface mesh files.
//
// The dataset holds one directory per case, each with the label volume
// segmentations/<label>.nii.gz. Meshes are written to
// <export>/<dataset>__<label>__<format>/ and the outcome of every case is
// summarized in <export>/<dataset>__<label>__<format>__log.{log,xlsx}.
//
// Settings may come from a YAML job file (-config); flags given on the
// command line override it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/gmlewis/segmesh/batch"
	"github.com/gmlewis/segmesh/config"
)

var (
	jobFile = flag.String("config", "", "YAML job file; flags override its settings")

	data     = flag.String("data", "", "Dataset directory with one subdirectory per case")
	export   = flag.String("export", "", "Directory receiving the meshes and the summary")
	label    = flag.String("label", "heart", "Segmentation label to export, e.g. heart or liver")
	format   = flag.String("format", "stl", "Output format: obj, stl, ply or gltf")
	skip     = flag.String("skip", "", "Comma-separated case ids to skip")
	xlsx     = flag.Bool("xlsx", false, "Write the summary as a spreadsheet instead of a log")
	debug    = flag.Bool("debug", false, "Stop after the first 11 processed cases")
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn or error")

	split   = flag.Bool("split", false, "Export each connected component of the label separately")
	lps     = flag.Bool("lps", false, "Write meshes in LPS instead of RAS coordinates")
	step    = flag.Float64("step", 1, "Marching cubes sampling step in voxels")
	preview = flag.Bool("preview", false, "Render a preview PNG per case")
	binvox  = flag.Bool("binvox", false, "Also write each segment as a binvox file")
	zip     = flag.Bool("zip", false, "Archive the output directory into a ZIP file")
)

var logger = config.NewLogger(os.Stderr, "info")

func main() {
	flag.Parse()

	job := config.Default()
	if *jobFile != "" {
		var err error
		job, err = config.Load(*jobFile)
		check("config.Load: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			job.Data = *data
		case "export":
			job.Export = *export
		case "label":
			job.Label = *label
		case "format":
			job.Format = *format
		case "skip":
			job.SetSkip(*skip)
		case "xlsx":
			job.Summary = "log"
			if *xlsx {
				job.Summary = "xlsx"
			}
		case "debug":
			job.Debug = *debug
		case "log-level":
			job.LogLevel = *logLevel
		case "split":
			job.SplitComponents = *split
		case "lps":
			job.LPS = *lps
		case "step":
			job.Step = *step
		case "preview":
			job.Preview = *preview
		case "binvox":
			job.Binvox = *binvox
		case "zip":
			job.Zip = *zip
		}
	})

	logger = config.NewLogger(os.Stderr, job.LogLevel)
	check("invalid job: %v", job.Validate())

	d, err := batch.New(job.BatchConfig(), logger)
	check("batch.New: %v", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msgf("Exporting %q segmentations from %v as %v...", job.Label, job.Data, d.Format())
	res, err := d.Run(ctx)
	if res != nil && res.SummaryPath != "" {
		logger.Info().Msgf("Summary: %v", res.SummaryPath)
	}
	check("Run: %v", err)

	logger.Info().Int("processed", res.Processed).Msg("Done.")
}

func check(fmtStr string, args ...interface{}) {
	if err := args[len(args)-1]; err != nil {
		logger.WithLevel(zerolog.FatalLevel).Msgf(fmtStr, args...)
		os.Exit(1)
	}
}
