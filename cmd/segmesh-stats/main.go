// segmesh-stats audits segmesh output directories. For every case in the
// run summary it lists the mesh files found, flags cases whose files do
// not agree with the recorded status, and for STL output reports the
// triangle count and whether each surface is closed.
//
// Usage:
//
//	segmesh-stats <export>/<dataset>__<label>__<format> ...
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gmlewis/segmesh/batch"
	"github.com/gmlewis/segmesh/config"
	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/report"
	"github.com/gmlewis/segmesh/stl"
)

var (
	summary = flag.String("summary", "", "Summary file (default <dir>__log.log or <dir>__log.xlsx)")
	meshes  = flag.Bool("meshes", false, "Read STL meshes and report triangle counts")
)

var logger = config.NewLogger(os.Stderr, "info")

func main() {
	flag.Parse()

	var failed bool
	for _, dir := range flag.Args() {
		dir = filepath.Clean(dir)
		name := filepath.Base(dir)
		parts := strings.Split(name, "__")
		f, err := export.ParseFormat(parts[len(parts)-1])
		check("%v: %v", dir, err)

		summaryPath := *summary
		if summaryPath == "" {
			summaryPath = findSummary(filepath.Dir(dir), name)
		}
		logger.Info().Msgf("Processing %v with summary %v...", dir, summaryPath)
		records, err := report.ReadFile(summaryPath)
		check("report.ReadFile: %v", err)

		cases, orphans, err := batch.Audit(dir, f, records)
		check("batch.Audit: %v", err)

		var total int
		for _, c := range cases {
			status := "ok"
			if !c.OK() {
				status = "MISMATCH"
				failed = true
			}
			fmt.Printf("%v\t%v\t%v\t%v\n", c.PatientID, c.Status, len(c.Meshes), status)
			total += len(c.Meshes)

			if *meshes && f == export.STL {
				for _, m := range c.Meshes {
					tris, err := stl.ReadFile(filepath.Join(dir, m))
					check("stl.ReadFile: %v", err)
					mesh := stl.ToMesh(m, tris)
					fmt.Printf("\t%v\t%v triangles\tclosed=%v\n", m, len(tris), mesh.Closed())
				}
			}
		}
		for _, o := range orphans {
			fmt.Printf("orphan\t%v\n", o)
			failed = true
		}
		logger.Info().Int("cases", len(cases)).Int("meshes", total).Int("orphans", len(orphans)).Msgf("Audited %v", dir)
	}

	if failed {
		os.Exit(1)
	}
	logger.Info().Msg("Done.")
}

func findSummary(exportRoot, name string) string {
	for _, kind := range []report.Kind{report.KindLog, report.KindTable} {
		p := report.Path(exportRoot, name, kind)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return report.Path(exportRoot, name, report.KindLog)
}

func check(fmtStr string, args ...interface{}) {
	if err := args[len(args)-1]; err != nil {
		logger.WithLevel(zerolog.FatalLevel).Msgf(fmtStr, args...)
		os.Exit(1)
	}
}
