// Package config loads batch jobs from YAML files and sets up logging.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gmlewis/segmesh/batch"
	"github.com/gmlewis/segmesh/export"
	"github.com/gmlewis/segmesh/report"
	"github.com/gmlewis/segmesh/segmentation"
)

// Job is a batch job as written in a YAML job file.
type Job struct {
	Data    string   `yaml:"data"`
	Export  string   `yaml:"export"`
	Label   string   `yaml:"label"`
	Format  string   `yaml:"format"`
	Skip    []string `yaml:"skip"`
	Summary string   `yaml:"summary"`
	Debug   bool     `yaml:"debug"`

	LogLevel string `yaml:"log_level"`

	SplitComponents bool    `yaml:"split_components"`
	LPS             bool    `yaml:"lps"`
	Step            float64 `yaml:"step"`
	Preview         bool    `yaml:"preview"`
	Binvox          bool    `yaml:"binvox"`
	Zip             bool    `yaml:"zip"`
}

// Default returns a job with the default label, format and summary.
func Default() *Job {
	return &Job{
		Label:    "heart",
		Format:   export.STL.Name,
		Summary:  string(report.KindLog),
		LogLevel: "info",
		Step:     1,
	}
}

// Load reads a job file on top of the defaults. Unknown keys are errors.
func Load(filename string) (*Job, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	j := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(j); err != nil {
		return nil, errors.Wrapf(err, "parse job %v", filename)
	}
	return j, nil
}

// Validate reports the first problem that would stop the job from
// running.
func (j *Job) Validate() error {
	if j.Data == "" {
		return errors.New("data directory is required")
	}
	fi, err := os.Stat(j.Data)
	if err != nil {
		return errors.Wrap(err, "data directory")
	}
	if !fi.IsDir() {
		return errors.Errorf("data %v is not a directory", j.Data)
	}
	if j.Export == "" {
		return errors.New("export directory is required")
	}
	if strings.TrimSpace(j.Label) == "" {
		return errors.New("label is required")
	}
	if _, err := export.ParseFormat(j.Format); err != nil {
		return err
	}
	if _, err := report.ParseKind(j.Summary); err != nil {
		return err
	}
	if j.Step < 0 {
		return errors.Errorf("step must not be negative, got %v", j.Step)
	}
	return nil
}

// SetSkip replaces the skip list with the ids of a comma-separated list.
func (j *Job) SetSkip(list string) {
	j.Skip = nil
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			j.Skip = append(j.Skip, id)
		}
	}
}

// BatchConfig returns the driver configuration of the job.
func (j *Job) BatchConfig() batch.Config {
	return batch.Config{
		DataRoot:   j.Data,
		ExportRoot: j.Export,
		Label:      strings.TrimSpace(j.Label),
		Format:     j.Format,
		Skip:       j.Skip,
		Summary:    report.Kind(strings.ToLower(strings.TrimSpace(j.Summary))),
		Debug:      j.Debug,
		Segmentation: segmentation.Options{
			LabelName:       strings.TrimSpace(j.Label),
			SplitComponents: j.SplitComponents,
			Step:            j.Step,
			LPS:             j.LPS,
		},
		Preview: j.Preview,
		Binvox:  j.Binvox,
		Zip:     j.Zip,
	}
}
