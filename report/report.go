// Package report records the per-patient outcome of a batch run, either as
// a spreadsheet table or as a plain line log.
package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Status values below zero. A status >= 0 is the number of exported
// segments.
const (
	StatusNoClosedSurface = -1
	StatusSkipped         = -2
	StatusMissing         = -3
)

// Record is the outcome of one patient case.
type Record struct {
	PatientID string
	Status    int
}

// Message returns the log line describing r.
func (r Record) Message() string {
	switch {
	case r.Status == StatusSkipped:
		return fmt.Sprintf("%v is skipped", r.PatientID)
	case r.Status == StatusMissing:
		return fmt.Sprintf("%v doesn't have segmentation", r.PatientID)
	case r.Status == StatusNoClosedSurface:
		return fmt.Sprintf("%v has no closed surface", r.PatientID)
	case r.Status >= 0:
		return fmt.Sprintf("%v exported %v segments", r.PatientID, r.Status)
	}
	return fmt.Sprintf("%v has status %v", r.PatientID, r.Status)
}

// ParseMessage is the inverse of Record.Message.
func ParseMessage(line string) (Record, error) {
	line = strings.TrimSpace(line)
	for suffix, status := range map[string]int{
		" is skipped":                StatusSkipped,
		" doesn't have segmentation": StatusMissing,
		" has no closed surface":     StatusNoClosedSurface,
	} {
		if id, ok := strings.CutSuffix(line, suffix); ok {
			return Record{PatientID: id, Status: status}, nil
		}
	}
	if rest, ok := strings.CutSuffix(line, " segments"); ok {
		if i := strings.LastIndex(rest, " exported "); i >= 0 {
			n, err := strconv.Atoi(rest[i+len(" exported "):])
			if err != nil {
				return Record{}, errors.Wrapf(err, "parse %q", line)
			}
			return Record{PatientID: rest[:i], Status: n}, nil
		}
	}
	return Record{}, errors.Errorf("unrecognized line %q", line)
}

// Recorder collects the records of a run. Close flushes everything
// recorded so far.
type Recorder interface {
	Record(r Record) error
	Close() error
}

// Kind selects the summary file format.
type Kind string

// The summary kinds.
const (
	KindLog   Kind = "log"
	KindTable Kind = "xlsx"
)

// ParseKind validates a summary kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLog, KindTable:
		return k, nil
	}
	return "", errors.Errorf("unknown summary kind %q", s)
}

// Path returns the summary file of the output directory dirName below
// exportRoot: <exportRoot>/<dirName>__log.<kind>.
func Path(exportRoot, dirName string, kind Kind) string {
	return filepath.Join(exportRoot, fmt.Sprintf("%v__log.%v", dirName, kind))
}

// Create opens a recorder of the given kind writing to filename.
func Create(filename string, kind Kind) (Recorder, error) {
	switch kind {
	case KindLog:
		return NewLog(filename)
	case KindTable:
		return NewTable(filename), nil
	}
	return nil, errors.Errorf("unknown summary kind %q", kind)
}

// ReadFile reads the records of a summary file, choosing the reader by
// extension.
func ReadFile(filename string) ([]Record, error) {
	if strings.EqualFold(filepath.Ext(filename), "."+string(KindTable)) {
		return ReadTable(filename)
	}
	return ReadLog(filename)
}
