package report

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Log is a Recorder appending one message line per record.
type Log struct {
	f *os.File
	w *bufio.Writer
}

var _ Recorder = &Log{}

// NewLog creates (or truncates) the log file filename.
func NewLog(filename string) (*Log, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, "create summary log")
	}
	return &Log{f: f, w: bufio.NewWriter(f)}, nil
}

// Record writes the message line of r.
func (l *Log) Record(r Record) error {
	if _, err := fmt.Fprintln(l.w, r.Message()); err != nil {
		return errors.Wrapf(err, "record %v", r.PatientID)
	}
	return l.w.Flush()
}

// Close closes the log file.
func (l *Log) Close() error {
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// ReadLog reads the records of a summary log. Blank lines are ignored.
func ReadLog(filename string) ([]Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParseMessage(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%v:%v", filename, n)
		}
		records = append(records, r)
	}
	return records, scanner.Err()
}
