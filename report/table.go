package report

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const sheet = "Sheet1"

var columns = []interface{}{"patient_id", "n_segment"}

// Table is a Recorder that accumulates rows and saves them as a
// spreadsheet with the columns patient_id and n_segment on Close.
type Table struct {
	filename string
	records  []Record
}

var _ Recorder = &Table{}

// NewTable returns a table recorder saving to filename.
func NewTable(filename string) *Table {
	return &Table{filename: filename}
}

// Record appends a row.
func (t *Table) Record(r Record) error {
	t.records = append(t.records, r)
	return nil
}

// Records returns the rows recorded so far.
func (t *Table) Records() []Record {
	return t.records
}

// Close writes the spreadsheet.
func (t *Table) Close() error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, r := range t.records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{r.PatientID, r.Status}); err != nil {
			return errors.Wrapf(err, "write row %v", r.PatientID)
		}
	}

	if err := f.SaveAs(t.filename); err != nil {
		return errors.Wrapf(err, "save %v", t.filename)
	}
	return nil
}

// ReadTable reads the rows of a summary spreadsheet.
func ReadTable(filename string) ([]Record, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", filename)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", filename)
	}
	if len(rows) == 0 || len(rows[0]) < 2 || rows[0][0] != columns[0] || rows[0][1] != columns[1] {
		return nil, errors.Errorf("%v: missing patient_id/n_segment header", filename)
	}

	var records []Record
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, errors.Errorf("%v: row %v has %v cells", filename, i+2, len(row))
		}
		n, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "%v: row %v", filename, i+2)
		}
		records = append(records, Record{PatientID: row[0], Status: n})
	}
	return records, nil
}
