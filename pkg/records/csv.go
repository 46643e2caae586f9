package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var ErrEmptyFile = errors.New("csv file has no header row")

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate reads a date or a timestamp. The time of day is kept so delays
// between timestamps floor to whole elapsed days.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func WriteCSV(w io.Writer, recs []PatientRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, r := range recs {
		if err := writer.Write(r.row()); err != nil {
			return fmt.Errorf("write record %s: %w", r.PatientID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteFile(path string, recs []PatientRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r PatientRecord) row() []string {
	return []string{
		r.PatientID,
		strconv.Itoa(r.Age),
		r.Sex,
		r.Occupation,
		r.EducationLevel,
		r.SocioeconomicProxy,
		r.SymptomOnsetDate.Format(DateLayout),
		r.FirstVisitDate.Format(DateLayout),
		r.DiagnosisDate.Format(DateLayout),
		strconv.Itoa(r.CoughDurationDays),
		strconv.Itoa(r.Hemoptysis),
		strconv.Itoa(r.WeightLoss),
		strconv.Itoa(r.FeverNightSweats),
		r.SmokingStatus,
		strconv.Itoa(r.ContactWithTBCase),
		strconv.Itoa(r.ComorbidityDiabetes),
		strconv.Itoa(r.ComorbidityHIV),
		r.XrayFindings,
		r.GeneXpertResult,
		strconv.FormatFloat(r.DistanceKm, 'f', -1, 64),
		strconv.Itoa(r.DelayDays),
		strconv.Itoa(r.LongDelay),
	}
}

// Frame is a CSV table kept as text. Cells the file leaves out are empty
// strings, which downstream coercion treats as missing.
type Frame struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

func ReadFrame(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	frame := &Frame{Header: header, index: make(map[string]int, len(header))}
	for i, name := range header {
		frame.index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(frame.Rows)+2, err)
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func ReadFrameFile(path string) (*Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrame(f)
}

func (f *Frame) Len() int { return len(f.Rows) }

func (f *Frame) Has(column string) bool {
	_, ok := f.index[column]
	return ok
}

// Missing returns the requested columns absent from the header.
func (f *Frame) Missing(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Value returns the cell at row i for a column, or "" when the row is short
// or the column is unknown.
func (f *Frame) Value(i int, column string) string {
	idx, ok := f.index[column]
	if !ok || idx >= len(f.Rows[i]) {
		return ""
	}
	return f.Rows[i][idx]
}
