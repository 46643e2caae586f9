package training

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tbdelay/platform/pkg/records"
	"github.com/tbdelay/platform/pkg/schema"
)

var dateColumns = []string{records.ColSymptomOnset, records.ColDiagnosis, records.ColFirstVisit}

// Dataset is the model-ready view of a CSV file: one observation and one
// recomputed label per row.
type Dataset struct {
	Observations []schema.Observation
	Labels       []int
	DelayDays    []int
}

func (d *Dataset) Len() int { return len(d.Labels) }

// RequiredColumns lists the columns a training file must carry.
func RequiredColumns() []string {
	return append(schema.Names(), dateColumns...)
}

// LoadDataset reads a CSV file and derives labels from its dates, ignoring
// any delay_days or long_delay columns it already holds.
func LoadDataset(path string) (*Dataset, error) {
	frame, err := records.ReadFrameFile(path)
	if err != nil {
		return nil, DataLoadError{Path: path, reason: err}
	}
	return datasetFromFrame(path, frame)
}

func datasetFromFrame(path string, frame *records.Frame) (*Dataset, error) {
	if missing := frame.Missing(RequiredColumns()); len(missing) > 0 {
		return nil, SchemaMismatchError{Missing: missing}
	}
	if frame.Len() == 0 {
		return nil, DataLoadError{Path: path, reason: errors.New("dataset has no rows")}
	}

	ds := &Dataset{
		Observations: make([]schema.Observation, frame.Len()),
		Labels:       make([]int, frame.Len()),
		DelayDays:    make([]int, frame.Len()),
	}
	features := schema.Features()
	for i := 0; i < frame.Len(); i++ {
		dates := make(map[string]time.Time, len(dateColumns))
		for _, col := range dateColumns {
			raw := strings.TrimSpace(frame.Value(i, col))
			if raw == "" {
				continue
			}
			d, err := records.ParseDate(raw)
			if err != nil {
				return nil, DataLoadError{Path: path, reason: fmt.Errorf("row %d column %s: %w", i+1, col, err)}
			}
			dates[col] = d
		}
		onset, okOnset := dates[records.ColSymptomOnset]
		diagnosis, okDiagnosis := dates[records.ColDiagnosis]
		if okOnset && okDiagnosis {
			ds.DelayDays[i] = records.DelayDays(onset, diagnosis)
			ds.Labels[i] = records.LongDelay(ds.DelayDays[i])
		}

		obs := schema.NewObservation()
		for _, f := range features {
			if err := obs.Set(f, frame.Value(i, f.Name)); err != nil {
				return nil, DataLoadError{Path: path, reason: fmt.Errorf("row %d: %w", i+1, err)}
			}
		}
		ds.Observations[i] = obs
	}
	return ds, nil
}

// subset selects rows by index.
func (d *Dataset) subset(rows []int) ([]schema.Observation, []int) {
	obs := make([]schema.Observation, len(rows))
	labels := make([]int, len(rows))
	for i, r := range rows {
		obs[i] = d.Observations[r]
		labels[i] = d.Labels[r]
	}
	return obs, labels
}
