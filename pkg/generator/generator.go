// Package generator fabricates synthetic tuberculosis patient records for
// training and demos. Every field is drawn independently; only the visit and
// diagnosis dates depend on the onset date.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/records"
	"github.com/tbdelay/platform/pkg/schema"
)

const DefaultRows = 500

var (
	DefaultStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

type Options struct {
	Rows int
	// Seed 0 seeds from the clock.
	Seed  int64
	Start time.Time
	End   time.Time
}

type Generator struct {
	rng   *rand.Rand
	start time.Time
	end   time.Time
}

func New(opts Options) *Generator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = DefaultStart
	}
	if end.IsZero() {
		end = DefaultEnd
	}
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		start: start,
		end:   end,
	}
}

// Generate returns n records with labels derived over the whole table.
func (g *Generator) Generate(n int) []records.PatientRecord {
	if n < 0 {
		n = 0
	}
	recs := make([]records.PatientRecord, n)
	for i := range recs {
		recs[i] = g.record(i)
	}
	records.DeriveLabels(recs)
	return recs
}

func (g *Generator) record(i int) records.PatientRecord {
	onset := g.date()
	return records.PatientRecord{
		PatientID:           fmt.Sprintf("P%04d", i+1),
		Age:                 g.between(18, 80),
		Sex:                 g.pick(schema.SexValues),
		Occupation:          g.pick(records.OccupationValues),
		EducationLevel:      g.pick(schema.EducationValues),
		SocioeconomicProxy:  g.pick(schema.SocioeconomicValues),
		SymptomOnsetDate:    onset,
		FirstVisitDate:      onset.AddDate(0, 0, g.between(1, 20)),
		DiagnosisDate:       onset.AddDate(0, 0, g.between(5, 120)),
		CoughDurationDays:   g.between(5, 90),
		Hemoptysis:          g.flag(),
		WeightLoss:          g.flag(),
		FeverNightSweats:    g.flag(),
		SmokingStatus:       g.pick(schema.SmokingValues),
		ContactWithTBCase:   g.flag(),
		ComorbidityDiabetes: g.flag(),
		ComorbidityHIV:      g.flag(),
		XrayFindings:        g.pick(schema.XrayValues),
		GeneXpertResult:     g.pick(records.GeneXpertValues),
		DistanceKm:          math.Round((0.5+g.rng.Float64()*49.5)*10) / 10,
	}
}

// date draws uniformly between start and end, both inclusive.
func (g *Generator) date() time.Time {
	span := records.DelayDays(g.start, g.end)
	return g.start.AddDate(0, 0, g.rng.Intn(span+1))
}

// between draws an integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) flag() int {
	return g.rng.Intn(2)
}

// WriteDataset generates opts.Rows records and writes them to path.
func WriteDataset(path string, opts Options) ([]records.PatientRecord, error) {
	recs := New(opts).Generate(opts.Rows)
	if err := records.WriteFile(path, recs); err != nil {
		return nil, fmt.Errorf("write dataset %s: %w", path, err)
	}

	positives := 0
	for _, r := range recs {
		positives += r.LongDelay
	}
	logger.Log.WithFields(map[string]interface{}{
		"rows":       len(recs),
		"path":       path,
		"long_delay": positives,
	}).Info("Synthetic dataset written")
	return recs, nil
}
