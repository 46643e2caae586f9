package records

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbdelay/platform/pkg/schema"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDelayDaysAndLabel(t *testing.T) {
	onset := date(2023, 12, 20)

	cases := []struct {
		diagnosis time.Time
		delay     int
		label     int
	}{
		{date(2023, 12, 25), 5, 0},
		{date(2024, 1, 19), 30, 0},
		{date(2024, 1, 20), 31, 1},
		{date(2024, 4, 18), 120, 1},
		{date(2023, 12, 10), -10, 0},
	}
	for _, tc := range cases {
		delay := DelayDays(onset, tc.diagnosis)
		assert.Equal(t, tc.delay, delay, "diagnosis %s", tc.diagnosis.Format(DateLayout))
		assert.Equal(t, tc.label, LongDelay(delay))
	}
}

func TestDelayDaysAcrossLeapDay(t *testing.T) {
	assert.Equal(t, 2, DelayDays(date(2024, 2, 28), date(2024, 3, 1)))
}

func TestDelayDaysFloorsTimestamps(t *testing.T) {
	onset := time.Date(2023, 1, 1, 23, 0, 0, 0, time.UTC)
	diagnosis := time.Date(2023, 2, 1, 1, 0, 0, 0, time.UTC)

	delay := DelayDays(onset, diagnosis)
	assert.Equal(t, 30, delay)
	assert.Equal(t, 0, LongDelay(delay))

	assert.Equal(t, -2, DelayDays(time.Date(2023, 1, 2, 1, 0, 0, 0, time.UTC), date(2023, 1, 1)))
}

func TestDelayDaysLongSpans(t *testing.T) {
	assert.Equal(t, 146097, DelayDays(date(1700, 1, 1), date(2100, 1, 1)))
	assert.Equal(t, -146097, DelayDays(date(2100, 1, 1), date(1700, 1, 1)))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 5), got)

	for _, raw := range []string{"2024-03-05 13:45:00", "2024-03-05T13:45:00Z", "2024-03-05T20:45:00+07:00"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, time.Date(2024, 3, 5, 13, 45, 0, 0, time.UTC), got, raw)
	}
	_, err = ParseDate("05/03/2024")
	assert.Error(t, err)
}

func sampleRecord() PatientRecord {
	rec := PatientRecord{
		PatientID:          "P0001",
		Age:                45,
		Sex:                "F",
		Occupation:         "teacher",
		EducationLevel:     "secondary",
		SocioeconomicProxy: "BPJS",
		SymptomOnsetDate:   date(2023, 3, 1),
		FirstVisitDate:     date(2023, 3, 8),
		DiagnosisDate:      date(2023, 4, 15),
		CoughDurationDays:  21,
		Hemoptysis:         1,
		SmokingStatus:      "former",
		ContactWithTBCase:  1,
		XrayFindings:       "suspicious",
		GeneXpertResult:    "not_done",
		DistanceKm:         12.3,
	}
	recs := []PatientRecord{rec}
	DeriveLabels(recs)
	return recs[0]
}

func TestWriteAndReadFrame(t *testing.T) {
	rec := sampleRecord()
	require.Equal(t, 45, rec.DelayDays)
	require.Equal(t, 1, rec.LongDelay)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []PatientRecord{rec}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Equal(t, "P0001,45,F,teacher,secondary,BPJS,2023-03-01,2023-03-08,2023-04-15,21,1,0,0,former,1,0,0,suspicious,not_done,12.3,45,1", lines[1])

	frame, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Len())
	assert.Equal(t, "suspicious", frame.Value(0, schema.XrayFindings))
	assert.Equal(t, "2023-04-15", frame.Value(0, ColDiagnosis))
	assert.Equal(t, "", frame.Value(0, "not_a_column"))
	assert.Empty(t, frame.Missing(Columns))
}

func TestReadFrameShortRowsAndMissingColumns(t *testing.T) {
	input := "age,sex\n40\n,M\n"
	frame, err := ReadFrame(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, "40", frame.Value(0, "age"))
	assert.Equal(t, "", frame.Value(0, "sex"))
	assert.Equal(t, "", frame.Value(1, "age"))
	assert.Equal(t, []string{"xray_findings"}, frame.Missing([]string{"age", "xray_findings"}))
}

func TestReadFrameEmpty(t *testing.T) {
	_, err := ReadFrame(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.csv")
	require.NoError(t, WriteFile(path, []PatientRecord{sampleRecord()}))

	frame, err := ReadFrameFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Len())
}

func TestObservationProjection(t *testing.T) {
	obs := sampleRecord().Observation()
	require.NoError(t, schema.Validate(obs))

	v, _ := obs.Number(schema.DistanceKm)
	assert.Equal(t, 12.3, v)
	assert.True(t, obs.Flag(schema.Hemoptysis))
	assert.False(t, obs.Flag(schema.WeightLoss))
	c, _ := obs.Category(schema.SmokingStatus)
	assert.Equal(t, "former", c)
}
