package records

import (
	"time"

	"github.com/tbdelay/platform/pkg/schema"
)

// DateLayout is the calendar-date form used in the CSV file.
const DateLayout = "2006-01-02"

// LongDelayThresholdDays is the largest delay still considered on time.
const LongDelayThresholdDays = 30

const (
	ColPatientID       = "patient_id"
	ColOccupation      = "occupation"
	ColSymptomOnset    = "symptom_onset_date"
	ColFirstVisit      = "first_visit_date"
	ColDiagnosis       = "diagnosis_date"
	ColGeneXpertResult = "geneXpert_result"
	ColDelayDays       = "delay_days"
	ColLongDelay       = "long_delay"
)

// Columns is the CSV header, in file order.
var Columns = []string{
	ColPatientID,
	schema.Age,
	schema.Sex,
	ColOccupation,
	schema.EducationLevel,
	schema.SocioeconomicProxy,
	ColSymptomOnset,
	ColFirstVisit,
	ColDiagnosis,
	schema.CoughDurationDays,
	schema.Hemoptysis,
	schema.WeightLoss,
	schema.FeverNightSweats,
	schema.SmokingStatus,
	schema.ContactWithTBCase,
	schema.ComorbidityDiabetes,
	schema.ComorbidityHIV,
	schema.XrayFindings,
	ColGeneXpertResult,
	schema.DistanceKm,
	ColDelayDays,
	ColLongDelay,
}

var (
	OccupationValues = []string{"farmer", "student", "teacher", "driver", "office"}
	GeneXpertValues  = []string{"positive", "negative", "not_done"}
)

type PatientRecord struct {
	PatientID           string
	Age                 int
	Sex                 string
	Occupation          string
	EducationLevel      string
	SocioeconomicProxy  string
	SymptomOnsetDate    time.Time
	FirstVisitDate      time.Time
	DiagnosisDate       time.Time
	CoughDurationDays   int
	Hemoptysis          int
	WeightLoss          int
	FeverNightSweats    int
	SmokingStatus       string
	ContactWithTBCase   int
	ComorbidityDiabetes int
	ComorbidityHIV      int
	XrayFindings        string
	GeneXpertResult     string
	DistanceKm          float64
	DelayDays           int
	LongDelay           int
}

const secondsPerDay = 24 * 60 * 60

// DelayDays is the number of whole days elapsed from onset to diagnosis,
// floored. Malformed orderings produce negative values; nothing guards
// against them.
func DelayDays(onset, diagnosis time.Time) int {
	elapsed := diagnosis.Unix() - onset.Unix()
	days := elapsed / secondsPerDay
	if elapsed%secondsPerDay != 0 && elapsed < 0 {
		days--
	}
	return int(days)
}

func LongDelay(delayDays int) int {
	if delayDays > LongDelayThresholdDays {
		return 1
	}
	return 0
}

// DeriveLabels fills DelayDays and LongDelay for every record.
func DeriveLabels(recs []PatientRecord) {
	for i := range recs {
		recs[i].DelayDays = DelayDays(recs[i].SymptomOnsetDate, recs[i].DiagnosisDate)
		recs[i].LongDelay = LongDelay(recs[i].DelayDays)
	}
}

// Observation projects the record onto the model inputs.
func (r PatientRecord) Observation() schema.Observation {
	obs := schema.NewObservation()
	obs.Numeric[schema.Age] = float64(r.Age)
	obs.Categorical[schema.Sex] = r.Sex
	obs.Categorical[schema.EducationLevel] = r.EducationLevel
	obs.Categorical[schema.SocioeconomicProxy] = r.SocioeconomicProxy
	obs.Numeric[schema.CoughDurationDays] = float64(r.CoughDurationDays)
	obs.Numeric[schema.Hemoptysis] = float64(r.Hemoptysis)
	obs.Numeric[schema.WeightLoss] = float64(r.WeightLoss)
	obs.Numeric[schema.FeverNightSweats] = float64(r.FeverNightSweats)
	obs.Categorical[schema.SmokingStatus] = r.SmokingStatus
	obs.Numeric[schema.ContactWithTBCase] = float64(r.ContactWithTBCase)
	obs.Numeric[schema.ComorbidityDiabetes] = float64(r.ComorbidityDiabetes)
	obs.Numeric[schema.ComorbidityHIV] = float64(r.ComorbidityHIV)
	obs.Categorical[schema.XrayFindings] = r.XrayFindings
	obs.Numeric[schema.DistanceKm] = r.DistanceKm
	return obs
}
