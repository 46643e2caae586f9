// Package schema declares the ordered model inputs once, with their kinds and
// form domains, for both the training pipeline and the prediction front end.
package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	Numeric Kind = iota
	Categorical
	Flag
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Flag:
		return "flag"
	default:
		return "unknown"
	}
}

// Feature is one model input. Numeric features carry a form range and a
// default; categorical features carry their allowed values, first one being
// the default. Flags are 0/1 and are passed to the classifier unchanged.
type Feature struct {
	Name       string
	Label      string
	Kind       Kind
	Categories []string
	Min        float64
	Max        float64
	Default    float64
	Integer    bool
}

const (
	Age                 = "age"
	Sex                 = "sex"
	EducationLevel      = "education_level"
	SocioeconomicProxy  = "socioeconomic_proxy"
	CoughDurationDays   = "cough_duration_days"
	Hemoptysis          = "hemoptysis"
	WeightLoss          = "weight_loss"
	FeverNightSweats    = "fever_night_sweats"
	SmokingStatus       = "smoking_status"
	ContactWithTBCase   = "contact_with_TB_case"
	ComorbidityDiabetes = "comorbidity_diabetes"
	ComorbidityHIV      = "comorbidity_HIV"
	XrayFindings        = "xray_findings"
	DistanceKm          = "distance_to_healthcare_km"
)

var (
	SexValues           = []string{"M", "F"}
	EducationValues     = []string{"none", "primary", "secondary", "university"}
	SocioeconomicValues = []string{"BPJS", "private", "none"}
	SmokingValues       = []string{"never", "former", "current"}
	XrayValues          = []string{"normal", "suspicious", "typical"}
)

var features = []Feature{
	{Name: Age, Label: "Age", Kind: Numeric, Min: 0, Max: 120, Default: 30, Integer: true},
	{Name: Sex, Label: "Sex", Kind: Categorical, Categories: SexValues},
	{Name: EducationLevel, Label: "Education Level", Kind: Categorical, Categories: EducationValues},
	{Name: SocioeconomicProxy, Label: "Socioeconomic Proxy", Kind: Categorical, Categories: SocioeconomicValues},
	{Name: CoughDurationDays, Label: "Cough Duration (days)", Kind: Numeric, Min: 0, Max: 365, Default: 14, Integer: true},
	{Name: Hemoptysis, Label: "Hemoptysis (coughing blood)", Kind: Flag},
	{Name: WeightLoss, Label: "Weight Loss", Kind: Flag},
	{Name: FeverNightSweats, Label: "Night Sweats / Fever", Kind: Flag},
	{Name: SmokingStatus, Label: "Smoking Status", Kind: Categorical, Categories: SmokingValues},
	{Name: ContactWithTBCase, Label: "Contact With TB Case", Kind: Flag},
	{Name: ComorbidityDiabetes, Label: "Diabetes", Kind: Flag},
	{Name: ComorbidityHIV, Label: "HIV", Kind: Flag},
	{Name: XrayFindings, Label: "X-ray Findings", Kind: Categorical, Categories: XrayValues},
	{Name: DistanceKm, Label: "Distance to Healthcare (km)", Kind: Numeric, Min: 0, Max: 100, Default: 5.0},
}

// Features returns the 14 inputs in model order.
func Features() []Feature {
	out := make([]Feature, len(features))
	copy(out, features)
	return out
}

func Names() []string {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	return names
}

func Lookup(name string) (Feature, bool) {
	for _, f := range features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

func NumericNames() []string { return namesOf(Numeric) }
func CategoricalNames() []string { return namesOf(Categorical) }

// PassthroughNames lists the columns that are neither imputed nor encoded.
func PassthroughNames() []string { return namesOf(Flag) }

func namesOf(kind Kind) []string {
	var names []string
	for _, f := range features {
		if f.Kind == kind {
			names = append(names, f.Name)
		}
	}
	return names
}

// Observation is one patient's inputs. A numeric value of NaN and a
// categorical value of "" both mean missing.
type Observation struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

func NewObservation() Observation {
	return Observation{
		Numeric:     make(map[string]float64),
		Categorical: make(map[string]string),
	}
}

func (o Observation) Number(name string) (float64, bool) {
	v, ok := o.Numeric[name]
	if !ok || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

func (o Observation) Category(name string) (string, bool) {
	v, ok := o.Categorical[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Flag reports whether a 0/1 input is set.
func (o Observation) Flag(name string) bool {
	v, ok := o.Number(name)
	return ok && v == 1
}

// Set coerces a raw textual value into the observation. Empty input records a
// missing value.
func (o Observation) Set(f Feature, raw string) error {
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case Categorical:
		o.Categorical[f.Name] = raw
		return nil
	case Numeric, Flag:
		if raw == "" {
			o.Numeric[f.Name] = math.NaN()
			return nil
		}
		v, err := parseNumber(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		o.Numeric[f.Name] = v
		return nil
	default:
		return fmt.Errorf("%s: unknown feature kind %d", f.Name, f.Kind)
	}
}

func parseNumber(raw string) (float64, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %q to a number", raw)
}

// FromValues builds an observation from decoded JSON values keyed by feature
// name. Absent keys are recorded as missing.
func FromValues(values map[string]interface{}) (Observation, error) {
	obs := NewObservation()
	for _, f := range features {
		raw, ok := values[f.Name]
		if !ok || raw == nil {
			if err := obs.Set(f, ""); err != nil {
				return obs, err
			}
			continue
		}
		var text string
		switch v := raw.(type) {
		case string:
			text = v
		case float64:
			text = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			text = strconv.Itoa(v)
		case bool:
			text = strconv.FormatBool(v)
		default:
			return obs, fmt.Errorf("%s: unsupported type %T", f.Name, raw)
		}
		if err := obs.Set(f, text); err != nil {
			return obs, err
		}
	}
	return obs, nil
}

// Validate checks an observation against the form domains: every input
// present, numbers in range, categories and flags from their fixed sets.
func Validate(obs Observation) error {
	for _, f := range features {
		if err := f.Check(obs); err != nil {
			return err
		}
	}
	return nil
}

func (f Feature) Check(obs Observation) error {
	switch f.Kind {
	case Numeric:
		v, ok := obs.Number(f.Name)
		if !ok {
			return fmt.Errorf("%s is required", f.Label)
		}
		if v < f.Min || v > f.Max {
			return fmt.Errorf("%s must be between %g and %g", f.Label, f.Min, f.Max)
		}
		if f.Integer && v != math.Trunc(v) {
			return fmt.Errorf("%s must be a whole number", f.Label)
		}
	case Flag:
		v, ok := obs.Number(f.Name)
		if !ok {
			return fmt.Errorf("%s is required", f.Label)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("%s must be 0 or 1", f.Label)
		}
	case Categorical:
		v, ok := obs.Category(f.Name)
		if !ok {
			return fmt.Errorf("%s is required", f.Label)
		}
		if !contains(f.Categories, v) {
			return fmt.Errorf("%s must be one of %s", f.Label, strings.Join(f.Categories, ", "))
		}
	}
	return nil
}

// DefaultObservation is the form's initial state.
func DefaultObservation() Observation {
	obs := NewObservation()
	for _, f := range features {
		switch f.Kind {
		case Numeric:
			obs.Numeric[f.Name] = f.Default
		case Flag:
			obs.Numeric[f.Name] = 0
		case Categorical:
			obs.Categorical[f.Name] = f.Categories[0]
		}
	}
	return obs
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
