package serving

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"github.com/tbdelay/platform/pkg/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	pageTitle    = "Tuberculosis Detection Delay Prediction - MVP"
	pageSubtitle = "Minimum Viable Product for Early Triage and Screening"
)

// leftColumn holds the demographic inputs; every other input goes right.
var leftColumn = map[string]bool{
	schema.Age:                true,
	schema.Sex:                true,
	schema.EducationLevel:     true,
	schema.SocioeconomicProxy: true,
	schema.SmokingStatus:      true,
}

var flagValues = []string{"0", "1"}

type optionView struct {
	Value    string
	Selected bool
}

type fieldView struct {
	Name    string
	Label   string
	Number  bool
	Value   string
	Min     string
	Max     string
	Step    string
	Options []optionView
}

type resultView struct {
	Category        string
	Probability     string
	HighRisk        bool
	Recommendations []string
}

type pageView struct {
	Title        string
	Subtitle     string
	ModelMissing bool
	ArtifactPath string
	Left         []fieldView
	Right        []fieldView
	Error        string
	Result       *resultView
	Disclaimer   string
}

// ParseForm coerces submitted form values into an observation. Only type
// coercion happens here; domain checks belong to the service.
func ParseForm(form url.Values) (schema.Observation, error) {
	obs := schema.NewObservation()
	for _, f := range schema.Features() {
		if err := obs.Set(f, form.Get(f.Name)); err != nil {
			return obs, InputError{reason: fmt.Errorf("%s: not a number", f.Label)}
		}
	}
	return obs, nil
}

// formValues renders an observation the way the form displays it.
func formValues(obs schema.Observation) map[string]string {
	values := make(map[string]string)
	for _, f := range schema.Features() {
		switch f.Kind {
		case schema.Categorical:
			values[f.Name], _ = obs.Category(f.Name)
		default:
			if v, ok := obs.Number(f.Name); ok {
				values[f.Name] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return values
}

func submittedValues(form url.Values) map[string]string {
	values := make(map[string]string)
	for _, name := range schema.Names() {
		values[name] = form.Get(name)
	}
	return values
}

func newPage(values map[string]string) pageView {
	page := pageView{Title: pageTitle, Subtitle: pageSubtitle, Disclaimer: Disclaimer}
	for _, f := range schema.Features() {
		field := fieldView{Name: f.Name, Label: f.Label, Value: values[f.Name]}
		switch f.Kind {
		case schema.Numeric:
			field.Number = true
			field.Min = strconv.FormatFloat(f.Min, 'f', -1, 64)
			field.Max = strconv.FormatFloat(f.Max, 'f', -1, 64)
			field.Step = "0.1"
			if f.Integer {
				field.Step = "1"
			}
		case schema.Categorical:
			field.Options = options(f.Categories, field.Value)
		case schema.Flag:
			field.Options = options(flagValues, field.Value)
		}
		if leftColumn[f.Name] {
			page.Left = append(page.Left, field)
		} else {
			page.Right = append(page.Right, field)
		}
	}
	return page
}

func options(values []string, selected string) []optionView {
	out := make([]optionView, len(values))
	for i, v := range values {
		out[i] = optionView{Value: v, Selected: v == selected}
	}
	return out
}

func newResult(a Assessment) *resultView {
	return &resultView{
		Category:        a.Category,
		Probability:     strconv.FormatFloat(a.Probability, 'f', 3, 64),
		HighRisk:        a.HighRisk(),
		Recommendations: a.Recommendations,
	}
}
